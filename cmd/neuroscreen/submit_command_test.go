package main

import (
	"encoding/json"
	"testing"
)

func TestBuildPatientPayloadMergesLanguage(t *testing.T) {
	payload, err := buildPatientPayload(`{"covariates":[74,1,16]}`, "en-US")
	if err != nil {
		t.Fatalf("buildPatientPayload: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["language"] != "en" {
		t.Fatalf("language = %v, want en", decoded["language"])
	}
	if _, ok := decoded["covariates"]; !ok {
		t.Fatal("covariates dropped from payload")
	}
}

func TestBuildPatientPayloadEmptyInputs(t *testing.T) {
	payload, err := buildPatientPayload("", "")
	if err != nil {
		t.Fatalf("buildPatientPayload: %v", err)
	}
	if payload != "" {
		t.Fatalf("payload = %q, want empty", payload)
	}
}

func TestBuildPatientPayloadRejectsBadInput(t *testing.T) {
	if _, err := buildPatientPayload("{not json", ""); err == nil {
		t.Fatal("expected error for malformed patient JSON")
	}
	if _, err := buildPatientPayload("", "not a language tag!!"); err == nil {
		t.Fatal("expected error for invalid language tag")
	}
}
