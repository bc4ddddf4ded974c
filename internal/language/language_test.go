package language

import "testing"

func TestToISO2(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"en", "en"},
		{"eng", "en"},
		{"english", "en"},
		{"English", "en"},
		{"fra", "fr"},
		{"fre", "fr"},
		{" de ", "de"},
		{"xx", "xx"},
		{"unknownlang", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ToISO2(tc.input); got != tc.want {
			t.Errorf("ToISO2(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"en", "English"},
		{"spa", "Spanish"},
		{"", "Unknown"},
		{"qq", "QQ"},
	}
	for _, tc := range cases {
		if got := DisplayName(tc.input); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
