package voice

import (
	"fmt"
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// Token is one word-level token with its part-of-speech tag.
type Token struct {
	Text string
	Tag  string
}

// Tagger splits a transcript into tagged word tokens.
type Tagger interface {
	Tag(text string) ([]Token, error)
}

// ProseTagger tags transcripts with the prose NLP library.
type ProseTagger struct{}

func NewProseTagger() *ProseTagger { return &ProseTagger{} }

// Tag tokenizes and tags text, dropping punctuation-only tokens so the
// linguistic metrics count words.
func (ProseTagger) Tag(text string) ([]Token, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("tag transcript: %w", err)
	}

	var tokens []Token
	for _, t := range doc.Tokens() {
		if !isWordToken(t.Text) {
			continue
		}
		tokens = append(tokens, Token{Text: t.Text, Tag: t.Tag})
	}
	return tokens, nil
}

func isWordToken(text string) bool {
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '\'' {
			continue
		}
		return false
	}
	return text != ""
}
