package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"Empty", "", ""},
		{"Untouched", "Visit the Majorelle garden.", "Visit the Majorelle garden."},
		{"DuplicateLines", "a\nb\na\nc", "a\nb\nc"},
		{"TrailingArtifact", "The best time to visit Marrak", "The best time to visit "},
		{"RepeatedArtifact", "Go to MarrakMarrak", "Go to "},
		{"OnlyArtifact", "Marrak", ""},
		{"ArtifactInsideKept", "Marrakech is red.\nEnjoy", "Marrakech is red.\nEnjoy"},
		{"BlankLinesCollapse", "a\n\nb\n\nc", "a\n\nb\nc"},
		{"DedupeExposesArtifact", "q\nzMarrak\nq", "q\nz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.raw))
		})
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"a\nb\na\nc",
		"q\nzMarrak\nq",
		"x\nMarrak\nx\nMarrak",
		"Visit Fes\nVisit Fes\nthen MarrakMarrak",
		"line\n\n\nline\n",
		"Marrak\nMarrakMarrak\nMarrak",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}
