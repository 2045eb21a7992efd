package rag

import (
	"strings"

	"morocco-rag/internal/models"
)

// Clean removes the truncation artifact the generator leaves at the end of long
// answers and drops repeated lines, keeping the first occurrence of each.
// Both steps are repeated until the text no longer changes so that
// Clean(Clean(x)) == Clean(x).
func Clean(raw string) string {
	out := raw
	for {
		next := dedupeLines(trimArtifact(out))
		if next == out {
			return next
		}
		out = next
	}
}

func trimArtifact(s string) string {
	for strings.HasSuffix(s, models.TruncationArtifact) {
		s = strings.TrimSuffix(s, models.TruncationArtifact)
	}
	return s
}

func dedupeLines(s string) string {
	lines := strings.Split(s, "\n")
	seen := make(map[string]struct{}, len(lines))
	kept := lines[:0]
	for _, line := range lines {
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
