package engine

import (
	"fmt"

	"github.com/lazypower/seedsoil/internal/store"
)

// maxRawChars bounds the text sent to the summarizer.
const maxRawChars = 30000

// validateSummary checks that every field of a decoded summary is present and
// returns it unchanged as a seed. Empty strings are kept; only absence or a
// wrong type makes a summary malformed.
func validateSummary(s summaryPayload) (*store.Seed, error) {
	switch {
	case s.Essence == nil:
		return nil, fmt.Errorf("missing field essence")
	case s.Nuggets == nil:
		return nil, fmt.Errorf("missing field nuggets")
	case s.Action == nil:
		return nil, fmt.Errorf("missing field action")
	}
	return &store.Seed{
		Essence: *s.Essence,
		Nuggets: append([]string{}, *s.Nuggets...),
		Action:  *s.Action,
	}, nil
}

// validateGaps checks a synthesis result. An empty list is valid.
func validateGaps(p gapsPayload) ([]string, error) {
	if p.Gaps == nil {
		return nil, fmt.Errorf("missing field gaps")
	}
	return append([]string{}, *p.Gaps...), nil
}

// truncateRaw cuts text sent to the summarizer to at most max characters.
func truncateRaw(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
