package classifier

import (
	"fmt"
	"regexp"

	"github.com/scrubd-io/scrubd/patterns"
)

// PIIPattern represents a compiled, ready-to-use PII detection pattern.
type PIIPattern struct {
	Name         string
	Label        string
	Pattern      *regexp.Regexp
	Score        float64
	Sensitivity  int // 1-3, higher = more sensitive
	Validator    string
	ContextWords []string
	// HasGroup marks patterns whose first capture group, not the full
	// match, is the entity span (bank accounts behind a textual cue).
	HasGroup bool
}

// DefaultRecognizers returns the built-in PII recognizers parsed from the
// embedded pii_in.yaml file. This is the first layer in the merge chain.
func DefaultRecognizers() ([]RecognizerConfig, error) {
	rf, err := ParseRecognizerFile(patterns.PIIINYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded PII patterns: %w", err)
	}
	return rf.Recognizers, nil
}
