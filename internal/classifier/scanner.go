package classifier

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	scrubdotel "github.com/scrubd-io/scrubd/internal/otel"
)

var tracer = scrubdotel.Tracer("github.com/scrubd-io/scrubd/internal/classifier")

const (
	// ContextBoost is the confidence added when a recognizer context word
	// is found near a match.
	ContextBoost = 0.15

	// ContextWindowChars is the number of characters searched before and
	// after a match when looking for context words.
	ContextWindowChars = 25

	// IFSCWindowChars is the proximity window for the bank-account IFSC cue.
	IFSCWindowChars = 40

	// PlaceholderConfidence is assigned to candidates classified as test or
	// placeholder data. They stay visible in results but never drive risk.
	PlaceholderConfidence = 0.2

	// IFSCBoostedConfidence is the minimum confidence of a bank account
	// candidate with an IFSC code in proximity.
	IFSCBoostedConfidence = 0.9
)

// Scanner generates PII candidates from text using configurable regex
// recognizers. Scan emits every plausible candidate, overlapping and
// multi-label ones included; Resolve picks the winners.
type Scanner struct {
	patterns []PIIPattern
}

// ScannerOption configures a Scanner via the functional options pattern.
type ScannerOption func(*scannerConfig)

type scannerConfig struct {
	patternFile       string
	enabledEntities   []string
	disabledEntities  []string
	customRecognizers []RecognizerConfig
}

// WithPatternFile loads additional recognizers from a global patterns YAML
// file. If the file does not exist, it is silently skipped.
func WithPatternFile(path string) ScannerOption {
	return func(c *scannerConfig) { c.patternFile = path }
}

// WithEnabledEntities sets a whitelist of entity types. When non-empty, only
// recognizers with a matching supported_entity will be active.
func WithEnabledEntities(entities []string) ScannerOption {
	return func(c *scannerConfig) { c.enabledEntities = entities }
}

// WithDisabledEntities sets a blacklist of entity types to exclude.
func WithDisabledEntities(entities []string) ScannerOption {
	return func(c *scannerConfig) { c.disabledEntities = entities }
}

// WithCustomRecognizers adds per-call custom recognizer definitions.
func WithCustomRecognizers(recognizers []RecognizerConfig) ScannerOption {
	return func(c *scannerConfig) { c.customRecognizers = recognizers }
}

// NewScanner creates a PII scanner. Without options it uses the embedded
// defaults. Options layer global overrides and per-call customization on top.
func NewScanner(opts ...ScannerOption) (*Scanner, error) {
	var cfg scannerConfig
	for _, o := range opts {
		o(&cfg)
	}

	// Layer 1: embedded defaults
	defaults, err := DefaultRecognizers()
	if err != nil {
		return nil, fmt.Errorf("loading default recognizers: %w", err)
	}

	// Layer 2: global pattern file (optional)
	var globalRecs []*RecognizerConfig
	if cfg.patternFile != "" {
		rf, err := LoadRecognizerFile(cfg.patternFile)
		if err != nil {
			return nil, fmt.Errorf("loading global pattern file: %w", err)
		}
		if rf != nil {
			globalRecs = toPtrSlice(rf.Recognizers)
		}
	}

	// Layer 3: per-call custom recognizers
	var customRecs []*RecognizerConfig
	if len(cfg.customRecognizers) > 0 {
		customRecs = toPtrSlice(cfg.customRecognizers)
	}

	merged := MergeRecognizers(toPtrSlice(defaults), globalRecs, customRecs)
	merged = FilterByEntities(merged, cfg.enabledEntities, cfg.disabledEntities)

	compiled, err := CompilePIIPatterns(merged)
	if err != nil {
		return nil, fmt.Errorf("compiling patterns: %w", err)
	}

	return &Scanner{patterns: compiled}, nil
}

// MustNewScanner is like NewScanner but panics on error. Useful for
// zero-config startup where the embedded defaults are expected to always
// compile.
func MustNewScanner(opts ...ScannerOption) *Scanner {
	s, err := NewScanner(opts...)
	if err != nil {
		panic(fmt.Sprintf("classifier.NewScanner: %v", err))
	}
	return s
}

// Recognizers returns a summary of the compiled pattern set, one entry per
// compiled pattern.
func (s *Scanner) Recognizers() []PIIPattern {
	out := make([]PIIPattern, len(s.patterns))
	copy(out, s.patterns)
	return out
}

// Scan generates PII candidates from text. Each match passes its hard
// validation gate (Luhn, Verhoeff, calendar, ...) or is dropped; survivors
// get a confidence from the recognizer base score plus context-word boost,
// except placeholders which are pinned to PlaceholderConfidence. The result
// may contain overlapping, multi-label spans; callers resolve conflicts with
// Resolve.
func (s *Scanner) Scan(ctx context.Context, text string) []Entity {
	_, span := tracer.Start(ctx, "classifier.scan")
	defer span.End()

	var candidates []Entity
	seen := make(map[spanKey]int)

	for _, pattern := range s.patterns {
		for _, loc := range matchSpans(pattern, text) {
			value := text[loc[0]:loc[1]]
			if !runValidator(pattern.Validator, value) {
				continue
			}

			ent := Entity{
				Label:       pattern.Label,
				Value:       value,
				Start:       loc[0],
				End:         loc[1],
				Sensitivity: pattern.Sensitivity,
				Source:      SourcePattern,
			}
			// An IFSC code next to a bank account candidate is evidence the
			// value is real, so the cue overrides placeholder classification
			// (sequential account numbers do get issued).
			ifscConfirmed := pattern.Label == LabelBankAccount && IFSCNearby(text, loc[0], loc[1])
			if !ifscConfirmed && IsPlaceholderValue(pattern.Label, value) {
				ent.Confidence = PlaceholderConfidence
				ent.IsPlaceholder = true
			} else {
				conf := enhanceScoreWithContext(text, loc[0], pattern.Score, pattern.ContextWords)
				if ifscConfirmed && conf < IFSCBoostedConfidence {
					conf = IFSCBoostedConfidence
				}
				if conf > 1.0 {
					conf = 1.0
				}
				ent.Confidence = conf
			}

			// Two patterns of the same recognizer family can land on the
			// same span; keep the higher-confidence duplicate.
			key := spanKey{ent.Label, ent.Start, ent.End}
			if idx, dup := seen[key]; dup {
				if ent.Confidence > candidates[idx].Confidence {
					candidates[idx] = ent
				}
				continue
			}
			seen[key] = len(candidates)
			candidates = append(candidates, ent)
		}
	}

	span.SetAttributes(
		attribute.Int("pii.candidate_count", len(candidates)),
	)
	return candidates
}

type spanKey struct {
	label      string
	start, end int
}

// matchSpans returns the entity spans for one pattern. For grouped patterns
// the first capture group is the entity; the surrounding cue text is context,
// not PII.
func matchSpans(p PIIPattern, text string) [][]int {
	if !p.HasGroup {
		return p.Pattern.FindAllStringIndex(text, -1)
	}
	var spans [][]int
	for _, m := range p.Pattern.FindAllStringSubmatchIndex(text, -1) {
		if len(m) >= 4 && m[2] >= 0 {
			spans = append(spans, []int{m[2], m[3]})
		} else {
			spans = append(spans, []int{m[0], m[1]})
		}
	}
	return spans
}

// enhanceScoreWithContext boosts a match's base score if context words are
// found within +/- ContextWindowChars characters of the match position.
func enhanceScoreWithContext(text string, position int, baseScore float64, contextWords []string) float64 {
	if len(contextWords) == 0 {
		return baseScore
	}
	start := position - ContextWindowChars
	if start < 0 {
		start = 0
	}
	end := position + ContextWindowChars
	if end > len(text) {
		end = len(text)
	}
	window := strings.ToLower(text[start:end])

	for _, cw := range contextWords {
		if strings.Contains(window, strings.ToLower(cw)) {
			return baseScore + ContextBoost
		}
	}
	return baseScore
}
