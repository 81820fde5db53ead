// Package mask rewrites detected PII spans in place. Three modes: partial
// keeps a short identifying tail, full replaces the span with a labeled
// token, synthetic substitutes a format-valid fake carrying a visible
// watermark so masked output can never be mistaken for real data.
package mask

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/scrubd-io/scrubd/internal/classifier"
	scrubdotel "github.com/scrubd-io/scrubd/internal/otel"
)

var tracer = scrubdotel.Tracer("github.com/scrubd-io/scrubd/internal/mask")

// Masking modes.
const (
	ModePartial   = "partial"
	ModeFull      = "full"
	ModeSynthetic = "synthetic"
)

// Config controls which entities are masked and how.
type Config struct {
	// Mode is one of partial, full, synthetic.
	Mode string `json:"mode"`
	// IncludePlaceholders also masks entities flagged as placeholder data.
	IncludePlaceholders bool `json:"includePlaceholders"`
	// MaskTypes restricts masking to the listed labels; empty means all.
	MaskTypes []string `json:"maskTypes,omitempty"`
}

// Validate checks the config against the known modes.
func (c Config) Validate() error {
	switch c.Mode {
	case ModePartial, ModeFull, ModeSynthetic:
		return nil
	}
	return fmt.Errorf("unknown masking mode %q", c.Mode)
}

// Masker applies one masking pass. It is single-use per document: the
// synthetic counter advances per replaced entity, so a fresh Masker gives
// reproducible output for the same input.
type Masker struct {
	cfg     Config
	labels  map[string]bool
	counter int
}

// NewMasker builds a masker for one document. Returns an error for an
// unknown mode.
func NewMasker(cfg Config) (*Masker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var labels map[string]bool
	if len(cfg.MaskTypes) > 0 {
		labels = make(map[string]bool, len(cfg.MaskTypes))
		for _, l := range cfg.MaskTypes {
			labels[strings.ToLower(l)] = true
		}
	}
	return &Masker{cfg: cfg, labels: labels}, nil
}

// Apply rewrites the masked spans of text. Entities must be non-overlapping
// (the resolver's output contract); spans are replaced right to left so
// earlier offsets stay valid.
func (m *Masker) Apply(ctx context.Context, text string, entities []classifier.Entity) string {
	_, span := tracer.Start(ctx, "mask.apply")
	defer span.End()

	targets := make([]classifier.Entity, 0, len(entities))
	for _, e := range entities {
		if e.IsPlaceholder && !m.cfg.IncludePlaceholders {
			continue
		}
		if m.labels != nil && !m.labels[e.Label] {
			continue
		}
		targets = append(targets, e)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Start > targets[j].Start })

	out := []byte(text)
	for _, e := range targets {
		replacement := m.replacement(e)
		out = append(out[:e.Start], append([]byte(replacement), out[e.End:]...)...)
	}

	span.SetAttributes(attribute.Int("mask.replaced_count", len(targets)))
	return string(out)
}

func (m *Masker) replacement(e classifier.Entity) string {
	switch m.cfg.Mode {
	case ModeFull:
		return fullToken(e.Label)
	case ModeSynthetic:
		m.counter++
		return syntheticValue(e.Label, m.counter) + fmt.Sprintf("[SYN-%d]", m.counter)
	default:
		return partialValue(e.Label, e.Value)
	}
}

// fullToken returns the labeled redaction token, e.g. "[REDACTED:EMAIL]".
func fullToken(label string) string {
	return "[REDACTED:" + strings.ToUpper(label) + "]"
}

// partialValue keeps just enough of the original to correlate records
// without exposing the identifier.
func partialValue(label, value string) string {
	switch label {
	case classifier.LabelEmail:
		return partialEmail(value)
	case classifier.LabelPhone:
		return maskDigitsKeepTail(value, 3)
	case classifier.LabelCreditCard, classifier.LabelBankAccount, classifier.LabelAadhaar:
		return maskDigitsKeepTail(value, 4)
	case classifier.LabelPAN, classifier.LabelPassport:
		return maskAlnumKeepTail(value, 4)
	case classifier.LabelDOB:
		// keep the year, mask day and month
		return maskDigitsKeepTail(value, 4)
	case classifier.LabelIPAddress:
		return partialIP(value)
	case classifier.LabelPersonName, classifier.LabelAddress:
		return partialText(value)
	default:
		return fullToken(label)
	}
}

// partialEmail keeps the first character of the mailbox and the full domain.
func partialEmail(value string) string {
	at := strings.LastIndex(value, "@")
	if at <= 0 {
		return maskAlnumKeepTail(value, 0)
	}
	return firstChar(value) + "***@" + value[at+1:]
}

// partialIP keeps the first octet.
func partialIP(value string) string {
	parts := strings.SplitN(value, ".", 2)
	return parts[0] + ".x.x.x"
}

// partialText keeps the first character of the span.
func partialText(value string) string {
	if value == "" {
		return value
	}
	return firstChar(value) + "***"
}

// firstChar returns the leading rune, not the leading byte, so multi-byte
// names are not cut mid-character.
func firstChar(value string) string {
	_, size := utf8.DecodeRuneInString(value)
	return value[:size]
}

// maskDigitsKeepTail replaces every digit with 'X' except the last keep
// digits, preserving separators so the masked value keeps its shape.
// 4111 1111 1111 1111 -> XXXX XXXX XXXX 1111.
func maskDigitsKeepTail(value string, keep int) string {
	digitCount := 0
	for _, c := range value {
		if c >= '0' && c <= '9' {
			digitCount++
		}
	}
	toMask := digitCount - keep
	if toMask < 0 {
		toMask = 0
	}

	out := []byte(value)
	masked := 0
	for i := 0; i < len(out); i++ {
		if out[i] >= '0' && out[i] <= '9' && masked < toMask {
			out[i] = 'X'
			masked++
		}
	}
	return string(out)
}

// maskAlnumKeepTail masks letters and digits, keeping the last keep
// characters.
func maskAlnumKeepTail(value string, keep int) string {
	out := []byte(value)
	limit := len(out) - keep
	if limit < 0 {
		limit = 0
	}
	for i := 0; i < limit; i++ {
		c := out[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			out[i] = 'X'
		}
	}
	return string(out)
}
