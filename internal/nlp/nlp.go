// Package nlp integrates an optional external NER sidecar. The engine works
// without it; when configured, its spans supplement the regex recognizers
// for the fuzzy labels (names, addresses, dates).
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scrubd-io/scrubd/internal/classifier"
)

// Span is one NER span from the external model, byte offsets into the
// submitted text, End exclusive.
type Span struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Supplier supplies NER spans for a text. An absent supplier (nil) means
// pattern-only operation; a failing supplier degrades to the same, flagged
// in responses, never an error to the caller.
type Supplier interface {
	Spans(ctx context.Context, text string) ([]Span, error)
}

// nerLabelMap translates the sidecar's NER tag set to internal labels.
// Unmapped tags are dropped.
var nerLabelMap = map[string]string{
	"PERSON": classifier.LabelPersonName,
	"PER":    classifier.LabelPersonName,
	"GPE":    classifier.LabelAddress,
	"LOC":    classifier.LabelAddress,
	"FAC":    classifier.LabelAddress,
	"DATE":   classifier.LabelDOB,
}

// defaultConfidence applies when the sidecar reports none.
const defaultConfidence = 0.5

// HTTPSupplier posts text to <baseURL>/ner and decodes the span list.
type HTTPSupplier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSupplier builds a supplier for the given base URL. A zero timeout
// defaults to 10 seconds.
func NewHTTPSupplier(baseURL string, timeout time.Duration) *HTTPSupplier {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSupplier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type nerRequest struct {
	Text string `json:"text"`
}

type nerResponse struct {
	Entities []struct {
		Start      int     `json:"start"`
		End        int     `json:"end"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"entities"`
}

// Spans implements Supplier. NER tags outside the mapped set are dropped;
// malformed spans (out of range, inverted) are dropped rather than allowed
// to corrupt downstream offset arithmetic.
func (s *HTTPSupplier) Spans(ctx context.Context, text string) ([]Span, error) {
	body, err := json.Marshal(nerRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encoding ner request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/ner", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building ner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ner sidecar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ner sidecar returned status %d", resp.StatusCode)
	}

	var decoded nerResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding ner response: %w", err)
	}

	spans := make([]Span, 0, len(decoded.Entities))
	for _, e := range decoded.Entities {
		label, ok := nerLabelMap[strings.ToUpper(e.Label)]
		if !ok {
			continue
		}
		if e.Start < 0 || e.End > len(text) || e.Start >= e.End {
			continue
		}
		conf := e.Confidence
		if conf <= 0 {
			conf = defaultConfidence
		}
		spans = append(spans, Span{Start: e.Start, End: e.End, Label: label, Confidence: conf})
	}
	return spans, nil
}

// ToEntities converts sidecar spans into scanner-compatible candidates.
// External spans go through the same placeholder classification as pattern
// matches; the sidecar's confidence in "John Doe" being a name does not make
// it a real one.
func ToEntities(text string, spans []Span) []classifier.Entity {
	entities := make([]classifier.Entity, 0, len(spans))
	for _, sp := range spans {
		ent := classifier.Entity{
			Label:       sp.Label,
			Value:       text[sp.Start:sp.End],
			Start:       sp.Start,
			End:         sp.End,
			Confidence:  sp.Confidence,
			Sensitivity: classifier.SensitivityFor(sp.Label),
			Source:      classifier.SourceExternal,
		}
		if classifier.IsPlaceholderValue(ent.Label, ent.Value) {
			ent.Confidence = classifier.PlaceholderConfidence
			ent.IsPlaceholder = true
		}
		entities = append(entities, ent)
	}
	return entities
}
