// Package pipeline is the single entry point for detection: scan, optional
// NLP supplement, conflict resolution, threshold filtering, risk scoring.
// The HTTP API and the CLI both call through here so a document is resolved
// and scored exactly once regardless of surface.
package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/scrubd-io/scrubd/internal/classifier"
	"github.com/scrubd-io/scrubd/internal/mask"
	"github.com/scrubd-io/scrubd/internal/nlp"
	scrubdotel "github.com/scrubd-io/scrubd/internal/otel"
	"github.com/scrubd-io/scrubd/internal/risk"
)

var tracer = scrubdotel.Tracer("github.com/scrubd-io/scrubd/internal/pipeline")

// Detection modes.
const (
	ModeRegex  = "regex"
	ModeHybrid = "hybrid"
)

// ErrInvalidMode marks an unknown detection mode.
var ErrInvalidMode = errors.New("invalid detection mode")

// Engine wires the detection stages together. Safe for concurrent use; all
// state is immutable after construction.
type Engine struct {
	scanner  *classifier.Scanner
	scorer   *risk.Scorer
	supplier nlp.Supplier // nil means the NLP capability is absent
}

// New builds an engine. supplier may be nil.
func New(scanner *classifier.Scanner, scorer *risk.Scorer, supplier nlp.Supplier) *Engine {
	return &Engine{scanner: scanner, scorer: scorer, supplier: supplier}
}

// NLPAvailable reports whether an external NLP supplier is configured.
func (e *Engine) NLPAvailable() bool { return e.supplier != nil }

// Scanner exposes the compiled recognizer set for introspection surfaces.
func (e *Engine) Scanner() *classifier.Scanner { return e.scanner }

// DetectRequest is one detection call.
type DetectRequest struct {
	Text          string
	Mode          string  // regex (default) or hybrid
	MinConfidence float64 // entities below are dropped after resolution
}

// Detection is the detect result shared by the HTTP and CLI surfaces.
type Detection struct {
	Entities      []classifier.Entity
	Risk          risk.Assessment
	FilteredCount int
	Mode          string
	NLPUsed       bool
	NLPDegraded   bool
}

// Detect runs the full pipeline. In hybrid mode an absent supplier means
// pattern-only operation (not an error); a failing supplier degrades to
// pattern-only and sets NLPDegraded.
func (e *Engine) Detect(ctx context.Context, req DetectRequest) (*Detection, error) {
	ctx, span := tracer.Start(ctx, "pipeline.detect")
	defer span.End()

	mode := req.Mode
	if mode == "" {
		mode = ModeRegex
	}
	if mode != ModeRegex && mode != ModeHybrid {
		return nil, ErrInvalidMode
	}

	candidates := e.scanner.Scan(ctx, req.Text)

	d := &Detection{Mode: mode}
	if mode == ModeHybrid && e.supplier != nil {
		spans, err := e.supplier.Spans(ctx, req.Text)
		if err != nil {
			// degrade, never fail: pattern results alone are still valid
			d.NLPDegraded = true
			log.Warn().Err(err).Msg("nlp supplier failed, continuing pattern-only")
		} else {
			d.NLPUsed = true
			candidates = append(candidates, nlp.ToEntities(req.Text, spans)...)
		}
	}

	resolved := classifier.Resolve(req.Text, candidates)

	kept := make([]classifier.Entity, 0, len(resolved))
	for _, ent := range resolved {
		if ent.Confidence >= req.MinConfidence {
			kept = append(kept, ent)
		}
	}
	d.FilteredCount = len(resolved) - len(kept)
	d.Entities = kept
	d.Risk = e.scorer.Score(ctx, kept)

	span.SetAttributes(
		attribute.Int("detect.entity_count", len(kept)),
		attribute.Int("detect.filtered_count", d.FilteredCount),
		attribute.Int("detect.risk_score", d.Risk.Score),
	)
	log.Debug().
		Int("entities", len(kept)).
		Int("filtered", d.FilteredCount).
		Int("risk_score", d.Risk.Score).
		Str("bucket", d.Risk.Bucket).
		Msg("detection complete")

	return d, nil
}

// MaskRequest is one masking call: a detection plus a masking config.
type MaskRequest struct {
	Text          string
	Mode          string
	MinConfidence float64
	Masking       mask.Config
}

// MaskResult pairs the masked text with the detection that drove it.
type MaskResult struct {
	Masked    string
	Detection *Detection
}

// Mask detects and then rewrites the matched spans per the masking config.
func (e *Engine) Mask(ctx context.Context, req MaskRequest) (*MaskResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.mask")
	defer span.End()

	d, err := e.Detect(ctx, DetectRequest{
		Text:          req.Text,
		Mode:          req.Mode,
		MinConfidence: req.MinConfidence,
	})
	if err != nil {
		return nil, err
	}

	m, err := mask.NewMasker(req.Masking)
	if err != nil {
		return nil, err
	}

	return &MaskResult{
		Masked:    m.Apply(ctx, req.Text, d.Entities),
		Detection: d,
	}, nil
}
