// Package risk turns a resolved entity list into a bounded risk score with
// a severity bucket and compliance flags. Scoring is a pure function of the
// entity list and the configured weight tables.
package risk

import (
	"context"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/scrubd-io/scrubd/internal/classifier"
	scrubdotel "github.com/scrubd-io/scrubd/internal/otel"
)

var tracer = scrubdotel.Tracer("github.com/scrubd-io/scrubd/internal/risk")

// Severity buckets, ordered.
const (
	BucketLow      = "low"
	BucketMedium   = "medium"
	BucketHigh     = "high"
	BucketCritical = "critical"
)

// Compliance regimes a detection can implicate.
const (
	ComplianceGDPR  = "GDPR"
	ComplianceDPDP  = "DPDP"
	ComplianceHIPAA = "HIPAA"
	CompliancePCI   = "PCI-DSS"
)

// Weights holds the per-label scoring tables. Exposed so callers can tune
// them; DefaultWeights is the supported baseline.
type Weights struct {
	// Base score per label for the first occurrence.
	Base map[string]int
	// Diminishing factors by occurrence index; occurrences past the end
	// use the last factor.
	Diminishing []float64
	// CriticalFloor is the minimum score once any critical label appears.
	CriticalFloor int
	// IdentityContactBonus applies when a full personal identity (name plus
	// date of birth) and a contact channel co-occur (the pairing enables
	// targeted identity theft).
	IdentityContactBonus int
	// FinancialNameBonus applies when a financial identifier co-occurs
	// with a person name.
	FinancialNameBonus int
}

// Thresholds are the lower bounds of the medium, high, and critical buckets.
type Thresholds struct {
	Medium   int
	High     int
	Critical int
}

// DefaultWeights returns the baseline scoring tables.
func DefaultWeights() Weights {
	return Weights{
		Base: map[string]int{
			classifier.LabelAadhaar:     35,
			classifier.LabelCreditCard:  35,
			classifier.LabelPassport:    30,
			classifier.LabelBankAccount: 30,
			classifier.LabelPAN:         25,
			classifier.LabelPhone:       10,
			classifier.LabelEmail:       5,
			classifier.LabelDOB:         5,
			classifier.LabelAddress:     5,
			classifier.LabelPersonName:  2,
			classifier.LabelIPAddress:   1,
		},
		Diminishing:          []float64{1.0, 0.5, 0.1},
		CriticalFloor:        65,
		IdentityContactBonus: 25,
		FinancialNameBonus:   20,
	}
}

// DefaultThresholds returns the baseline bucket boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 15, High: 50, Critical: 80}
}

// criticalLabels force the score floor: one confirmed instance of these is
// already a reportable incident regardless of what else is in the text.
var criticalLabels = map[string]bool{
	classifier.LabelAadhaar:    true,
	classifier.LabelPAN:        true,
	classifier.LabelPassport:   true,
	classifier.LabelCreditCard: true,
}

var contactLabels = map[string]bool{
	classifier.LabelAddress: true,
	classifier.LabelPhone:   true,
	classifier.LabelEmail:   true,
}

var financialLabels = map[string]bool{
	classifier.LabelCreditCard:  true,
	classifier.LabelBankAccount: true,
}

// complianceByLabel maps labels to the regimes they implicate on their own.
// GDPR covers directly identifying personal data, DPDP the Indian identifier
// and contact set, HIPAA the demographic triad, PCI-DSS card numbers.
var complianceByLabel = map[string][]string{
	classifier.LabelAadhaar:     {ComplianceDPDP},
	classifier.LabelPAN:         {ComplianceDPDP},
	classifier.LabelBankAccount: {ComplianceDPDP},
	classifier.LabelPhone:       {ComplianceDPDP},
	classifier.LabelEmail:       {ComplianceGDPR, ComplianceDPDP},
	classifier.LabelCreditCard:  {CompliancePCI},
	classifier.LabelPersonName:  {ComplianceGDPR, ComplianceHIPAA},
	classifier.LabelAddress:     {ComplianceGDPR, ComplianceHIPAA},
	classifier.LabelDOB:         {ComplianceGDPR, ComplianceHIPAA},
	classifier.LabelIPAddress:   {ComplianceGDPR},
}

// Assessment is the scored view of a resolved entity list.
type Assessment struct {
	Score            int            `json:"score"`
	Bucket           string         `json:"bucket"`
	Counts           map[string]int `json:"counts"`
	PlaceholderCount int            `json:"placeholder_count"`
	Critical         bool           `json:"critical"`
	Compliance       []string       `json:"compliance"`
}

// Scorer applies a weight table to resolved entities.
type Scorer struct {
	weights    Weights
	thresholds Thresholds
}

// NewScorer builds a scorer; zero-value Weights or Thresholds fields fall
// back to the defaults.
func NewScorer(w Weights, t Thresholds) *Scorer {
	if w.Base == nil {
		w = DefaultWeights()
	}
	if t == (Thresholds{}) {
		t = DefaultThresholds()
	}
	return &Scorer{weights: w, thresholds: t}
}

// NewDefaultScorer returns a scorer with the baseline tables.
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultWeights(), DefaultThresholds())
}

// Score computes the risk assessment for a resolved entity list.
// Placeholder entities are counted but contribute nothing to the score,
// the combo bonuses, or the critical floor.
func (s *Scorer) Score(ctx context.Context, entities []classifier.Entity) Assessment {
	_, span := tracer.Start(ctx, "risk.score")
	defer span.End()

	counts := make(map[string]int)
	placeholders := 0
	for _, e := range entities {
		if e.IsPlaceholder {
			placeholders++
			continue
		}
		counts[e.Label]++
	}

	total := 0.0
	for label, n := range counts {
		base := float64(s.weights.Base[label])
		for i := 0; i < n; i++ {
			total += base * s.diminishing(i)
		}
	}
	score := int(math.Round(total))

	critical := false
	for label := range counts {
		if criticalLabels[label] {
			critical = true
			break
		}
	}
	if critical && score < s.weights.CriticalFloor {
		score = s.weights.CriticalFloor
	}

	hasIdentity := counts[classifier.LabelPersonName] > 0 && counts[classifier.LabelDOB] > 0
	if hasIdentity && hasAny(counts, contactLabels) {
		score += s.weights.IdentityContactBonus
	}
	if hasAny(counts, financialLabels) && counts[classifier.LabelPersonName] > 0 {
		score += s.weights.FinancialNameBonus
	}

	if score > 100 {
		score = 100
	}

	a := Assessment{
		Score:            score,
		Bucket:           s.bucket(score),
		Counts:           counts,
		PlaceholderCount: placeholders,
		Critical:         critical,
		Compliance:       complianceFlags(counts),
	}

	span.SetAttributes(
		attribute.Int("risk.score", a.Score),
		attribute.String("risk.bucket", a.Bucket),
	)
	return a
}

func (s *Scorer) diminishing(occurrence int) float64 {
	if len(s.weights.Diminishing) == 0 {
		return 1.0
	}
	if occurrence >= len(s.weights.Diminishing) {
		occurrence = len(s.weights.Diminishing) - 1
	}
	return s.weights.Diminishing[occurrence]
}

func (s *Scorer) bucket(score int) string {
	switch {
	case score >= s.thresholds.Critical:
		return BucketCritical
	case score >= s.thresholds.High:
		return BucketHigh
	case score >= s.thresholds.Medium:
		return BucketMedium
	default:
		return BucketLow
	}
}

// BucketRank orders buckets for comparisons (low=0 .. critical=3).
func BucketRank(bucket string) int {
	switch bucket {
	case BucketCritical:
		return 3
	case BucketHigh:
		return 2
	case BucketMedium:
		return 1
	default:
		return 0
	}
}

func hasAny(counts map[string]int, labels map[string]bool) bool {
	for label := range counts {
		if labels[label] {
			return true
		}
	}
	return false
}

func complianceFlags(counts map[string]int) []string {
	set := make(map[string]bool)
	for label := range counts {
		for _, flag := range complianceByLabel[label] {
			set[flag] = true
		}
	}

	flags := make([]string, 0, len(set))
	for flag := range set {
		flags = append(flags, flag)
	}
	sort.Strings(flags)
	return flags
}
