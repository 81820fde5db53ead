package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrubd-io/scrubd/internal/classifier"
)

func ent(label string) classifier.Entity {
	return classifier.Entity{Label: label, Confidence: 0.8}
}

func placeholder(label string) classifier.Entity {
	return classifier.Entity{Label: label, Confidence: 0.2, IsPlaceholder: true}
}

func TestScoreEmpty(t *testing.T) {
	s := NewDefaultScorer()
	a := s.Score(context.Background(), nil)
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, BucketLow, a.Bucket)
	assert.Empty(t, a.Compliance)
}

func TestScoreCriticalFloor(t *testing.T) {
	s := NewDefaultScorer()
	a := s.Score(context.Background(), []classifier.Entity{ent(classifier.LabelAadhaar)})
	assert.Equal(t, 65, a.Score) // base 35 raised to the floor
	assert.True(t, a.Critical)
	assert.GreaterOrEqual(t, BucketRank(a.Bucket), BucketRank(BucketHigh))
	assert.Contains(t, a.Compliance, ComplianceDPDP)
}

func TestScoreEmailPlusPhoneIsMedium(t *testing.T) {
	s := NewDefaultScorer()
	a := s.Score(context.Background(), []classifier.Entity{
		ent(classifier.LabelEmail),
		ent(classifier.LabelPhone),
	})
	assert.Equal(t, 15, a.Score)
	assert.Equal(t, BucketMedium, a.Bucket)
	assert.False(t, a.Critical)
}

func TestScoreDiminishingReturns(t *testing.T) {
	s := NewDefaultScorer()
	a := s.Score(context.Background(), []classifier.Entity{
		ent(classifier.LabelPhone),
		ent(classifier.LabelPhone),
		ent(classifier.LabelPhone),
		ent(classifier.LabelPhone),
	})
	// 10 + 5 + 1 + 1
	assert.Equal(t, 17, a.Score)
	assert.Equal(t, 4, a.Counts[classifier.LabelPhone])
}

func TestScoreIdentityContactBonus(t *testing.T) {
	s := NewDefaultScorer()

	a := s.Score(context.Background(), []classifier.Entity{
		ent(classifier.LabelPersonName),
		ent(classifier.LabelDOB),
		ent(classifier.LabelPhone),
	})
	// name 2 + dob 5 + phone 10, +25 identity-theft combo
	assert.Equal(t, 42, a.Score)
	assert.Equal(t, BucketMedium, a.Bucket)

	// a government ID plus a phone is floored, not combo-boosted: the
	// identity-theft pairing needs name and date of birth together
	a = s.Score(context.Background(), []classifier.Entity{
		ent(classifier.LabelPAN),
		ent(classifier.LabelPhone),
	})
	assert.Equal(t, 65, a.Score)
	assert.Equal(t, BucketHigh, a.Bucket)
}

func TestScoreFinancialNameBonus(t *testing.T) {
	s := NewDefaultScorer()
	a := s.Score(context.Background(), []classifier.Entity{
		ent(classifier.LabelBankAccount),
		ent(classifier.LabelPersonName),
	})
	// 30 + 2 + 20 combo, no critical floor for bank accounts
	assert.Equal(t, 52, a.Score)
	assert.False(t, a.Critical)
	assert.Contains(t, a.Compliance, ComplianceDPDP)
	assert.NotContains(t, a.Compliance, CompliancePCI) // PCI-DSS is card numbers only
}

func TestScoreCapsAtHundred(t *testing.T) {
	s := NewDefaultScorer()
	a := s.Score(context.Background(), []classifier.Entity{
		ent(classifier.LabelAadhaar),
		ent(classifier.LabelCreditCard),
		ent(classifier.LabelPassport),
		ent(classifier.LabelPhone),
		ent(classifier.LabelPersonName),
	})
	assert.Equal(t, 100, a.Score)
	assert.Equal(t, BucketCritical, a.Bucket)
}

func TestScoreIgnoresPlaceholders(t *testing.T) {
	s := NewDefaultScorer()
	a := s.Score(context.Background(), []classifier.Entity{
		placeholder(classifier.LabelEmail),
		placeholder(classifier.LabelPersonName),
	})
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, BucketLow, a.Bucket)
	assert.Equal(t, 2, a.PlaceholderCount)
	assert.Empty(t, a.Counts)
}

func TestScoreHIPAAOnDemographicLabels(t *testing.T) {
	s := NewDefaultScorer()

	for _, label := range []string{
		classifier.LabelDOB,
		classifier.LabelPersonName,
		classifier.LabelAddress,
	} {
		a := s.Score(context.Background(), []classifier.Entity{ent(label)})
		assert.Contains(t, a.Compliance, ComplianceHIPAA, label)
	}

	a := s.Score(context.Background(), []classifier.Entity{ent(classifier.LabelEmail)})
	assert.NotContains(t, a.Compliance, ComplianceHIPAA)
}
