package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRecognizers(t *testing.T) {
	recs, err := DefaultRecognizers()
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	for _, r := range recs {
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.SupportedEntity)
		assert.NotEmpty(t, r.Patterns, "recognizer %s has no patterns", r.Name)
		assert.Contains(t, []int{1, 2, 3}, r.Sensitivity, "recognizer %s", r.Name)
		if r.Validator != "" {
			assert.True(t, knownValidator(r.Validator), "recognizer %s", r.Name)
		}
	}

	compiled, err := CompilePIIPatterns(recs)
	require.NoError(t, err)
	for _, p := range compiled {
		_, known := labelSensitivity[p.Label]
		assert.True(t, known, "pattern %s has unmapped label %s", p.Name, p.Label)
	}
}

func TestMergeRecognizersOverridesByName(t *testing.T) {
	defaults := []RecognizerConfig{
		{Name: "EmailRecognizer", SupportedEntity: "EMAIL_ADDRESS", Patterns: []PatternConfig{{Name: "a", Regex: "x", Score: 0.5}}},
		{Name: "PhoneRecognizer", SupportedEntity: "PHONE_NUMBER", Patterns: []PatternConfig{{Name: "b", Regex: "y", Score: 0.5}}},
	}
	overrides := []RecognizerConfig{
		{Name: "EmailRecognizer", SupportedEntity: "EMAIL_ADDRESS", Patterns: []PatternConfig{{Name: "a", Regex: "z", Score: 0.9}}},
		{Name: "CustomRecognizer", SupportedEntity: "CUSTOM_ID", Patterns: []PatternConfig{{Name: "c", Regex: "w", Score: 0.4}}},
	}

	merged := MergeRecognizers(toPtrSlice(defaults), toPtrSlice(overrides))
	require.Len(t, merged, 3)
	assert.Equal(t, 0.9, merged[0].Patterns[0].Score) // overridden in place
	assert.Equal(t, "CustomRecognizer", merged[2].Name)
}

func TestFilterByEntities(t *testing.T) {
	recs := []RecognizerConfig{
		{Name: "a", SupportedEntity: "EMAIL_ADDRESS"},
		{Name: "b", SupportedEntity: "PHONE_NUMBER"},
		{Name: "c", SupportedEntity: "AADHAAR"},
	}

	got := FilterByEntities(recs, []string{"EMAIL_ADDRESS", "AADHAAR"}, nil)
	require.Len(t, got, 2)

	got = FilterByEntities(recs, nil, []string{"PHONE_NUMBER"})
	require.Len(t, got, 2)

	got = FilterByEntities(recs, []string{"EMAIL_ADDRESS", "AADHAAR"}, []string{"AADHAAR"})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Name)
}

func TestCompilePIIPatternsErrors(t *testing.T) {
	_, err := CompilePIIPatterns([]RecognizerConfig{
		{Name: "bad", SupportedEntity: "EMAIL_ADDRESS", Patterns: []PatternConfig{{Name: "p", Regex: "[", Score: 0.5}}},
	})
	assert.Error(t, err)

	_, err = CompilePIIPatterns([]RecognizerConfig{
		{Name: "bad", SupportedEntity: "EMAIL_ADDRESS", Validator: "nonesuch", Patterns: []PatternConfig{{Name: "p", Regex: "x", Score: 0.5}}},
	})
	assert.Error(t, err)
}

func TestCompileSkipsDisabled(t *testing.T) {
	off := false
	got, err := CompilePIIPatterns([]RecognizerConfig{
		{Name: "off", SupportedEntity: "EMAIL_ADDRESS", Enabled: &off, Patterns: []PatternConfig{{Name: "p", Regex: "x", Score: 0.5}}},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}
