package mask

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrubd-io/scrubd/internal/classifier"
)

func mustMasker(t *testing.T, cfg Config) *Masker {
	t.Helper()
	m, err := NewMasker(cfg)
	require.NoError(t, err)
	return m
}

func longestDigitRun(s string) int {
	longest, run := 0, 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

func TestNewMaskerRejectsUnknownMode(t *testing.T) {
	_, err := NewMasker(Config{Mode: "rot13"})
	assert.Error(t, err)
}

func TestApplyFull(t *testing.T) {
	text := "Email jane@company.com or call 9876543210"
	entities := []classifier.Entity{
		{Label: classifier.LabelEmail, Value: "jane@company.com", Start: 6, End: 22},
		{Label: classifier.LabelPhone, Value: "9876543210", Start: 31, End: 41},
	}

	m := mustMasker(t, Config{Mode: ModeFull})
	got := m.Apply(context.Background(), text, entities)
	assert.Equal(t, "Email [REDACTED:EMAIL] or call [REDACTED:PHONE]", got)
}

func TestApplyPartial(t *testing.T) {
	tests := []struct {
		name  string
		label string
		value string
		want  string
	}{
		{"card keeps last four", classifier.LabelCreditCard, "4111 1111 1111 1111", "XXXX XXXX XXXX 1111"},
		{"aadhaar keeps last four", classifier.LabelAadhaar, "2341 2341 2346", "XXXX XXXX 2346"},
		{"phone keeps last three", classifier.LabelPhone, "9876543210", "XXXXXXX210"},
		{"email keeps domain", classifier.LabelEmail, "jane@company.com", "j***@company.com"},
		{"pan keeps tail", classifier.LabelPAN, "AFZPK7190K", "XXXXXX190K"},
		{"dob keeps year", classifier.LabelDOB, "12/08/1991", "XX/XX/1991"},
		{"ip keeps first octet", classifier.LabelIPAddress, "192.168.1.1", "192.x.x.x"},
		{"name keeps initial", classifier.LabelPersonName, "Priya Sharma", "P***"},
		{"name keeps full first rune", classifier.LabelPersonName, "Žofia Nováková", "Ž***"},
		{"email keeps full first rune", classifier.LabelEmail, "émile@company.com", "é***@company.com"},
	}

	m := mustMasker(t, Config{Mode: ModePartial})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities := []classifier.Entity{
				{Label: tt.label, Value: tt.value, Start: 0, End: len(tt.value)},
			}
			got := m.Apply(context.Background(), tt.value, entities)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyPartialIrreversible(t *testing.T) {
	for _, tt := range []struct {
		label string
		value string
	}{
		{classifier.LabelAadhaar, "234123412346"},
		{classifier.LabelCreditCard, "4111111111111111"},
		{classifier.LabelBankAccount, "123456789012345678"},
	} {
		m := mustMasker(t, Config{Mode: ModePartial})
		entities := []classifier.Entity{{Label: tt.label, Value: tt.value, Start: 0, End: len(tt.value)}}
		got := m.Apply(context.Background(), tt.value, entities)
		assert.Less(t, longestDigitRun(got), 12, "label %s leaked digits: %s", tt.label, got)
	}
}

func TestApplySynthetic(t *testing.T) {
	text := "Email jane@company.com or call 9876543210"
	entities := []classifier.Entity{
		{Label: classifier.LabelEmail, Value: "jane@company.com", Start: 6, End: 22},
		{Label: classifier.LabelPhone, Value: "9876543210", Start: 31, End: 41},
	}

	m := mustMasker(t, Config{Mode: ModeSynthetic})
	got := m.Apply(context.Background(), text, entities)

	assert.NotContains(t, got, "jane@company.com")
	assert.NotContains(t, got, "9876543210")
	assert.Contains(t, got, "[SYN-1]")
	assert.Contains(t, got, "[SYN-2]")

	// fresh masker, same input: identical output
	m2 := mustMasker(t, Config{Mode: ModeSynthetic})
	assert.Equal(t, got, m2.Apply(context.Background(), text, entities))
}

func TestSyntheticValuesAreFormatValid(t *testing.T) {
	card := syntheticValue(classifier.LabelCreditCard, 7)
	assert.True(t, classifier.LuhnValid(card), "synthetic card %s fails Luhn", card)

	aadhaar := syntheticValue(classifier.LabelAadhaar, 7)
	assert.True(t, classifier.VerhoeffValid(aadhaar), "synthetic aadhaar %s fails Verhoeff", aadhaar)
	assert.Len(t, aadhaar, 12)
}

func TestApplyMaskTypesFilter(t *testing.T) {
	text := "Email jane@company.com or call 9876543210"
	entities := []classifier.Entity{
		{Label: classifier.LabelEmail, Value: "jane@company.com", Start: 6, End: 22},
		{Label: classifier.LabelPhone, Value: "9876543210", Start: 31, End: 41},
	}

	m := mustMasker(t, Config{Mode: ModePartial, MaskTypes: []string{"email"}})
	got := m.Apply(context.Background(), text, entities)
	assert.Equal(t, "Email j***@company.com or call 9876543210", got)
}

func TestApplySkipsPlaceholders(t *testing.T) {
	text := "contact test@example.com"
	entities := []classifier.Entity{
		{Label: classifier.LabelEmail, Value: "test@example.com", Start: 8, End: 24, IsPlaceholder: true},
	}

	m := mustMasker(t, Config{Mode: ModeFull})
	assert.Equal(t, text, m.Apply(context.Background(), text, entities))

	m = mustMasker(t, Config{Mode: ModeFull, IncludePlaceholders: true})
	assert.Equal(t, "contact [REDACTED:EMAIL]", m.Apply(context.Background(), text, entities))
}
