package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPlaceholderValue(t *testing.T) {
	tests := []struct {
		name  string
		label string
		value string
		want  bool
	}{
		{"documentation email domain", LabelEmail, "test@example.com", true},
		{"noreply mailbox", LabelEmail, "noreply@acme.in", true},
		{"real email", LabelEmail, "jane@company.com", false},
		{"john doe", LabelPersonName, "John Doe", true},
		{"real name", LabelPersonName, "Priya Sharma", false},
		{"repeated digits", LabelPhone, "9999999999", true},
		{"ascending run", LabelBankAccount, "1234567890", true},
		{"descending run is real", LabelPhone, "9876543210", false},
		{"masked digits", LabelCreditCard, "xxxx-xxxx-xxxx-1234", true},
		{"hash mask", LabelPhone, "98####3210", true},
		{"real card", LabelCreditCard, "4024 0071 5433 1218", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlaceholderValue(tt.label, tt.value))
		})
	}
}
