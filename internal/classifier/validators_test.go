package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuhnValid(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{"valid visa test number", "4111111111111111", true},
		{"single digit changed", "4111111111111112", false},
		{"valid mastercard", "5555555555554444", true},
		{"valid amex", "378282246310005", true},
		{"too short", "4", false},
		{"non-digit", "4111a11111111111", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, luhnValid(tt.number))
		})
	}
}

func TestVerhoeffValid(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{"valid check digit", "234123412346", true},
		{"last digit changed", "234123412345", false},
		{"first digit changed", "334123412346", false},
		{"too short", "6", false},
		{"non-digit", "23412341234x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verhoeffValid(tt.number))
		})
	}
}

func TestPanValid(t *testing.T) {
	assert.True(t, panValid("AFZPK7190K"))  // P = person
	assert.True(t, panValid("AAACR5055K"))  // C = company
	assert.False(t, panValid("ABCDE1234F")) // D is not a holder type
	assert.False(t, panValid("AFZPK719"))
}

func TestPassportValid(t *testing.T) {
	assert.True(t, passportValid("J8369854"))
	assert.False(t, passportValid("J0369854")) // leading zero never issued
	assert.False(t, passportValid("J83698"))
}

func TestBankAccountValid(t *testing.T) {
	assert.True(t, bankAccountValid("123456789"))
	assert.True(t, bankAccountValid("123456789012345678"))
	assert.False(t, bankAccountValid("12345678"))
	assert.False(t, bankAccountValid("1234567890123456789"))
	assert.False(t, bankAccountValid("12345678901a"))
}

func TestDOBValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"plain date", "12/08/1991", true},
		{"dash separated", "1-1-1990", true},
		{"leap day", "29/02/2000", true},
		{"non-leap february", "29/02/1999", false},
		{"impossible day", "31/02/1990", false},
		{"year too old", "12/08/1899", false},
		{"future year", "12/08/2999", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dobValid(tt.in))
		})
	}
}

func TestIPv4Valid(t *testing.T) {
	assert.True(t, ipv4Valid("192.168.1.1"))
	assert.True(t, ipv4Valid("255.255.255.255"))
	assert.False(t, ipv4Valid("256.1.1.1"))
	assert.False(t, ipv4Valid("1.2.3"))
}

func TestIFSCNearby(t *testing.T) {
	text := "a/c 123456789012 IFSC: HDFC0123456"
	assert.True(t, IFSCNearby(text, 4, 16))

	far := "123456789012" + "                                                  " + "HDFC0123456"
	assert.False(t, IFSCNearby(far, 0, 12))
}
