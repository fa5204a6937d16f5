package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no personal data",
			input:    "how much does a mobile app cost",
			expected: "how much does a mobile app cost",
		},
		{
			name:     "email",
			input:    "Contact me at john.doe@example.com please",
			expected: "Contact me at [EMAIL_REDACTED] please",
		},
		{
			name:     "phone",
			input:    "Call me at 555-123-4567",
			expected: "Call me at [PHONE_REDACTED]",
		},
		{
			name:     "ssn",
			input:    "My SSN is 123-45-6789",
			expected: "My SSN is [SSN_REDACTED]",
		},
		{
			name:     "card number",
			input:    "Use card 4532015112830366",
			expected: "Use card [CC_REDACTED]",
		},
		{
			name:     "spaced card number",
			input:    "card 4532 0151 1283 0366 thanks",
			expected: "card [CC_REDACTED] thanks",
		},
		{
			name:     "digits failing the luhn check stay",
			input:    "order 1234567812345678",
			expected: "order 1234567812345678",
		},
		{
			name:     "ip address",
			input:    "Server at 192.168.1.1",
			expected: "Server at [IP_REDACTED]",
		},
		{
			name:     "mixed",
			input:    "mail a@b.io or call 555.123.4567",
			expected: "mail [EMAIL_REDACTED] or call [PHONE_REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Kind
	}{
		{name: "none", input: "hello there", expected: nil},
		{name: "email and ip", input: "user@test.com from 10.0.0.1", expected: []Kind{KindEmail, KindIPAddress}},
		{name: "ssn is not a phone", input: "123-45-6789", expected: []Kind{KindSSN}},
		{name: "two emails count once", input: "a@x.com b@y.com", expected: []Kind{KindEmail}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Detect(tt.input))
		})
	}
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, luhnValid("4532015112830366"))
	assert.True(t, luhnValid("4532-0151-1283-0366"))
	assert.False(t, luhnValid("4532015112830367"))
	assert.False(t, luhnValid("123456789012"))
}
