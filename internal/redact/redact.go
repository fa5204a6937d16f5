// Package redact masks personal data in chat text before it is written to
// the audit log.
package redact

import (
	"regexp"
	"strings"
)

// Kind is a category of personal data
type Kind string

const (
	KindEmail      Kind = "email"
	KindCreditCard Kind = "credit_card"
	KindSSN        Kind = "ssn"
	KindIPAddress  Kind = "ip_address"
	KindPhone      Kind = "phone"
)

type rule struct {
	kind        Kind
	pattern     *regexp.Regexp
	replacement string
	accept      func(match string) bool
}

// Rules run in order. Replacement tokens contain no digits, so later rules
// never match inside an earlier replacement.
var rules = []rule{
	{
		kind:        KindEmail,
		pattern:     regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
		replacement: "[EMAIL_REDACTED]",
	},
	{
		kind:        KindCreditCard,
		pattern:     regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`),
		replacement: "[CC_REDACTED]",
		accept:      luhnValid,
	},
	{
		kind:        KindSSN,
		pattern:     regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		replacement: "[SSN_REDACTED]",
	},
	{
		kind:        KindIPAddress,
		pattern:     regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
		replacement: "[IP_REDACTED]",
	},
	{
		kind:        KindPhone,
		pattern:     regexp.MustCompile(`(?:\+\d{1,3}[-.\s]?)?\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		replacement: "[PHONE_REDACTED]",
	},
}

// Text returns s with every detected email, card number, SSN, IP address
// and phone number replaced by a fixed token
func Text(s string) string {
	for _, r := range rules {
		s = r.pattern.ReplaceAllStringFunc(s, func(match string) string {
			if r.accept != nil && !r.accept(match) {
				return match
			}
			return r.replacement
		})
	}
	return s
}

// Detect reports which kinds of personal data appear in s, in rule order
func Detect(s string) []Kind {
	var kinds []Kind
	for _, r := range rules {
		found := false
		s = r.pattern.ReplaceAllStringFunc(s, func(match string) string {
			if r.accept != nil && !r.accept(match) {
				return match
			}
			found = true
			return r.replacement
		})
		if found {
			kinds = append(kinds, r.kind)
		}
	}
	return kinds
}

// luhnValid checks a card number, ignoring spaces and dashes
func luhnValid(number string) bool {
	digits := strings.NewReplacer(" ", "", "-", "").Replace(number)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
