// Package grounding assembles the context block handed to the generator.
package grounding

import (
	"strings"

	"github.com/upb/intent-chatbot/services/knowledge"
)

// IntentMatcher reports whether an intent was matched for the current query
type IntentMatcher interface {
	Has(intent string) bool
	Len() int
}

// AssembleContext renders every record whose intent is matched, in record
// order, as "Intent: <intent>\nResponse: <response>" blocks separated by a
// blank line. Records sharing an intent are all included.
func AssembleContext(matched IntentMatcher, records []knowledge.Record) string {
	if matched == nil || matched.Len() == 0 {
		return ""
	}

	var b strings.Builder
	for _, r := range records {
		if !matched.Has(r.Intent) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Intent: ")
		b.WriteString(r.Intent)
		b.WriteString("\nResponse: ")
		b.WriteString(r.Response)
	}

	return b.String()
}
