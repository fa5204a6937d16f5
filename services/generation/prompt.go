package generation

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

const (
	// FallbackAnswer is returned verbatim when nothing in the knowledge base matches
	FallbackAnswer = "Sorry, I couldn't find any relevant information."

	// SystemDirective constrains the model to the supplied context
	SystemDirective = "You must only answer based on the provided context. If nothing is relevant, respond with: '" + FallbackAnswer + "'"

	// DetailDirective is appended when the user asks for elaboration
	DetailDirective = "The user wants more explanation. Give a more detailed response."

	DefaultCompany = "Expert Soft Solution"
)

var detailKeywords = []string{"explain", "detail", "describe", "how", "why"}

var (
	//go:embed prompt.tmpl
	promptTmplText string
	promptTmpl     = template.Must(template.New("prompt").Parse(promptTmplText))
)

// PromptData feeds prompt.tmpl
type PromptData struct {
	Company         string
	Context         string
	Query           string
	Detail          bool
	DetailDirective string
}

// NeedsDetail reports whether the query asks for elaboration. Matching is a
// case-insensitive substring test, so "however" also counts.
func NeedsDetail(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range detailKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// BuildPrompt renders the user prompt for one grounded generation call
func BuildPrompt(company, query, context string, detail bool) (string, error) {
	if company == "" {
		company = DefaultCompany
	}

	var out bytes.Buffer
	err := promptTmpl.Execute(&out, PromptData{
		Company:         company,
		Context:         context,
		Query:           query,
		Detail:          detail,
		DetailDirective: DetailDirective,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimRight(out.String(), "\n"), nil
}
