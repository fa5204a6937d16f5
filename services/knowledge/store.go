// Package knowledge holds the curated intent dataset and its flattened
// utterance corpus.
package knowledge

import "strings"

// Record is one curated intent with its example utterances and canned response
type Record struct {
	Intent   string   `json:"intent" yaml:"intent"`
	Examples []string `json:"examples,omitempty" yaml:"examples,omitempty"`
	Response string   `json:"response" yaml:"response"`
}

// Store holds the records loaded at startup. It is never modified after
// construction and is safe for concurrent readers.
type Store struct {
	records []Record
	intents []string
}

// NewStore creates a Store over records, keeping their order
func NewStore(records []Record) *Store {
	seen := make(map[string]struct{}, len(records))
	intents := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Intent]; ok {
			continue
		}
		seen[r.Intent] = struct{}{}
		intents = append(intents, r.Intent)
	}

	return &Store{
		records: records,
		intents: intents,
	}
}

// Records returns the records in load order. Callers must not modify the slice.
func (s *Store) Records() []Record {
	return s.records
}

// Len returns the number of records
func (s *Store) Len() int {
	return len(s.records)
}

// Intents returns the distinct intents in first-seen order
func (s *Store) Intents() []string {
	out := make([]string, len(s.intents))
	copy(out, s.intents)
	return out
}

// Corpus is the flattened utterance list. Utterances[i] belongs to
// IntentLabels[i] and to row i of the embedding matrix.
type Corpus struct {
	Utterances   []string
	IntentLabels []string
}

// Len returns the number of corpus entries
func (c Corpus) Len() int {
	return len(c.Utterances)
}

// Flatten expands every record's examples into one entry per utterance,
// preserving record order and then example order. Records without examples
// contribute nothing.
func Flatten(records []Record) Corpus {
	var corpus Corpus
	for _, r := range records {
		for _, example := range r.Examples {
			corpus.Utterances = append(corpus.Utterances, strings.TrimSpace(example))
			corpus.IntentLabels = append(corpus.IntentLabels, r.Intent)
		}
	}
	return corpus
}
