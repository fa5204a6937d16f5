// Package retrieval turns a free-text query into the set of intents whose
// example utterances lie within a distance threshold of it.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/upb/intent-chatbot/services/embedding"
	"github.com/upb/intent-chatbot/services/index"
	"go.uber.org/zap"
)

const (
	DefaultTopK      = 5
	DefaultThreshold = 0.5
)

// IntentSet is a deduplicated set of matched intents
type IntentSet map[string]struct{}

// NewIntentSet builds a set from intents
func NewIntentSet(intents ...string) IntentSet {
	set := make(IntentSet, len(intents))
	for _, intent := range intents {
		set[intent] = struct{}{}
	}
	return set
}

// Has reports membership
func (s IntentSet) Has(intent string) bool {
	_, ok := s[intent]
	return ok
}

// Len returns the number of distinct intents
func (s IntentSet) Len() int {
	return len(s)
}

// Sorted returns the intents in lexical order
func (s IntentSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for intent := range s {
		out = append(out, intent)
	}
	sort.Strings(out)
	return out
}

// Searcher is the nearest-neighbor capability the retriever needs
type Searcher interface {
	Search(query []float32, k int) ([]index.Neighbor, error)
	Len() int
}

// Retriever resolves queries to intents. It holds only read-only state and
// may be shared across goroutines.
type Retriever struct {
	embedder     embedding.Embedder
	index        Searcher
	intentLabels []string
	logger       *zap.Logger
}

// NewRetriever wires an embedder and index whose row i is labelled intentLabels[i]
func NewRetriever(embedder embedding.Embedder, idx Searcher, intentLabels []string, logger *zap.Logger) (*Retriever, error) {
	if idx.Len() != len(intentLabels) {
		return nil, fmt.Errorf("index has %d rows but %d intent labels", idx.Len(), len(intentLabels))
	}
	return &Retriever{
		embedder:     embedder,
		index:        idx,
		intentLabels: intentLabels,
		logger:       logger,
	}, nil
}

// SearchTopIntents embeds query, takes its k nearest utterances and keeps the
// intents of those strictly closer than threshold. An empty set is a normal
// outcome, not an error.
func (r *Retriever) SearchTopIntents(ctx context.Context, query string, k int, threshold float64) (IntentSet, error) {
	matched := IntentSet{}
	if k <= 0 {
		return matched, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	neighbors, err := r.index.Search(vectors[0], k)
	if err != nil {
		return nil, err
	}

	for _, n := range neighbors {
		if float64(n.Distance) < threshold {
			matched[r.intentLabels[n.Index]] = struct{}{}
		}
	}

	r.logger.Debug("intent search completed",
		zap.Int("k", k),
		zap.Float64("threshold", threshold),
		zap.Int("neighbors", len(neighbors)),
		zap.Strings("intents", matched.Sorted()))

	return matched, nil
}
