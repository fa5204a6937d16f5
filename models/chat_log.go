package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatOutcome classifies how a chat exchange ended
type ChatOutcome string

const (
	ChatOutcomeAnswered ChatOutcome = "answered"
	ChatOutcomeFallback ChatOutcome = "fallback"
	ChatOutcomeFailed   ChatOutcome = "failed"
)

// ChatLog is one audited chat exchange
type ChatLog struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	RequestID    string      `json:"request_id" db:"request_id"`
	Query        string      `json:"query" db:"query"`
	Intents      []string    `json:"intents" db:"intents"`
	Answer       string      `json:"answer" db:"answer"`
	Outcome      ChatOutcome `json:"outcome" db:"outcome"`
	DetailHint   bool        `json:"detail_hint" db:"detail_hint"`
	TopK         int         `json:"top_k" db:"top_k"`
	Threshold    float64     `json:"threshold" db:"threshold"`
	Provider     *string     `json:"provider,omitempty" db:"provider"`
	LatencyMs    int         `json:"latency_ms" db:"latency_ms"`
	ErrorType    *string     `json:"error_type,omitempty" db:"error_type"`
	ErrorMessage *string     `json:"error_message,omitempty" db:"error_message"`
	Timestamp    time.Time   `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the ChatLog model
func (ChatLog) TableName() string {
	return "chat_logs"
}

// NewChatLog creates a new ChatLog for query
func NewChatLog(requestID, query string) *ChatLog {
	return &ChatLog{
		ID:        uuid.New(),
		RequestID: requestID,
		Query:     query,
		Intents:   []string{},
		Timestamp: time.Now().UTC(),
	}
}

// WithRetrieval records the retrieval parameters and matched intents
func (c *ChatLog) WithRetrieval(topK int, threshold float64, intents []string) *ChatLog {
	c.TopK = topK
	c.Threshold = threshold
	if intents != nil {
		c.Intents = intents
	}
	return c
}

// WithAnswer marks the exchange as answered or as a fallback
func (c *ChatLog) WithAnswer(answer string, fallback, detailHint bool) *ChatLog {
	c.Answer = answer
	c.DetailHint = detailHint
	c.Outcome = ChatOutcomeAnswered
	if fallback {
		c.Outcome = ChatOutcomeFallback
	}
	return c
}

// WithProvider sets the generation provider name
func (c *ChatLog) WithProvider(provider string) *ChatLog {
	if provider != "" {
		c.Provider = &provider
	}
	return c
}

// WithLatency sets the end-to-end latency
func (c *ChatLog) WithLatency(d time.Duration) *ChatLog {
	c.LatencyMs = int(d.Milliseconds())
	return c
}

// WithError marks the exchange as failed
func (c *ChatLog) WithError(errorType, message string) *ChatLog {
	c.Outcome = ChatOutcomeFailed
	c.ErrorType = &errorType
	c.ErrorMessage = &message
	return c
}
