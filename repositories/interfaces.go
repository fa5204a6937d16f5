package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/intent-chatbot/models"
)

// ErrChatLogNotFound is returned when no chat log has the requested ID
var ErrChatLogNotFound = errors.New("chat log not found")

// ChatLogRepository persists audited chat exchanges
type ChatLogRepository interface {
	// Insert stores a new chat log entry
	Insert(ctx context.Context, log *models.ChatLog) error

	// GetByID retrieves a chat log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatLog, error)

	// ListRecent returns the newest entries first
	ListRecent(ctx context.Context, limit int) ([]*models.ChatLog, error)

	// CountByOutcome returns how many exchanges ended with each outcome
	CountByOutcome(ctx context.Context) (map[models.ChatOutcome]int, error)
}
