package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/intent-chatbot/models"
	"github.com/upb/intent-chatbot/repositories"
	"go.uber.org/zap"
)

const chatLogColumns = `id, request_id, query, intents, answer, outcome, detail_hint,
	top_k, threshold, provider, latency_ms, error_type, error_message, timestamp`

// ChatLogRepository implements the repositories.ChatLogRepository interface
type ChatLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewChatLogRepository creates a new chat log repository
func NewChatLogRepository(db *DB, logger *zap.Logger) repositories.ChatLogRepository {
	return &ChatLogRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new chat log entry
func (r *ChatLogRepository) Insert(ctx context.Context, log *models.ChatLog) error {
	query := `
		INSERT INTO chat_logs (` + chatLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.RequestID,
		log.Query,
		pq.Array(log.Intents),
		log.Answer,
		log.Outcome,
		log.DetailHint,
		log.TopK,
		log.Threshold,
		log.Provider,
		log.LatencyMs,
		log.ErrorType,
		log.ErrorMessage,
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat log: %w", err)
	}

	r.logger.Debug("chat log inserted", zap.String("id", log.ID.String()), zap.String("outcome", string(log.Outcome)))
	return nil
}

// GetByID retrieves a chat log by ID
func (r *ChatLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatLog, error) {
	query := `SELECT ` + chatLogColumns + ` FROM chat_logs WHERE id = $1`

	log, err := scanChatLog(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repositories.ErrChatLogNotFound, id)
		}
		return nil, fmt.Errorf("failed to get chat log: %w", err)
	}

	return log, nil
}

// ListRecent returns up to limit chat logs, newest first
func (r *ChatLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.ChatLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + chatLogColumns + ` FROM chat_logs ORDER BY timestamp DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ChatLog
	for rows.Next() {
		log, err := scanChatLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat logs: %w", err)
	}

	return logs, nil
}

// CountByOutcome returns how many exchanges ended with each outcome
func (r *ChatLogRepository) CountByOutcome(ctx context.Context) (map[models.ChatOutcome]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM chat_logs GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count chat logs: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ChatOutcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts[models.ChatOutcome(outcome)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcome counts: %w", err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChatLog(row rowScanner) (*models.ChatLog, error) {
	log := &models.ChatLog{}
	var (
		intents   pq.StringArray
		requestID sql.NullString
		answer    sql.NullString
		outcome   string
	)

	err := row.Scan(
		&log.ID,
		&requestID,
		&log.Query,
		&intents,
		&answer,
		&outcome,
		&log.DetailHint,
		&log.TopK,
		&log.Threshold,
		&log.Provider,
		&log.LatencyMs,
		&log.ErrorType,
		&log.ErrorMessage,
		&log.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	log.RequestID = requestID.String
	log.Answer = answer.String
	log.Outcome = models.ChatOutcome(outcome)
	log.Intents = []string(intents)
	if log.Intents == nil {
		log.Intents = []string{}
	}

	return log, nil
}
