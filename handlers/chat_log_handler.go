package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/intent-chatbot/middleware"
	"github.com/upb/intent-chatbot/models"
	"github.com/upb/intent-chatbot/repositories"
	"github.com/upb/intent-chatbot/services/audit"
	"github.com/upb/intent-chatbot/utils"
	"go.uber.org/zap"
)

const maxChatLogLimit = 500

// ChatLogsResponse is the body of GET /api/chat/logs
type ChatLogsResponse struct {
	Logs  []*models.ChatLog `json:"logs"`
	Count int               `json:"count"`
}

// ChatStatsResponse is the body of GET /api/chat/stats
type ChatStatsResponse struct {
	Outcomes map[models.ChatOutcome]int `json:"outcomes"`
	Audit    audit.Stats                `json:"audit"`
}

// AuditStats exposes the audit worker pool counters
type AuditStats interface {
	GetStats() audit.Stats
}

// ChatLogHandler serves the chat audit log
type ChatLogHandler struct {
	repo   repositories.ChatLogRepository
	stats  AuditStats
	logger *zap.Logger
}

// NewChatLogHandler creates a new ChatLogHandler
func NewChatLogHandler(repo repositories.ChatLogRepository, stats AuditStats, logger *zap.Logger) *ChatLogHandler {
	return &ChatLogHandler{
		repo:   repo,
		stats:  stats,
		logger: logger,
	}
}

// HandleListLogs handles GET /api/chat/logs
func (h *ChatLogHandler) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > maxChatLogLimit {
			_ = utils.WriteBadRequest(w, "Invalid limit", map[string]interface{}{
				"limit": "must be an integer between 1 and 500",
			})
			return
		}
		limit = parsed
	}

	logs, err := h.repo.ListRecent(ctx, limit)
	if err != nil {
		h.logger.Error("failed to list chat logs",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve chat logs")
		return
	}
	if logs == nil {
		logs = []*models.ChatLog{}
	}

	_ = utils.WriteOK(w, ChatLogsResponse{Logs: logs, Count: len(logs)})
}

// HandleGetLog handles GET /api/chat/logs/{id}
func (h *ChatLogHandler) HandleGetLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid chat log ID format", nil)
		return
	}

	log, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrChatLogNotFound) {
			_ = utils.WriteNotFound(w, "Chat log not found")
			return
		}
		h.logger.Error("failed to fetch chat log",
			zap.String("request_id", requestID),
			zap.String("chat_log_id", id.String()),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve chat log")
		return
	}

	_ = utils.WriteOK(w, log)
}

// HandleStats handles GET /api/chat/stats
func (h *ChatLogHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.repo.CountByOutcome(ctx)
	if err != nil {
		h.logger.Error("failed to count chat outcomes",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve chat statistics")
		return
	}

	resp := ChatStatsResponse{Outcomes: counts}
	if h.stats != nil {
		resp.Audit = h.stats.GetStats()
	}
	_ = utils.WriteOK(w, resp)
}
