package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/intent-chatbot/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Index     *IndexStatus      `json:"index,omitempty"`
}

// IndexStatus describes the loaded knowledge base
type IndexStatus struct {
	Vectors   int `json:"vectors"`
	Dimension int `json:"dimension"`
	Records   int `json:"records"`
}

// IndexInfo reports the size of the vector index
type IndexInfo interface {
	Len() int
	Dimension() int
}

// RecordCounter reports the number of loaded knowledge records
type RecordCounter interface {
	Len() int
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db      *sql.DB
	index   IndexInfo
	records RecordCounter
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db is nil when the chat
// audit log is disabled.
func NewHealthHandler(db *sql.DB, index IndexInfo, records RecordCounter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		index:   index,
		records: records,
		logger:  logger,
	}
}

// HandleHealth handles GET /health
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /health/ready
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	status := &IndexStatus{}
	if h.index != nil {
		status.Vectors = h.index.Len()
		status.Dimension = h.index.Dimension()
	}
	if h.records != nil {
		status.Records = h.records.Len()
	}
	if status.Vectors == 0 {
		checks["index"] = "empty"
		allHealthy = false
	} else {
		checks["index"] = "healthy"
	}

	if h.db != nil {
		if err := h.checkDatabase(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			allHealthy = false
		} else {
			checks["database"] = "healthy"
		}
	}

	overall := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		overall = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Index:     status,
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return err
	}

	return nil
}
