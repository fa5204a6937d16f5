package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/intent-chatbot/models"
	"github.com/upb/intent-chatbot/repositories"
	"github.com/upb/intent-chatbot/services/audit"
	"go.uber.org/zap"
)

// MockChatLogRepository is a mock implementation of ChatLogRepository
type MockChatLogRepository struct {
	mock.Mock
}

func (m *MockChatLogRepository) Insert(ctx context.Context, log *models.ChatLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockChatLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatLog, error) {
	args := m.Called(ctx, id)
	if log := args.Get(0); log != nil {
		return log.(*models.ChatLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.ChatLog, error) {
	args := m.Called(ctx, limit)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.ChatLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatLogRepository) CountByOutcome(ctx context.Context) (map[models.ChatOutcome]int, error) {
	args := m.Called(ctx)
	if counts := args.Get(0); counts != nil {
		return counts.(map[models.ChatOutcome]int), args.Error(1)
	}
	return nil, args.Error(1)
}

type fixedStats audit.Stats

func (f fixedStats) GetStats() audit.Stats { return audit.Stats(f) }

func TestChatLogHandler_HandleListLogs(t *testing.T) {
	entry := models.NewChatLog("req-1", "hello").WithAnswer("Hi!", false, false)

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockChatLogRepository)
		expectedStatus int
		expectedCount  int
	}{
		{
			name:  "default limit",
			query: "",
			setupMock: func(m *MockChatLogRepository) {
				m.On("ListRecent", mock.Anything, 0).Return([]*models.ChatLog{entry}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedCount:  1,
		},
		{
			name:  "explicit limit",
			query: "?limit=10",
			setupMock: func(m *MockChatLogRepository) {
				m.On("ListRecent", mock.Anything, 10).Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedCount:  0,
		},
		{
			name:           "non numeric limit",
			query:          "?limit=abc",
			setupMock:      func(m *MockChatLogRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "limit too large",
			query:          "?limit=501",
			setupMock:      func(m *MockChatLogRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "repository failure",
			query: "",
			setupMock: func(m *MockChatLogRepository) {
				m.On("ListRecent", mock.Anything, 0).Return(nil, errors.New("connection refused"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockChatLogRepository)
			tt.setupMock(repo)
			handler := NewChatLogHandler(repo, nil, zap.NewNop())

			req := httptest.NewRequest(http.MethodGet, "/api/chat/logs"+tt.query, nil)
			rr := httptest.NewRecorder()
			handler.HandleListLogs(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp ChatLogsResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedCount, resp.Count)
				assert.Len(t, resp.Logs, tt.expectedCount)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestChatLogHandler_HandleGetLog(t *testing.T) {
	existing := models.NewChatLog("req-1", "hello")
	missing := uuid.New()

	tests := []struct {
		name           string
		id             string
		setupMock      func(*MockChatLogRepository)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "found",
			id:   existing.ID.String(),
			setupMock: func(m *MockChatLogRepository) {
				m.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found",
			id:   missing.String(),
			setupMock: func(m *MockChatLogRepository) {
				m.On("GetByID", mock.Anything, missing).
					Return(nil, fmt.Errorf("%w: %s", repositories.ErrChatLogNotFound, missing))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"Chat log not found","code":"not_found"}`,
		},
		{
			name:           "invalid id",
			id:             "not-a-uuid",
			setupMock:      func(m *MockChatLogRepository) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Invalid chat log ID format"}`,
		},
		{
			name: "repository failure",
			id:   missing.String(),
			setupMock: func(m *MockChatLogRepository) {
				m.On("GetByID", mock.Anything, missing).Return(nil, errors.New("timeout"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"Failed to retrieve chat log","code":"internal_error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockChatLogRepository)
			tt.setupMock(repo)
			handler := NewChatLogHandler(repo, nil, zap.NewNop())

			r := chi.NewRouter()
			r.Get("/api/chat/logs/{id}", handler.HandleGetLog)

			req := httptest.NewRequest(http.MethodGet, "/api/chat/logs/"+tt.id, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestChatLogHandler_HandleStats(t *testing.T) {
	t.Run("outcomes and audit counters", func(t *testing.T) {
		repo := new(MockChatLogRepository)
		repo.On("CountByOutcome", mock.Anything).Return(map[models.ChatOutcome]int{
			models.ChatOutcomeAnswered: 7,
			models.ChatOutcomeFallback: 2,
		}, nil)
		stats := fixedStats{BufferSize: 1000, WorkerCount: 2, Started: true, Processed: 9}
		handler := NewChatLogHandler(repo, stats, zap.NewNop())

		rr := httptest.NewRecorder()
		handler.HandleStats(rr, httptest.NewRequest(http.MethodGet, "/api/chat/stats", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp ChatStatsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 7, resp.Outcomes[models.ChatOutcomeAnswered])
		assert.Equal(t, 2, resp.Outcomes[models.ChatOutcomeFallback])
		assert.Equal(t, int64(9), resp.Audit.Processed)
		assert.True(t, resp.Audit.Started)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := new(MockChatLogRepository)
		repo.On("CountByOutcome", mock.Anything).Return(nil, errors.New("timeout"))
		handler := NewChatLogHandler(repo, nil, zap.NewNop())

		rr := httptest.NewRecorder()
		handler.HandleStats(rr, httptest.NewRequest(http.MethodGet, "/api/chat/stats", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
