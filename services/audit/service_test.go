package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/intent-chatbot/models"
	"go.uber.org/zap"
)

// MockChatLogRepository is a mock implementation of ChatLogRepository
type MockChatLogRepository struct {
	mock.Mock
	mu           sync.Mutex
	insertedLogs []*models.ChatLog
}

func (m *MockChatLogRepository) Insert(ctx context.Context, log *models.ChatLog) error {
	args := m.Called(ctx, log)

	m.mu.Lock()
	defer m.mu.Unlock()
	if args.Error(0) == nil {
		m.insertedLogs = append(m.insertedLogs, log)
	}
	return args.Error(0)
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

func (m *MockChatLogRepository) GetInsertedLogs() []*models.ChatLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ChatLog, len(m.insertedLogs))
	copy(out, m.insertedLogs)
	return out
}

func TestService_StartStop(t *testing.T) {
	mockRepo := new(MockChatLogRepository)
	service := NewService(mockRepo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 2})

	require.NoError(t, service.Start())

	stats := service.GetStats()
	assert.True(t, stats.Started)
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, 10, stats.BufferSize)

	// Cannot start again
	assert.Error(t, service.Start())

	require.NoError(t, service.Stop(5*time.Second))
	assert.False(t, service.GetStats().Started)

	// Second stop reports not started
	assert.ErrorIs(t, service.Stop(time.Second), ErrNotStarted)
}

func TestService_DefaultsForInvalidConfig(t *testing.T) {
	service := NewService(new(MockChatLogRepository), zap.NewNop(), Config{})

	stats := service.GetStats()
	assert.Equal(t, DefaultConfig().BufferSize, stats.BufferSize)
	assert.Equal(t, DefaultConfig().WorkerCount, stats.WorkerCount)
}

func TestService_LogChat(t *testing.T) {
	mockRepo := new(MockChatLogRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewService(mockRepo, zap.NewNop(), Config{BufferSize: 100, WorkerCount: 2})
	require.NoError(t, service.Start())

	log := models.NewChatLog("req-1", "hello").
		WithRetrieval(5, 0.5, []string{"greeting"}).
		WithAnswer("Hi!", false, false)

	require.NoError(t, service.LogChat(log))

	// Stop drains the buffer before returning
	require.NoError(t, service.Stop(5*time.Second))

	inserted := mockRepo.GetInsertedLogs()
	require.Len(t, inserted, 1)
	assert.Equal(t, log.ID, inserted[0].ID)
	assert.Equal(t, models.ChatOutcomeAnswered, inserted[0].Outcome)
	assert.Equal(t, int64(1), service.GetStats().Processed)
}

func TestService_LogChat_NotStarted(t *testing.T) {
	service := NewService(new(MockChatLogRepository), zap.NewNop(), DefaultConfig())

	err := service.LogChat(models.NewChatLog("req-1", "hello"))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestService_LogChat_AfterStop(t *testing.T) {
	service := NewService(new(MockChatLogRepository), zap.NewNop(), DefaultConfig())
	require.NoError(t, service.Start())
	require.NoError(t, service.Stop(time.Second))

	err := service.LogChat(models.NewChatLog("req-1", "hello"))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestService_BufferFull(t *testing.T) {
	mockRepo := new(MockChatLogRepository)
	release := make(chan time.Time)
	mockRepo.On("Insert", mock.Anything, mock.Anything).
		WaitUntil(release).
		Return(nil)

	service := NewService(mockRepo, zap.NewNop(), Config{BufferSize: 1, WorkerCount: 1})
	require.NoError(t, service.Start())

	// The single worker blocks on the first entry, the second fills the buffer
	require.NoError(t, service.LogChat(models.NewChatLog("req-1", "a")))
	require.Eventually(t, func() bool {
		return service.GetStats().PendingEvents == 0
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, service.LogChat(models.NewChatLog("req-2", "b")))

	err := service.LogChat(models.NewChatLog("req-3", "c"))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, int64(1), service.GetStats().Dropped)

	close(release)
	require.NoError(t, service.Stop(5*time.Second))
	assert.Len(t, mockRepo.GetInsertedLogs(), 2)
}

func TestService_RepositoryFailure(t *testing.T) {
	mockRepo := new(MockChatLogRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("database unavailable"))

	service := NewService(mockRepo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, service.Start())

	require.NoError(t, service.LogChat(models.NewChatLog("req-1", "hello")))
	require.NoError(t, service.Stop(5*time.Second))

	stats := service.GetStats()
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(0), stats.Processed)
	assert.Empty(t, mockRepo.GetInsertedLogs())
}

func TestService_ConcurrentLogging(t *testing.T) {
	mockRepo := new(MockChatLogRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewService(mockRepo, zap.NewNop(), Config{BufferSize: 1000, WorkerCount: 5})
	require.NoError(t, service.Start())

	goroutineCount := 10
	eventsPerGoroutine := 10
	var wg sync.WaitGroup

	for i := 0; i < goroutineCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				_ = service.LogChat(models.NewChatLog("req", "hello"))
			}
		}()
	}

	wg.Wait()
	require.NoError(t, service.Stop(5*time.Second))

	assert.Len(t, mockRepo.GetInsertedLogs(), goroutineCount*eventsPerGoroutine)
}
