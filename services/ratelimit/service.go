// Package ratelimit throttles chat requests per caller with token buckets
// held in memory.
package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the per-caller limits
type Config struct {
	RequestsPerMinute int
	Burst             int
	// IdleTTL is how long an unused caller bucket is kept
	IdleTTL time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		Burst:             10,
		IdleTTL:           10 * time.Minute,
	}
}

// Result is the outcome of a limit check
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Service keeps one token bucket per caller key
type Service struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewService creates a rate limit Service. A non-positive RequestsPerMinute
// yields a Service that allows everything.
func NewService(config Config, logger *zap.Logger) *Service {
	if config.Burst <= 0 {
		config.Burst = DefaultConfig().Burst
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultConfig().IdleTTL
	}

	limit := rate.Inf
	if config.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(config.RequestsPerMinute) / 60)
	}

	return &Service{
		limit:   limit,
		burst:   config.Burst,
		idleTTL: config.IdleTTL,
		logger:  logger,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Enabled reports whether any limit is applied
func (s *Service) Enabled() bool {
	return s.limit != rate.Inf
}

// CheckLimit consumes one token from key's bucket when available
func (s *Service) CheckLimit(key string) Result {
	if !s.Enabled() {
		return Result{Allowed: true}
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now)

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now

	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return Result{Allowed: false, RetryAfter: s.idleTTL}
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		s.logger.Debug("rate limit exceeded",
			zap.String("key", key),
			zap.Duration("retry_after", delay))
		return Result{Allowed: false, RetryAfter: delay}
	}

	return Result{Allowed: true}
}

// Len returns the number of tracked callers
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// sweep drops buckets idle for longer than idleTTL, at most once per idleTTL.
// The caller holds s.mu.
func (s *Service) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.idleTTL {
		return
	}
	s.lastSweep = now

	removed := 0
	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) > s.idleTTL {
			delete(s.buckets, key)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("removed idle rate limit buckets",
			zap.Int("removed", removed),
			zap.Int("remaining", len(s.buckets)))
	}
}
