package rate

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Checker-Finance/refdata/internal/metrics"
)

// Config defines rate limiting parameters per API client.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// Limiter implements a token bucket rate limiter.
type Limiter struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
	rate   float64
	burst  float64
	now    func() time.Time
}

// New creates a limiter with a full bucket.
func New(cfg Config) *Limiter {
	return newLimiter(cfg, time.Now)
}

func newLimiter(cfg Config, now func() time.Time) *Limiter {
	return &Limiter{
		tokens: float64(cfg.Burst),
		last:   now(),
		rate:   cfg.RequestsPerSecond,
		burst:  float64(cfg.Burst),
		now:    now,
	}
}

func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	l.last = now
	if l.tokens > l.burst {
		l.tokens = l.burst
	}

	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Manager holds per-client limiters.
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	defaults Config
	now      func() time.Time
}

func NewManager(defaults Config) *Manager {
	return &Manager{
		limiters: make(map[string]*Limiter),
		defaults: defaults,
		now:      time.Now,
	}
}

func (m *Manager) GetLimiter(clientKey string) *Limiter {
	m.mu.RLock()
	if lim, ok := m.limiters[clientKey]; ok {
		m.mu.RUnlock()
		return lim
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if lim, ok := m.limiters[clientKey]; ok {
		return lim
	}
	lim := newLimiter(m.defaults, m.now)
	m.limiters[clientKey] = lim
	return lim
}

// Middleware rejects requests over the per-IP budget with 429.
// A non-positive rate disables limiting.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.defaults.RequestsPerSecond <= 0 {
			return c.Next()
		}
		if !m.GetLimiter(c.IP()).Allow() {
			metrics.IncError("api", "rate_limited")
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
