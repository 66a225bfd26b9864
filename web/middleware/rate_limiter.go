package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	RequestsPerMinute int           // Sustained requests per user per minute
	BurstSize         int           // Allow burst of N requests
	CleanupInterval   time.Duration // How often to drop idle users
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter manages rate limits per authenticated user
type UserRateLimiter struct {
	config   RateLimiterConfig
	limiters map[string]*userLimiter
	mu       sync.Mutex
	logger   *zap.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewUserRateLimiter creates a limiter and starts its cleanup routine.
func NewUserRateLimiter(config RateLimiterConfig, logger *zap.Logger) *UserRateLimiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 60
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 1
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := &UserRateLimiter{
		config:   config,
		limiters: make(map[string]*userLimiter),
		logger:   logger,
		stop:     make(chan struct{}),
	}
	go limiter.cleanupRoutine()
	return limiter
}

func (l *UserRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stop:
			return
		}
	}
}

// cleanup drops limiters idle for longer than one cleanup interval.
func (l *UserRateLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, ul := range l.limiters {
		if now.Sub(ul.lastSeen) > l.config.CleanupInterval {
			delete(l.limiters, id)
			removed++
		}
	}
	if removed > 0 {
		l.logger.Debug("Cleaned up rate limiter cache", zap.Int("removed", removed), zap.Int("active", len(l.limiters)))
	}
}

// Stop stops the cleanup routine
func (l *UserRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *UserRateLimiter) limiterFor(userID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ul, ok := l.limiters[userID]; ok {
		ul.lastSeen = time.Now()
		return ul.limiter
	}
	perSecond := rate.Limit(float64(l.config.RequestsPerMinute) / 60.0)
	ul := &userLimiter{limiter: rate.NewLimiter(perSecond, l.config.BurstSize), lastSeen: time.Now()}
	l.limiters[userID] = ul
	return ul.limiter
}

// Allow consumes one request for userID.
func (l *UserRateLimiter) Allow(userID string) bool {
	return l.limiterFor(userID).Allow()
}

// retryAfter is the whole number of seconds until one token refills.
func (l *UserRateLimiter) retryAfter() int {
	return max(int(math.Ceil(60.0/float64(l.config.RequestsPerMinute))), 1)
}

// RateLimitMiddleware limits requests per authenticated user. It must run
// after RequireAuth.
func RateLimitMiddleware(limiter *UserRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user not authenticated"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.config.RequestsPerMinute))

		if !limiter.Allow(userID) {
			retry := limiter.retryAfter()
			limiter.logger.Warn("Rate limit exceeded",
				zap.String("user_id", userID),
				zap.Int("requests_per_min", limiter.config.RequestsPerMinute))

			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retry,
			})
			return
		}

		c.Next()
	}
}
