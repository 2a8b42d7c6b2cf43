// Package middleware はHTTPサーバー共通のginミドルウェアを提供します。
package middleware

import (
	"math"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	jwtmw "stock_watchlist/internal/platform/jwt"
)

// Default parameter values for UserRateLimiter.
const (
	DefaultRequestsPerSecond = 5
	DefaultBurst             = 10
	defaultIdleTTL           = 10 * time.Minute
)

// Environment keys for LoadUserRateLimitConfig.
const (
	EnvKeyRequestsPerSecond = "API_RATE_PER_SEC"
	EnvKeyBurst             = "API_RATE_BURST"
)

// UserRateLimitConfig はユーザーごとのリクエスト制限です。RequestsPerSecond が0以下なら無制限です。
type UserRateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LoadUserRateLimitConfig は環境変数から設定を読み込みます。
func LoadUserRateLimitConfig() UserRateLimitConfig {
	cfg := UserRateLimitConfig{RequestsPerSecond: DefaultRequestsPerSecond, Burst: DefaultBurst}
	if v, err := strconv.ParseFloat(os.Getenv(EnvKeyRequestsPerSecond), 64); err == nil {
		cfg.RequestsPerSecond = v
	}
	if v, err := strconv.Atoi(os.Getenv(EnvKeyBurst)); err == nil && v > 0 {
		cfg.Burst = v
	}
	return cfg
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter はJWTのユーザーIDごとにトークンバケットを持ちます。
// 上流APIのクォータとは別に、1ユーザーがキューを埋め尽くすのを防ぎます。
type UserRateLimiter struct {
	cfg     UserRateLimitConfig
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	limiters  map[uint]*userLimiter
	lastSweep time.Time
}

// NewUserRateLimiter creates a new UserRateLimiter.
func NewUserRateLimiter(cfg UserRateLimitConfig) *UserRateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	return &UserRateLimiter{
		cfg:      cfg,
		idleTTL:  defaultIdleTTL,
		now:      time.Now,
		limiters: make(map[uint]*userLimiter),
	}
}

// Allow はユーザーのリクエストを許可するかと、拒否した場合の待ち時間を返します。
func (l *UserRateLimiter) Allow(userID uint) (bool, time.Duration) {
	if l.cfg.RequestsPerSecond <= 0 {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	ul, ok := l.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.limiters[userID] = ul
	}
	ul.lastSeen = now

	r := ul.limiter.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// sweep は一定時間使われていないリミッターを捨てます。l.mu を保持して呼ぶこと。
func (l *UserRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	for id, ul := range l.limiters {
		if now.Sub(ul.lastSeen) >= l.idleTTL {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

// Middleware は jwtmw.AuthRequired の後ろで使います。超過時は429を返します。
func (l *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := jwtmw.UserID(c)
		if !ok {
			c.Next()
			return
		}
		if allowed, wait := l.Allow(userID); !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
