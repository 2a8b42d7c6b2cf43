// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Health は /healthz（liveness）を処理します。キャッシュを防止します。
func Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Checker は依存先の疎通確認です。nilを返せば正常とみなします。
type Checker func(ctx context.Context) error

// Readiness は /readyz を処理し、登録された依存先をすべて確認します。
type Readiness struct {
	checks  map[string]Checker
	timeout time.Duration
}

// NewReadiness はReadinessを生成します。timeoutが0以下なら2秒を使います。
func NewReadiness(timeout time.Duration) *Readiness {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Readiness{checks: make(map[string]Checker), timeout: timeout}
}

// Register は名前付きの確認処理を追加します。
func (r *Readiness) Register(name string, check Checker) *Readiness {
	r.checks[name] = check
	return r
}

// Ready は全ての依存先が正常なら200、1つでも失敗すれば503を返します。
func (r *Readiness) Ready(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	ctx, cancel := context.WithTimeout(c.Request.Context(), r.timeout)
	defer cancel()

	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(gin.H, len(names))
	for _, name := range names {
		if err := r.checks[name](ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := gin.H{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "unavailable"
	}
	c.JSON(status, body)
}
