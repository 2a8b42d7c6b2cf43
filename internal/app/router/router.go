package router

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	authhandler "stock_watchlist/internal/feature/auth/transport/handler"
	quotehandler "stock_watchlist/internal/feature/quotes/transport/handler"
	watchlisthandler "stock_watchlist/internal/feature/watchlist/transport/handler"
	"stock_watchlist/internal/platform/http/handler"
	"stock_watchlist/internal/platform/http/middleware"
	jwtmw "stock_watchlist/internal/platform/jwt"
)

// EnvKeyCORSOrigins はCORSを許可するオリジン（カンマ区切り）の環境変数です。
const EnvKeyCORSOrigins = "CORS_ALLOW_ORIGINS"

func NewRouter(jwtSecret string, authHandler *authhandler.AuthHandler, quotes *quotehandler.QuoteHandler,
	watchlists *watchlisthandler.WatchlistHandler, readiness *handler.Readiness, metrics http.Handler) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.RequestID())

	// スマホアプリからは不要なので、環境変数が設定された場合のみ有効
	if origins := corsOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.GET("/readyz", readiness.Ready)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
	// 新規ユーザー登録
	r.POST("/signup", authHandler.Signup)
	// ログイン（JWT 発行）
	r.POST("/login", authHandler.Login)

	// 認証必須のルート
	// r.Group("/") でルートグループを作成
	auth := r.Group("/")
	// jwtmw.AuthRequired() ミドルウェアを適用
	// → リクエストヘッダーに JWT が必要になる
	auth.Use(jwtmw.AuthRequired(jwtSecret))
	// ユーザーごとのリクエスト制限（API_RATE_PER_SEC=0 で無効）
	auth.Use(middleware.NewUserRateLimiter(middleware.LoadUserRateLimitConfig()).Middleware())
	{
		auth.GET("/me", authHandler.Me)

		// 株価取得キュー
		auth.GET("/quotes/status", quotes.Status)
		auth.GET("/quotes/stream", quotes.Stream)
		auth.POST("/quotes/:symbol", quotes.Enqueue)
		auth.GET("/quotes/:symbol", quotes.Get)

		// ウォッチリスト
		auth.GET("/watchlists", watchlists.List)
		auth.POST("/watchlists", watchlists.Create)
		auth.GET("/watchlists/:id", watchlists.Get)
		auth.DELETE("/watchlists/:id", watchlists.Delete)
		auth.POST("/watchlists/:id/items", watchlists.AddItem)
		auth.PATCH("/watchlists/:id/items/:symbol", watchlists.UpdateItem)
		auth.DELETE("/watchlists/:id/items/:symbol", watchlists.RemoveItem)
		auth.POST("/watchlists/:id/refresh", watchlists.Refresh)
	}

	return r
}

func corsOrigins() []string {
	var out []string
	for _, o := range strings.Split(os.Getenv(EnvKeyCORSOrigins), ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
