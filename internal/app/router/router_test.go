package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	authadapters "stock_watchlist/internal/feature/auth/adapters"
	authentity "stock_watchlist/internal/feature/auth/domain/entity"
	authhandler "stock_watchlist/internal/feature/auth/transport/handler"
	authusecase "stock_watchlist/internal/feature/auth/usecase"
	quoteadapters "stock_watchlist/internal/feature/quotes/adapters"
	quoteentity "stock_watchlist/internal/feature/quotes/domain/entity"
	quotehandler "stock_watchlist/internal/feature/quotes/transport/handler"
	quoteusecase "stock_watchlist/internal/feature/quotes/usecase"
	watchlistadapters "stock_watchlist/internal/feature/watchlist/adapters"
	watchlisthandler "stock_watchlist/internal/feature/watchlist/transport/handler"
	watchlistusecase "stock_watchlist/internal/feature/watchlist/usecase"
	"stock_watchlist/internal/platform/http/handler"
	jwtmw "stock_watchlist/internal/platform/jwt"
	"stock_watchlist/internal/platform/metrics"
)

const testSecret = "router-test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubMarket struct{}

func (stubMarket) GetTimeSeries(_ context.Context, req quoteentity.Request) (*quoteentity.TimeSeries, error) {
	return &quoteentity.TimeSeries{Symbol: req.Symbol}, nil
}

// newTestRouter は実際のユースケースとSQLiteで組み立てたルーターを返します。
func newTestRouter(t *testing.T) (*gin.Engine, *quoteusecase.FetchQueue) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(append([]any{&authentity.User{}}, watchlistadapters.Models()...)...))

	reg := prometheus.NewRegistry()
	m := metrics.NewQueueMetrics()
	m.MustRegister(reg)

	cfg := quoteusecase.DefaultConfig()
	queue := quoteusecase.NewFetchQueue(stubMarket{}, quoteadapters.NewMemoryCache(cfg.TTL), cfg, quoteusecase.WithMetrics(m))

	authH := authhandler.NewAuthHandler(authusecase.NewAuthUsecase(
		authadapters.NewUserGorm(db), jwtmw.NewGenerator(testSecret, time.Hour)))
	quoteH := quotehandler.NewQuoteHandler(queue)
	watchlistH := watchlisthandler.NewWatchlistHandler(watchlistusecase.NewWatchlistUsecase(
		watchlistadapters.NewWatchlistRepository(db), queue))
	readiness := handler.NewReadiness(time.Second).Register("database", func(ctx context.Context) error {
		return sqlDB.PingContext(ctx)
	})

	return NewRouter(testSecret, authH, quoteH, watchlistH, readiness,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{})), queue
}

func request(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewRouter_PublicRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := request(r, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestNewRouter_UserRateLimit(t *testing.T) {
	t.Setenv("API_RATE_PER_SEC", "1")
	t.Setenv("API_RATE_BURST", "1")
	r, _ := newTestRouter(t)
	token, err := jwtmw.NewGenerator(testSecret, time.Hour).GenerateToken(1, "user@example.com")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/quotes/status", token, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r, http.MethodGet, "/quotes/status", token, nil).Code)
}

func TestNewRouter_ProtectedRoutesRequireToken(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/me", "/quotes/status", "/quotes/AAPL", "/watchlists"} {
		t.Run(path, func(t *testing.T) {
			w := request(r, http.MethodGet, path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestNewRouter_WatchlistRefreshFlow(t *testing.T) {
	r, queue := newTestRouter(t)
	creds := gin.H{"email": "user@example.com", "password": "password123"}

	w := request(r, http.MethodPost, "/signup", "", creds)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = request(r, http.MethodPost, "/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	w = request(r, http.MethodGet, "/me", login.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodPost, "/watchlists", login.Token, gin.H{"name": "tech"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	for _, s := range []string{"aapl", "msft"} {
		w = request(r, http.MethodPost, "/watchlists/"+strconv.FormatUint(uint64(created.ID), 10)+"/items", login.Token, gin.H{"symbol": s})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = request(r, http.MethodPost, "/watchlists/"+strconv.FormatUint(uint64(created.ID), 10)+"/refresh", login.Token, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.JSONEq(t, `{"symbols":["AAPL","MSFT"],"queued":2}`, w.Body.String())
	assert.Equal(t, 2, queue.Len())

	w = request(r, http.MethodGet, "/quotes/status", login.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"queue_length":2`)

	w = request(r, http.MethodGet, "/quotes/AAPL", login.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"pending"`)
}

func TestNewRouter_CORS(t *testing.T) {
	t.Setenv(EnvKeyCORSOrigins, "https://app.example.com, https://admin.example.com")
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/watchlists", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsOrigins(t *testing.T) {
	t.Setenv(EnvKeyCORSOrigins, "")
	assert.Empty(t, corsOrigins())

	t.Setenv(EnvKeyCORSOrigins, " a ,,b ")
	assert.Equal(t, []string{"a", "b"}, corsOrigins())
}
