package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mdnaeem95/halaltech/internal/cache"
	"github.com/mdnaeem95/halaltech/internal/database/testutil"
)

func pingStatus(r *gin.Engine) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	return w.Code
}

func TestRateLimitMemoryStore(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(nil, 2, 100*time.Millisecond))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	require.Equal(t, http.StatusOK, pingStatus(r))
	require.Equal(t, http.StatusOK, pingStatus(r))
	require.Equal(t, http.StatusTooManyRequests, pingStatus(r))

	time.Sleep(120 * time.Millisecond)
	require.Equal(t, http.StatusOK, pingStatus(r))
}

func TestRateLimitCacheStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	r := gin.New()
	r.Use(RateLimit(NewCacheRateStore(cache.NewDatabaseStore(db)), 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	require.Equal(t, http.StatusOK, pingStatus(r))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitScopedStoreKeepsSeparateCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shared := NewMemoryRateStore()

	r := gin.New()
	r.Use(RateLimit(shared, 5, time.Minute))
	r.Use(RateLimit(ScopedRateStore(shared, "strict"), 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	require.Equal(t, http.StatusOK, pingStatus(r))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
}
