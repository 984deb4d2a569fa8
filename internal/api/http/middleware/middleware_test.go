package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())

	var fromCtx, fromGin string
	r.GET("/", func(c *gin.Context) {
		fromCtx = logging.RequestID(c.Request.Context())
		fromGin = c.GetString("request_id")
		c.Status(http.StatusNoContent)
	})

	t.Run("keeps the caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", " abc-123 ")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))
		assert.Equal(t, "abc-123", fromCtx)
		assert.Equal(t, "abc-123", fromGin)
	})

	t.Run("generates one", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		rid := w.Header().Get("X-Request-Id")
		assert.Len(t, rid, 36)
		assert.Equal(t, rid, fromCtx)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(limiter *rate.Limiter) []int {
		r := gin.New()
		r.POST("/upload", middleware.RateLimitMiddleware(limiter), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		codes := make([]int, 3)
		for i := range codes {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", nil))
			codes[i] = w.Code
		}
		return codes
	}

	assert.Equal(t, []int{200, 200, 429}, serve(rate.NewLimiter(rate.Limit(0.001), 2)))
	assert.Equal(t, []int{200, 200, 200}, serve(nil))
}
