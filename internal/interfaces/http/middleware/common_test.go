package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// okRouter echoes the stored request id on GET /test
func okRouter(mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw...)
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestCORSWithConfig(t *testing.T) {
	opsConsole := DefaultCORSConfig()
	opsConsole.AllowOrigins = []string{"https://ops.club19.example"}

	tests := []struct {
		name       string
		cfg        CORSConfig
		method     string
		origin     string
		wantStatus int
		wantOrigin string
		wantCreds  string
		wantMaxAge string
	}{
		{
			name:       "unknown origin gets no headers",
			cfg:        DefaultCORSConfig(),
			method:     http.MethodGet,
			origin:     "http://malicious.example",
			wantStatus: http.StatusOK,
		},
		{
			name:       "configured origin with credentials",
			cfg:        opsConsole,
			method:     http.MethodGet,
			origin:     "https://ops.club19.example",
			wantStatus: http.StatusOK,
			wantOrigin: "https://ops.club19.example",
			wantCreds:  "true",
			wantMaxAge: "43200",
		},
		{
			name:       "wildcard drops credentials",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true, MaxAge: time.Minute},
			method:     http.MethodGet,
			origin:     "https://anything.example",
			wantStatus: http.StatusOK,
			wantOrigin: "*",
			wantMaxAge: "60",
		},
		{
			name:       "preflight stops at the middleware",
			cfg:        DefaultCORSConfig(),
			method:     http.MethodOptions,
			origin:     "http://some-origin.example",
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := okRouter(CORSWithConfig(tt.cfg))
			router.OPTIONS("/test", func(c *gin.Context) { c.Status(http.StatusTeapot) })

			req := httptest.NewRequest(tt.method, "/test", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, tt.wantMaxAge, w.Header().Get("Access-Control-Max-Age"))
		})
	}
}

func TestRequestID(t *testing.T) {
	router := okRouter(RequestID())
	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		if header != "" {
			req.Header.Set(RequestIDHeader, header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := serve("")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String(), "handler sees the id it is answered with")

	assert.Equal(t, "req-123", serve("req-123").Header().Get(RequestIDHeader))

	oversized := strings.Repeat("x", MaxRequestIDLength+1)
	assert.Len(t, serve(oversized).Header().Get(RequestIDHeader), 36)
}

func TestSecure(t *testing.T) {
	router := gin.New()
	router.Use(Secure())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router.GET("/api/v1/sales", ok)
	router.GET("/swagger/index.html", ok)

	for path, wantCSP := range map[string]bool{
		"/api/v1/sales":       true,
		"/swagger/index.html": false,
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"), path)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"), path)
		assert.Equal(t, wantCSP, w.Header().Get("Content-Security-Policy") != "", path)
	}
}
