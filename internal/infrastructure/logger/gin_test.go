package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestEngine(log *zap.Logger, quiet ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("request_id", "req-1")
		c.Next()
	})
	engine.Use(Recovery(log), GinMiddleware(log, quiet...))
	return engine
}

func serve(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestGinMiddleware_LevelsByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	engine := newTestEngine(zap.New(core))
	engine.GET("/sales/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	engine.GET("/broken", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	serve(engine, "/sales/abc")
	serve(engine, "/missing")
	serve(engine, "/broken")

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "/sales/:id", fields["route"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestGinMiddleware_QuietPathsLogAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	engine := newTestEngine(zap.New(core), "/health")
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(engine, "/health")
	assert.Zero(t, logs.Len())
}

func TestGinMiddleware_StoresRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	engine := newTestEngine(zap.New(core))
	engine.GET("/x", func(c *gin.Context) {
		FromContext(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusOK)
	})

	serve(engine, "/x")
	entries := logs.FilterMessage("inside handler").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	engine := newTestEngine(zap.New(core))
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(engine, "/panic")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"An internal error occurred","request_id":"req-1"}}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}
