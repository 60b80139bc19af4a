package logger

import (
	"encoding/json"
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

func serveLogged(t *testing.T, level zapcore.Level, register func(*gin.Engine), req *http.Request) (*httptest.ResponseRecorder, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(level)
	engine := gin.New()
	engine.Use(RequestLogger(zap.New(core)))
	register(engine)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w, recorded
}

func TestRequestLogger(t *testing.T) {
	t.Run("logs request id and acting user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/recent", nil)
		req.Header.Set("X-Acting-User", "j.doe")

		_, recorded := serveLogged(t, zapcore.InfoLevel, func(e *gin.Engine) {
			e.Use(func(c *gin.Context) { c.Set("request_id", "req-42") })
			e.GET("/api/v1/invoices/recent", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{})
			})
		}, req)

		logs := recorded.FilterMessage("request").All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.InfoLevel, logs[0].Level)

		fields := logs[0].ContextMap()
		assert.Equal(t, "req-42", fields["request_id"])
		assert.Equal(t, "j.doe", fields["acting_user"])
		assert.Equal(t, int64(http.StatusOK), fields["status"])
	})

	t.Run("server errors log at error level", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/boom", nil)

		_, recorded := serveLogged(t, zapcore.InfoLevel, func(e *gin.Engine) {
			e.GET("/boom", func(c *gin.Context) {
				c.JSON(http.StatusInternalServerError, gin.H{})
			})
		}, req)

		logs := recorded.FilterMessage("request").All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})

	t.Run("client errors log at warn level", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/bad", nil)

		_, recorded := serveLogged(t, zapcore.InfoLevel, func(e *gin.Engine) {
			e.GET("/bad", func(c *gin.Context) {
				c.JSON(http.StatusBadRequest, gin.H{})
			})
		}, req)

		logs := recorded.FilterMessage("request").All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("health checks stay below info", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)

		_, recorded := serveLogged(t, zapcore.InfoLevel, func(e *gin.Engine) {
			e.GET("/api/v1/health", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})
		}, req)

		assert.Empty(t, recorded.FilterMessage("request").All())
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)
	engine := gin.New()
	engine.Use(Recovery(zap.New(core)))
	engine.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)

	logs := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, logs, 1)
}
