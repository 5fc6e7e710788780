package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	router := gin.New()
	router.Use(RequestLogger(&logger))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health?verbose=1", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	line := buf.String()
	assert.Contains(t, line, `"path":"/health"`)
	assert.Contains(t, line, `"query":"verbose=1"`)
	assert.Contains(t, line, `"status":204`)
}
