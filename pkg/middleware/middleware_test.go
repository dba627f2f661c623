package middleware

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/pkg/errors"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
)

var errSlotMissing = stderrors.New("slot missing")

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	Setup(router, DefaultConfig("test", logging.Discard()))
	return router
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequestID(t *testing.T) {
	router := newRouter()
	router.GET("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, logging.RequestIDFromContext(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w := serve(router, req)

	assert.Equal(t, "req-42", w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))

	w = serve(router, httptest.NewRequest(http.MethodGet, "/echo", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, w.Header().Get(HeaderRequestID), w.Body.String())
}

func TestCORS_AllowsAnyOriginByDefault(t *testing.T) {
	router := newRouter()
	router.GET("/runs", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/runs", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := serve(router, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_RestrictsListedOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	config := DefaultConfig("test", logging.Discard())
	config.CORSOrigins = []string{"http://localhost:5173"}
	Setup(router, config)
	router.GET("/runs", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := serve(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Origin", "http://evil.local")
	w = serve(router, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestErrorHandler_MapsRegisteredErrors(t *testing.T) {
	errors.Register(errSlotMissing, errors.CodeNotFound, http.StatusNotFound)

	router := newRouter()
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("lookup: %w", errSlotMissing))
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	w := serve(router, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, errors.CodeNotFound, body.Code)
	assert.Equal(t, "req-1", body.RequestID)
	assert.Equal(t, "/fail", body.Path)
}

func TestRecovery(t *testing.T) {
	router := newRouter()
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.CodeInternalError, decodeError(t, w).Code)
}

func TestNoRouteAndNoMethod(t *testing.T) {
	router := newRouter()
	router.GET("/only-get", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", decodeError(t, w).Code)

	w = serve(router, httptest.NewRequest(http.MethodPost, "/only-get", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestContentType(t *testing.T) {
	router := newRouter()
	router.POST("/body", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/body", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(router, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodPost, "/body", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

type pagingQuery struct {
	Count int    `form:"count" binding:"gte=1"`
	Mode  string `form:"mode" binding:"required,even_length"`
}

func TestBindQuery_CustomValidation(t *testing.T) {
	require.NoError(t, RegisterValidation("even_length", "must have an even length", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	}))

	router := newRouter()
	router.GET("/page", func(c *gin.Context) {
		var query pagingQuery
		if appErr := BindQuery(c, &query); appErr != nil {
			NewErrorResponder(c, logging.Discard()).RespondWithAppError(appErr)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/page?count=0&mode=abc", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, errors.CodeValidationError, body.Code)
	assert.Equal(t, "must be greater than or equal to 1", body.Details["count"])
	assert.Equal(t, "must have an even length", body.Details["mode"])

	w = serve(router, httptest.NewRequest(http.MethodGet, "/page?count=2&mode=ab", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadinessCheck(t *testing.T) {
	router := newRouter()
	router.GET("/ready", ReadinessCheck("test", map[string]func(context.Context) error{
		"store": func(context.Context) error { return nil },
		"runs":  func(context.Context) error { return stderrors.New("down") },
	}))

	w := serve(router, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "down")
}
