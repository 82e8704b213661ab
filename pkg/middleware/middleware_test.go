package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loyalty-connector/pkg/errutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

func newEngine(h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger(), Error())
	r.GET("/", h)
	return r
}

func get(r http.Handler, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v[0])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestErrorRendersBaseError(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(errutil.Validation("order_id is required", errutil.WithDetails(errutil.Detail{Field: "order_id", Message: "required"})))
	})

	rec := get(r, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"code":"validation_failed","message":"order_id is required","details":[{"field":"order_id","message":"required"}]}`, rec.Body.String())
}

func TestErrorUnknownIsInternal(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})

	rec := get(r, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "boom")
}

func TestErrorLeavesWrittenResponses(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
		_ = c.Error(errors.New("late"))
	})

	rec := get(r, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestRequestID(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	rec := get(r, http.Header{HeaderRequestID: {"req-1"}})
	require.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
	require.Equal(t, "req-1", rec.Body.String())

	rec = get(r, nil)
	generated := rec.Header().Get(HeaderRequestID)
	require.Len(t, generated, 36)
	require.Equal(t, generated, rec.Body.String())
}
