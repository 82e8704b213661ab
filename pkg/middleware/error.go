package middleware

import (
	"errors"
	"net/http"

	"loyalty-connector/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorBody struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Details []errutil.Detail `json:"details,omitempty"`
}

// Error renders the last handler error once the chain has finished. Handlers that already
// wrote a response are left alone.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var v errutil.BaseError
		if errors.As(last.Err, &v) {
			c.JSON(v.Code.HTTPStatus(), errorBody{
				Code:    string(v.Code),
				Message: v.Message,
				Details: v.Details,
			})
			return
		}

		zap.L().Error("unhandled request error",
			zap.String("path", c.FullPath()),
			zap.String("request_id", GetRequestID(c)),
			zap.Error(last.Err),
		)
		c.JSON(http.StatusInternalServerError, errorBody{
			Code:    "internal",
			Message: http.StatusText(http.StatusInternalServerError),
		})
	}
}
