package app

import (
	"github.com/Royleong31/Blog-APIs/internal/sdk/errs"
	"github.com/Royleong31/Blog-APIs/internal/services/sentry"
	"github.com/gin-gonic/gin"
)

const errBadRequestBody = "Request body could not be read"

// writeError renders err as {message, data}. Unclassified errors become a
// generic 500.
func writeError(c *gin.Context, err error) {
	appErr := errs.From(err)
	resp := ErrorResponse{Message: appErr.Message}
	if len(appErr.Fields) > 0 {
		resp.Data = appErr.Fields
	}
	c.JSON(appErr.HTTPStatus(), resp)
}

func (a *App) toSentry(c *gin.Context, handler, errType string, level sentry.Level, err error) {
	a.sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("handler", handler)
		scope.SetExtra("error_type", errType)
		scope.SetLevel(level)
		if reqID := c.GetHeader("X-Request-ID"); reqID != "" {
			scope.SetTag("request_id", reqID)
		}
		a.sentry.CaptureException(err)
	})
}
