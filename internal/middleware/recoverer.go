package middleware

import (
	"net/http"
	"runtime/debug"

	"botoapp/user/internal/utils"

	"go.uber.org/zap"
)

// Recoverer logs panics and answers with a JSON 500.
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic serving request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()))
				utils.JSON(w, http.StatusInternalServerError, map[string]any{
					"success": false,
					"detail":  "Internal server error",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
