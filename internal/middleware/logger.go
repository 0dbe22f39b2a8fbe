package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ZapRequestLogger logs one line per request. 5xx responses are logged at error level.
func ZapRequestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// RequireAuth runs further down the chain, so the user id is only
			// visible through the request it hands to the next handler.
			var userID int
			defer func() {
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote_ip", r.RemoteAddr),
				}
				if reqID := middleware.GetReqID(r.Context()); reqID != "" {
					fields = append(fields, zap.String("request_id", reqID))
				}
				if userID != 0 {
					fields = append(fields, zap.Int("user_id", userID))
				}

				if ww.Status() >= http.StatusInternalServerError {
					logger.Error("request failed", fields...)
					return
				}
				logger.Info("request completed", fields...)
			}()

			next.ServeHTTP(ww, r.WithContext(withUserSlot(r.Context(), &userID)))
		})
	}
}
