// Package middleware holds the HTTP middleware shared by every API surface.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logger logs one line per request.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("remoteAddr", r.RemoteAddr),
			}
			if caller, ok := CallerID(r.Context()); ok {
				fields = append(fields, zap.String("callerID", caller))
			}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Error("HTTP Request", fields...)
				return
			}
			logger.Info("HTTP Request", fields...)
		})
	}
}
