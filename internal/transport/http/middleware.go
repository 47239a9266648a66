package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/textroom/pkg/logger"

	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger пишет одну структурную запись на запрос. trace_id/span_id
// добавляются, если запрос пришёл с trace-контекстом.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middlewareChi.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middlewareChi.GetReqID(r.Context())),
		}
		attrs = append(attrs, logger.AttrsFromCtx(r.Context())...)

		logger.L().LogAttrs(r.Context(), slog.LevelInfo, "http request", attrs...)
	})
}
