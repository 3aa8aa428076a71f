package middlewares

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/littlejohn/internal/observability/logger"
)

// WithRequestContext asigna un request id (respetando X-Request-ID entrante),
// inyecta un logger "scoped" en el contexto y loguea el acceso al terminar.
func WithRequestContext() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)

			log := logger.L().With(logger.RequestID(rid))
			ctx := logger.ToContext(r.Context(), log)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r.WithContext(ctx))

			log.Info("request",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.Status(sw.status),
				logger.Duration(time.Since(start)),
			)
		})
	}
}

// statusWriter captura el status code para el access log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
