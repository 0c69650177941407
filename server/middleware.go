package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/render"
	"github.com/justinas/alice"
	"github.com/sirupsen/logrus"

	"github.com/sartorproj/salescast/logging"
)

// CorrelationHeader carries the correlation id of a request back to the client.
const CorrelationHeader = "X-Correlation-ID"

const slowRequest = 2 * time.Second

// Logging assigns a correlation id to every request and logs its outcome.
func Logging(logger logrus.FieldLogger) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, correlationID := logging.WithCorrelationID(r.Context())
			r = r.WithContext(ctx)
			w.Header().Set(CorrelationHeader, correlationID)

			lrw := newLoggingResponseWriter(w)
			start := time.Now()

			logger.WithFields(logrus.Fields{
				logging.FieldCorrelationID: correlationID,
				"method":                   r.Method,
				"path":                     r.URL.Path,
				"remote_addr":              r.RemoteAddr,
			}).Debug("request started")

			next.ServeHTTP(lrw, r)

			elapsed := time.Since(start)
			entry := logger.WithFields(logrus.Fields{
				logging.FieldCorrelationID: correlationID,
				"method":                   r.Method,
				"path":                     r.URL.Path,
				"status_code":              lrw.statusCode,
				"duration_ms":              elapsed.Milliseconds(),
			})

			switch {
			case lrw.statusCode >= 500:
				entry.Error("request failed")
			case lrw.statusCode >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request completed")
			}
			if elapsed > slowRequest {
				entry.Warnf("slow request: %s", elapsed)
			}
		})
	}
}

// Recover turns a panicking handler into a 500 response.
func Recover(logger logrus.FieldLogger) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					stack := make([]byte, 4096)
					stack = stack[:runtime.Stack(stack, false)]

					logger.WithFields(logrus.Fields{
						logging.FieldCorrelationID: logging.GetCorrelationID(r.Context()),
						"panic":                    rec,
						"method":                   r.Method,
						"path":                     r.URL.Path,
						"stack_trace":              string(stack),
					}).Error("panic while serving request")

					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, errorResponse{
						Error:         http.StatusText(http.StatusInternalServerError),
						CorrelationID: logging.GetCorrelationID(r.Context()),
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newLoggingResponseWriter(w http.ResponseWriter) *loggingResponseWriter {
	return &loggingResponseWriter{w, http.StatusOK}
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
