package obs

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/consultorio-api/internal/common"
)

// NewLogger configures a zerolog logger using the provided format and level.
func NewLogger(format, level string) zerolog.Logger {
	return newLogger(os.Stdout, format, level)
}

func newLogger(writer io.Writer, format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := writer
	if f := strings.ToLower(strings.TrimSpace(format)); f == "console" || f == "text" {
		out = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// RequestLogger records structured HTTP request logs enriched with tracing metadata.
type RequestLogger struct {
	Logger      zerolog.Logger
	TrustedHops int
}

// Middleware implements chi middleware for structured request logs. A request
// scoped logger is attached to the context; handlers further down the chain
// (e.g. the auth gate) may enrich it through zerolog.Ctx and the enrichment
// shows up on the final http_request event.
func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := NewStatusRecorder(w)
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		ctx := l.Logger.With().Str("request_id", reqID).Logger().WithContext(r.Context())
		reqLogger := zerolog.Ctx(ctx)
		r = r.WithContext(ctx)

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		route := RoutePatternFromContext(r.Context())
		if route == "" {
			if rc := chi.RouteContext(r.Context()); rc != nil {
				route = rc.RoutePattern()
			}
		}
		if route == "" {
			route = r.URL.Path
		}
		spanCtx := trace.SpanContextFromContext(r.Context())
		traceID := ""
		spanID := ""
		if spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
			spanID = spanCtx.SpanID().String()
		}

		evt := reqLogger.Info()
		if recorder.Status() >= http.StatusInternalServerError {
			evt = reqLogger.Warn()
		}
		evt = evt.
			Str("method", r.Method).
			Str("route", route).
			Int("status", recorder.Status()).
			Int64("duration_ms", duration.Milliseconds()).
			Int64("bytes", recorder.BytesWritten()).
			Str("trace_id", traceID).
			Str("span_id", spanID)
		if ip := strings.TrimSpace(common.ClientIP(r, l.TrustedHops)); ip != "" {
			evt = evt.Str("remote_addr", ip)
		}
		if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
			evt = evt.Str("user_agent", ua)
		}
		evt.Msg("http_request")
	})
}

// StripeLogger adapts zerolog to the Stripe SDK leveled logger interface.
type StripeLogger struct {
	Logger zerolog.Logger
}

// Debugf implements stripe.LeveledLoggerInterface.
func (s StripeLogger) Debugf(format string, v ...interface{}) {
	s.Logger.Debug().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}

// Infof implements stripe.LeveledLoggerInterface.
func (s StripeLogger) Infof(format string, v ...interface{}) {
	s.Logger.Debug().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}

// Warnf implements stripe.LeveledLoggerInterface.
func (s StripeLogger) Warnf(format string, v ...interface{}) {
	s.Logger.Warn().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}

// Errorf implements stripe.LeveledLoggerInterface.
func (s StripeLogger) Errorf(format string, v ...interface{}) {
	s.Logger.Error().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}
