package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/consultorio-api/internal/auth"
	"github.com/noah-isme/consultorio-api/internal/contact"
	"github.com/noah-isme/consultorio-api/internal/health"
	"github.com/noah-isme/consultorio-api/internal/newsletter"
	"github.com/noah-isme/consultorio-api/internal/obs"
	"github.com/noah-isme/consultorio-api/internal/payment"
	"github.com/noah-isme/consultorio-api/internal/ratelimit"
	"github.com/noah-isme/consultorio-api/internal/security"
)

// Dependencies enumerates the handlers and middleware the router mounts.
type Dependencies struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	BodyLimitBytes int64
	HSTS           bool
	// TrustedProxyHops is how many reverse proxies append to X-Forwarded-For.
	TrustedProxyHops int

	Gate       auth.Gate
	Payments   *payment.Handler
	Webhook    payment.Webhook
	Newsletter *newsletter.Handler
	Contact    *contact.Handler
	FormsLimit ratelimit.Handler
	Health     health.Handler

	HTTPMetrics    *obs.HTTPMetrics
	MetricsHandler http.Handler
	Tracing        bool
}

// NewRouter assembles the HTTP surface.
func NewRouter(d Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger, TrustedHops: d.TrustedProxyHops}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: d.HSTS}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(d.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		MaxAge:         300,
	}))
	r.Use(security.BodyLimit{Max: d.BodyLimitBytes}.Middleware)
	r.Use(middleware.Timeout(30 * time.Second))

	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}
	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)

	if d.Payments != nil {
		r.Get("/config", d.Payments.Config)
		r.Group(func(p chi.Router) {
			p.Use(d.Gate.RequireAuth)
			p.Post("/create-payment-intent", d.Payments.CreateIntent)
			p.Post("/record-payment", d.Payments.RecordPayment)
		})
	}
	r.Post("/webhook", d.Webhook.Handle)

	r.Route("/api", func(api chi.Router) {
		api.Use(d.FormsLimit.Middleware)
		if d.Newsletter != nil {
			api.Post("/newsletter-subscribe", d.Newsletter.Subscribe)
		}
		if d.Contact != nil {
			api.Post("/send-email", d.Contact.Send)
		}
	})
	return r
}

// DefaultMetricsHandler exposes the default Prometheus registry.
func DefaultMetricsHandler() http.Handler {
	return promhttp.Handler()
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
