package httpapi

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nhoon2002/Next-Replicate/internal/http/handlers"
	"github.com/nhoon2002/Next-Replicate/internal/middleware"
)

// Options carries the cross-cutting settings for the router.
type Options struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	// SubmitLimiter throttles prediction submissions per client IP. Nil disables it.
	SubmitLimiter  middleware.Limiter
	WebhookSecret  string
	// TrustedProxies may set the client address through X-Forwarded-For.
	TrustedProxies []netip.Prefix
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP(opts.TrustedProxies),
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/models", app.ListModels)

		r.Route("/predictions", func(r chi.Router) {
			r.Get("/", app.ListPredictions)
			r.Group(func(r chi.Router) {
				if opts.SubmitLimiter != nil {
					r.Use(middleware.RateLimit(opts.SubmitLimiter, opts.Logger))
				}
				r.Post("/", app.CreatePrediction)
			})
			r.Get("/{id}", app.GetPrediction)
			r.Get("/{id}/events", app.StreamPrediction)
		})

		r.With(middleware.WebhookSignature(opts.WebhookSecret, opts.Logger)).
			Post("/webhooks", app.PredictionWebhook)
	})

	return r
}
