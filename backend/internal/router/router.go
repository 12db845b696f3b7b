package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itchan-dev/prepublish/backend/internal/setup"
	mw "github.com/itchan-dev/prepublish/shared/middleware"
	"github.com/itchan-dev/prepublish/shared/middleware/metrics"
	rl "github.com/itchan-dev/prepublish/shared/middleware/ratelimiter"
)

// New creates the chi router with all routes.
// The write limiter is shared: one bucket per actor across review, comment and reply.
func New(deps *setup.Dependencies) *chi.Mux {
	cfg := deps.Config.Public
	h := deps.Handler
	authMw := deps.Auth

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Pagination-Count", "X-Pagination-Offset", "X-Pagination-Limit"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.SecurityHeaders(cfg.HTTPS))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	writeLimit := func(next http.Handler) http.Handler { return next }
	if cfg.WriteRPS > 0 {
		writeLimit = mw.RateLimit(rl.New(cfg.WriteRPS, max(cfg.WriteBurst, 1), 1*time.Hour), mw.ActorOrIP)
	}

	r.Route("/v1", func(v1 chi.Router) {
		// Readers may be anonymous
		v1.Group(func(public chi.Router) {
			public.Use(authMw.OptionalAuth())

			public.Get("/theses", h.ListTheses)
			public.Get("/theses/{id}", h.GetThesis)
			public.Get("/theses/{id}/versions", h.ThesisVersions)

			public.Get("/versions/{id}", h.GetVersion)
			public.Get("/versions/{id}/reviews", h.VersionReviews)
			public.Get("/versions/{id}/comments", h.VersionComments)
			public.Post("/versions/{id}/download", h.DownloadVersion)

			public.Get("/reviews/{id}", h.GetReview)

			public.Get("/comments/{id}", h.GetComment)
			public.Get("/comments/{id}/replies", h.CommentReplies)
		})

		v1.Group(func(private chi.Router) {
			private.Use(authMw.NeedAuth())

			private.Post("/theses", h.CreateThesis)
			private.Put("/theses/{id}", h.UpdateThesis)
			private.Delete("/theses/{id}", h.WithdrawThesis)
			private.Post("/theses/{id}/commit", h.CommitVersion)

			private.Patch("/versions/{id}/edit", h.EditVersion)
			private.Patch("/versions/{id}/adjudge/{judgement}", h.Adjudge)
			private.Delete("/versions/{id}", h.WithdrawVersion)

			private.Delete("/comments/{id}", h.WithdrawComment)

			private.Group(func(limited chi.Router) {
				limited.Use(writeLimit)
				limited.Post("/versions/{id}/review", h.SubmitReview)
				limited.Post("/versions/{id}/comment", h.CommentVersion)
				limited.Post("/comments/{id}/reply", h.ReplyComment)
			})
		})
	})

	return r
}
