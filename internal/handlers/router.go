package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"vendorbid/internal/metrics"
	"vendorbid/internal/middleware"
	"vendorbid/internal/uploads"
)

type RouterConfig struct {
	Tokens      middleware.TokenParser
	AuthLimiter *middleware.RateLimiter
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	CORSOrigins []string
	UploadDir   string
}

// NewRouter собирает все маршруты API
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	requireAuth := middleware.RequireAuth(cfg.Tokens)
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NopMetrics()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Instrument(cfg.Metrics))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	r.Handle("/metrics", promhttp.Handler())
	if cfg.UploadDir != "" {
		r.Handle(uploads.URLPrefix+"*", http.StripPrefix(uploads.URLPrefix, http.FileServer(http.Dir(cfg.UploadDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		r.Route("/auth", func(r chi.Router) {
			r.With(cfg.AuthLimiter.Middleware).Post("/register", h.RegisterHandler)
			r.With(cfg.AuthLimiter.Middleware).Post("/login", h.LoginHandler)
			r.With(requireAuth).Get("/me", h.MeHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/vendors/profile", h.GetVendorProfileHandler)
			r.Put("/vendors/profile", h.UpdateVendorProfileHandler)
			r.Get("/suppliers/profile", h.GetSupplierProfileHandler)
			r.Put("/suppliers/profile", h.UpdateSupplierProfileHandler)
			r.Get("/suppliers/verification-status", h.VerificationStatusHandler)
		})

		// заявки: список и карточка публичны
		r.Route("/requirements", func(r chi.Router) {
			r.Get("/", h.GetRequirementsHandler)
			r.Get("/{id}", h.GetRequirementHandler)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", h.CreateRequirementHandler)
				r.Put("/{id}", h.UpdateRequirementHandler)
				r.Post("/{id}/award", h.AwardBidHandler)
				r.Get("/{id}/bids", h.GetRequirementBidsHandler)
				r.Get("/vendor/my-requirements", h.GetMyRequirementsHandler)
				r.Post("/supplier/{id}/review", h.ReviewSupplierHandler)
				r.Post("/suppliers/{id}/verify", h.VerifySupplierHandler)
				r.Get("/users", h.ListUsersHandler)
			})
		})

		// предложения (bids)
		r.Route("/bids", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", h.CreateBidHandler)
			r.Get("/my-bids", h.GetMyBidsHandler)
			r.Put("/{id}", h.UpdateBidHandler)
			r.Delete("/{id}", h.WithdrawBidHandler)
			r.Get("/requirement/{id}", h.GetBidsForRequirementHandler)
			r.Post("/{id}/reviews", h.CreateBidReviewHandler)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/sales-data", h.AddSalesDataHandler)
			r.Post("/material-usage", h.AddMaterialUsageHandler)
			r.Get("/dashboard", h.DashboardHandler)
			r.Post("/generate-recommendations", h.GenerateRecommendationsHandler)
		})
	})

	return r
}
