package http

import (
	"net/http"

	"reviewsync/internal/auth"
	"reviewsync/internal/client"
	"reviewsync/internal/config"
	"reviewsync/internal/http/handler"
	mw "reviewsync/internal/http/middleware"
	"reviewsync/internal/pending"
	"reviewsync/internal/review"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	clients := &client.Service{DB: db}
	reviews := &review.Store{DB: db}
	registry := pending.NewRegistry()
	aggregator := &pending.Aggregator{
		Reviews: reviews,
		Log:     log.WithField("component", "pending"),
	}

	ah := &handler.AuthHandler{Clients: clients, JWT: jwtSvc, Pending: registry}
	r.Post("/auth/login", ah.Login)
	r.With(auth.RequireAuth(jwtSvc)).Post("/auth/logout", ah.Logout)

	rh := &handler.ReviewHandler{
		Clients:    clients,
		Reviews:    reviews,
		Pending:    registry,
		Aggregator: aggregator,
	}

	r.Route("/me", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/platforms", rh.Platforms)
		r.Get("/platforms/{num}/reviews/new", rh.NewReviews)
		r.Post("/platforms/{num}/photopack", rh.PhotoPack)
		r.Get("/stats", rh.Stats)

		r.Post("/changes", rh.Stage)
		r.Get("/changes", rh.List)
		r.Post("/changes/commit", rh.Commit)
		r.Delete("/changes", rh.Discard)
	})

	adm := &handler.AdminHandler{Clients: clients}
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAdmin(cfg.AdminToken))

		r.Post("/clients", adm.CreateClient)
		r.Patch("/clients/{id}", adm.PatchClient)
		r.Get("/clients/{number}/stats", adm.ClientStats)
	})

	return r
}
