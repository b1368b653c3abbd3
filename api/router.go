package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes builds the route tree
func (s *Server) RegisterRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.opts.Metrics != nil {
		r.Use(instrument(s.opts.Metrics))
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	}

	initData := requireInitData(s.opts.Verifier)
	admin := requireAdmin(s.opts.IsAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Route("/user", func(r chi.Router) {
			r.Use(initData)
			r.Post("/auth", s.authenticate)
			r.Get("/dashboard", s.dashboard)
			r.Get("/profile", s.profile)
			r.Post("/daily-reward", s.claimDaily)
			r.With(s.adLimiter.Handler).Post("/complete-ad", s.completeAd)
			r.Post("/withdraw", s.withdraw)
		})

		r.Route("/games", func(r chi.Router) {
			r.Use(initData)
			r.Get("/list", s.listGames)
			r.With(admin).Post("/create", s.createGame)
			r.Post("/play/{gameId}", s.playGame)
		})

		r.Route("/cpa", func(r chi.Router) {
			r.Get("/postback", s.postback)
			r.Get("/imagekit-auth", s.imageKitAuth)

			r.Group(func(r chi.Router) {
				r.Use(initData)
				r.Get("/offers", s.listOffers)
				r.With(admin).Post("/create", s.createOffer)
				r.Post("/click/{offerId}", s.trackClick)
			})
		})

		r.With(requireSharedSecret(PayoutSecretHeader, s.opts.PayoutSecret)).
			Post("/payouts/{transactionId}/resolve", s.resolvePayout)

		r.Route("/admin", func(r chi.Router) {
			r.Use(initData, admin)
			r.Post("/referrals/{refereeId}/activate", s.activateReferral)
			r.Get("/users/{userId}/reconcile", s.reconcileUser)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
