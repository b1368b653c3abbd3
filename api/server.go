package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"earnify/auth"
	"earnify/config"
	"earnify/domain/apperrors"
	"earnify/domain/entities"
	"earnify/domain/services"
	"earnify/infrastructure/observability"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// Services are the domain services the HTTP layer dispatches to
type Services struct {
	Ledger      *services.LedgerService
	Users       *services.UserService
	Rewards     *services.RewardService
	Games       *services.GameService
	Offers      *services.OfferService
	Postbacks   *services.PostbackService
	Withdrawals *services.WithdrawalService
	Referrals   *services.ReferralService
}

// Options carries the request-independent collaborators of the server
type Options struct {
	Verifier        *auth.Verifier
	ImageKit        *auth.ImageKitSigner // nil disables /api/cpa/imagekit-auth
	Metrics         *observability.HTTPMetrics
	IsAdmin         func(telegramID int64) bool
	PayoutSecret    string
	AdRatePerMinute int
}

// OptionsFromConfig builds server options from application configuration
func OptionsFromConfig(cfg *config.Config, metrics *observability.HTTPMetrics) Options {
	return Options{
		Verifier:        auth.NewVerifier(cfg.TelegramBotToken, cfg.AuthMaxAge),
		ImageKit:        auth.NewImageKitSigner(cfg.ImageKitPrivateKey),
		Metrics:         metrics,
		IsAdmin:         cfg.IsAdmin,
		PayoutSecret:    cfg.PayoutSecret,
		AdRatePerMinute: cfg.AdRatePerMinute,
	}
}

// Server is the JSON HTTP front of the ledger
type Server struct {
	services  Services
	opts      Options
	adLimiter *principalLimiter
	router    *chi.Mux
}

// NewServer wires the router. Missing IsAdmin denies every admin call.
func NewServer(svc Services, opts Options) *Server {
	if opts.IsAdmin == nil {
		opts.IsAdmin = func(int64) bool { return false }
	}
	s := &Server{
		services:  svc,
		opts:      opts,
		adLimiter: newPrincipalLimiter(opts.AdRatePerMinute),
	}
	s.router = s.RegisterRoutes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// RunLimiterSweeper evicts idle per-principal rate limiters every interval until ctx is done
func (s *Server) RunLimiterSweeper(ctx context.Context, interval time.Duration) {
	s.adLimiter.runSweeper(ctx, interval)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains within shutdownTimeout
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve HTTP: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

// principal returns the caller verified by requireInitData
func principal(r *http.Request) *entities.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("invalid %s", name)
	}
	return id, nil
}
