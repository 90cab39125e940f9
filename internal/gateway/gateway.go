// ABOUTME: HTTP server wiring for partner-gateway
// ABOUTME: Builds strategies, route policy, guard and router from configuration

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keyhaus/partner-gateway/internal/admin"
	"github.com/keyhaus/partner-gateway/internal/auth"
	"github.com/keyhaus/partner-gateway/internal/config"
	"github.com/keyhaus/partner-gateway/internal/store"
)

// Declared route paths. The route-policy table and the router are built from
// the same constants so they cannot drift apart.
const (
	PathPartnerALogin          = "/integrations/partner-a/login"
	PathPartnerASession        = "/integrations/partner-a/session"
	PathPartnerAUnlock         = "/integrations/partner-a/unlock"
	PathPartnerAUnlockExchange = "/integrations/partner-a/unlock/exchange"
	PathPartnerBListings       = "/integrations/partner-b/listings"
	PathPartnerBWebhookListing = "/integrations/partner-b/webhooks/listings"
	PathPartnerBWebhookContact = "/integrations/partner-b/webhooks/contacts"
)

// Server is the partner-gateway HTTP server.
type Server struct {
	cfg     *config.Config
	store   store.Store
	logger  *slog.Logger
	cipher  *auth.TokenCipher
	guard   *auth.Guard
	metrics *Metrics
	client  *http.Client

	httpSrv *http.Server
}

// New wires the full gateway from configuration: token cipher, signature
// verifiers, strategies, route policy, guard, metrics and router. All of it
// is immutable after New returns.
func New(cfg *config.Config, st store.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway")

	cipher, err := auth.NewTokenCipher(cfg.PartnerA.TokenSecret, cfg.PartnerA.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("building token cipher: %w", err)
	}

	resolver := auth.NewResolver(st)
	verifierA := auth.NewSignatureVerifier(cfg.PartnerA.SharedSecret, cfg.PartnerA.LiteralKeys)
	verifierB := auth.NewSignatureVerifier(cfg.PartnerB.SharedSecret, cfg.PartnerB.LiteralKeys)

	metrics := NewMetrics()

	policy := auth.NewRoutePolicy(map[string]auth.StrategyName{
		PathPartnerALogin:          auth.StrategySignedLogin,
		PathPartnerASession:        auth.StrategyAccessToken,
		PathPartnerBListings:       auth.StrategyAPIKey,
		PathPartnerBWebhookListing: auth.StrategyWebhook,
		PathPartnerBWebhookContact: auth.StrategyWebhook,
	})

	guard := auth.NewGuard(policy, logger, metrics,
		auth.NewAPIKeyStrategy(resolver, store.IntegrationPartnerB),
		auth.NewWebhookStrategy(resolver, verifierB, store.IntegrationPartnerB),
		auth.NewSignedLoginStrategy(resolver, verifierA, store.IntegrationPartnerA),
		auth.NewAccessTokenStrategy(resolver, cipher, store.IntegrationPartnerA),
	)

	s := &Server{
		cfg:     cfg,
		store:   st,
		logger:  logger,
		cipher:  cipher,
		guard:   guard,
		metrics: metrics,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// routes builds the router. Guarded routes declare their strategy here; the
// policy table (built in New from the same path constants) re-checks the
// pairing per request.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if s.cfg.Metrics.Enabled {
		r.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	r.With(s.guard.Require(auth.StrategySignedLogin)).Post(PathPartnerALogin, s.handleLogin)
	r.With(s.guard.Require(auth.StrategyAccessToken)).Get(PathPartnerASession, s.handleSession)
	r.Get(PathPartnerAUnlock, s.handleUnlockPage)
	r.Post(PathPartnerAUnlockExchange, s.handleUnlockExchange)

	r.With(s.guard.Require(auth.StrategyAPIKey)).Get(PathPartnerBListings, s.handleListings)
	r.With(s.guard.Require(auth.StrategyWebhook)).Post(PathPartnerBWebhookListing, s.handleWebhook("listing"))
	r.With(s.guard.Require(auth.StrategyWebhook)).Post(PathPartnerBWebhookContact, s.handleWebhook("contact"))

	if s.cfg.Admin.JWTSecret != "" {
		verifier := auth.NewAdminTokenVerifier([]byte(s.cfg.Admin.JWTSecret))
		svc := admin.NewService(s.store, verifier, s.logger)
		r.Mount("/admin", svc.Routes())
	}

	return r
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.cfg.Server.HTTPAddr)
	if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
