// Package api provides the HTTP API for Roofwatch Core.
//
// Every mutating route runs the same admission pipeline before its handler:
//
//	CSRF guard -> role authorizer -> rate limiter -> handler (validation,
//	ownership, repository) -> error sanitizer
//
// Each gate short-circuits with a sanitized {error} envelope. Successful
// responses use {ok: true, data}.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/roofwatch-core/internal/audit"
	"github.com/nerrad567/roofwatch-core/internal/auth"
	"github.com/nerrad567/roofwatch-core/internal/csrf"
	"github.com/nerrad567/roofwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/roofwatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/roofwatch-core/internal/notify"
	"github.com/nerrad567/roofwatch-core/internal/portal"
	"github.com/nerrad567/roofwatch-core/internal/ratelimit"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every backing service the health endpoint
// reports on (database, redis, mqtt, influxdb).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AdmissionRecorder receives every rejection and rate-limit decision for
// long-term telemetry. *influxdb.Client implements it.
type AdmissionRecorder interface {
	WriteAdmissionDecision(gate, reason string, status int)
	WriteRateLimitCheck(policy string, allowed bool, remaining int)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	RateLimit config.RateLimitConfig
	Logger    *logging.Logger

	Authorizer *auth.Authorizer
	Ownership  *auth.OwnershipResolver
	SignIn     auth.PasswordSignIn // optional: login route is registered only when set
	CSRF       *csrf.Guard
	Limiter    *ratelimit.Limiter // nil disables rate limiting

	Portal portal.Repository
	Audit  audit.Repository // optional
	Events notify.Publisher // optional
	Health map[string]HealthChecker

	Telemetry AdmissionRecorder // optional
	Version   string
}

// Server is the HTTP API server for Roofwatch Core.
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	version  string
	server   *http.Server
	cancel   context.CancelFunc
	done     chan struct{}
	metrics  *metrics
	health   map[string]HealthChecker
	recorder AdmissionRecorder

	authorizer *auth.Authorizer
	ownership  *auth.OwnershipResolver
	signIn     auth.PasswordSignIn
	csrf       *csrf.Guard

	limiter        *ratelimit.Limiter
	failOpen       bool
	authPolicy     ratelimit.Policy
	mutationPolicy ratelimit.Policy

	portal     portal.Repository
	auditRepo  audit.Repository
	events     notify.Publisher
	mutationCh chan mutation
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Authorizer == nil || deps.Ownership == nil {
		return nil, fmt.Errorf("authorizer and ownership resolver are required")
	}
	if deps.CSRF == nil {
		return nil, fmt.Errorf("csrf guard is required")
	}
	if deps.Portal == nil {
		return nil, fmt.Errorf("portal repository is required")
	}

	events := deps.Events
	if events == nil {
		events = notify.Discard{}
	}

	s := &Server{
		cfg:            deps.Config,
		logger:         deps.Logger.With("component", "api"),
		version:        deps.Version,
		metrics:        newMetrics(),
		health:         deps.Health,
		recorder:       deps.Telemetry,
		authorizer:     deps.Authorizer,
		ownership:      deps.Ownership,
		signIn:         deps.SignIn,
		csrf:           deps.CSRF,
		failOpen:       deps.RateLimit.FailOpen,
		authPolicy:     ratelimit.PolicyFromConfig(ratelimit.PolicyAuth, deps.RateLimit.Auth),
		mutationPolicy: ratelimit.PolicyFromConfig(ratelimit.PolicyMutation, deps.RateLimit.Mutation),
		portal:         deps.Portal,
		auditRepo:      deps.Audit,
		events:         events,
		mutationCh:     make(chan mutation, mutationChanSize),
	}
	if deps.RateLimit.Enabled {
		s.limiter = deps.Limiter
	}

	return s, nil
}

// Start launches the mutation drain and the HTTP listener in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.drainMutations(srvCtx)
	}()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests, then flushes queued audit entries and events.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)

	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
