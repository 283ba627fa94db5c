// Package httpserver wires the webhook and admin HTTP surfaces.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/prbridge/internal/config"
	rerrors "git.home.luguber.info/inful/prbridge/internal/errors"
	"git.home.luguber.info/inful/prbridge/internal/server/handlers"
	smw "git.home.luguber.info/inful/prbridge/internal/server/middleware"
)

// Options configures runtime-specific wiring.
type Options struct {
	Ingestor          handlers.Ingestor
	InteractionRouter handlers.InteractionRouter
	APIHandlers       *handlers.APIHandlers

	// Optional: Prometheus scrape endpoint on the admin server.
	PrometheusHandler http.Handler
}

// Server manages the webhook and admin HTTP endpoints.
type Server struct {
	webhookServer *http.Server
	adminServer   *http.Server
	cfg           *config.Config
	opts          Options
	errorAdapter  *rerrors.HTTPErrorAdapter

	webhookHandlers  *handlers.WebhookHandlers
	interactHandlers *handlers.InteractHandlers

	mchain func(http.Handler) http.Handler
}

// New constructs a new HTTP server wiring instance.
func New(cfg *config.Config, opts Options) *Server {
	s := &Server{
		cfg:          cfg,
		opts:         opts,
		errorAdapter: rerrors.NewHTTPErrorAdapter(slog.Default()),
	}

	s.webhookHandlers = handlers.NewWebhookHandlers(opts.Ingestor, cfg.GitHub.WebhookSecret)
	s.interactHandlers = handlers.NewInteractHandlers(opts.InteractionRouter)

	s.mchain = smw.Chain(slog.Default(), s.errorAdapter)

	return s
}

// Start pre-binds all required ports so startup fails fast with an aggregate
// error instead of partially initialized servers.
func (s *Server) Start(ctx context.Context) error {
	type preBind struct {
		name string
		port int
		ln   net.Listener
	}
	binds := []preBind{
		{name: "webhook", port: s.cfg.Server.WebhookPort},
		{name: "admin", port: s.cfg.Server.AdminPort},
	}

	var bindErrs []error
	lc := net.ListenConfig{}
	for i := range binds {
		addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, binds[i].port)
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			bindErrs = append(bindErrs, fmt.Errorf("%s port %d: %w", binds[i].name, binds[i].port, err))
			continue
		}
		binds[i].ln = ln
	}
	if len(bindErrs) > 0 {
		for _, b := range binds {
			if b.ln != nil {
				_ = b.ln.Close()
			}
		}
		return fmt.Errorf("http startup failed: %w", errors.Join(bindErrs...))
	}

	s.startWebhookServer(binds[0].ln)
	s.startAdminServer(binds[1].ln)

	slog.Info("HTTP servers started",
		slog.Int("webhook_port", s.cfg.Server.WebhookPort),
		slog.Int("admin_port", s.cfg.Server.AdminPort))
	return nil
}

// Stop gracefully shuts down all HTTP servers.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error

	if s.adminServer != nil {
		if err := s.adminServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin server shutdown: %w", err))
		}
	}
	if s.webhookServer != nil {
		if err := s.webhookServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("webhook server shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	slog.Info("HTTP servers stopped")
	return nil
}

// WebhookMux exposes the webhook routing table, mainly for tests.
func (s *Server) WebhookMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/github", s.webhookHandlers.HandleGitHubWebhook)
	// legacy alias kept for older hook configurations
	mux.HandleFunc("/notify", s.webhookHandlers.HandleGitHubWebhook)
	mux.HandleFunc("/slack/interact", s.interactHandlers.HandleSlackInteraction)
	return mux
}

// AdminMux exposes the admin routing table, mainly for tests.
func (s *Server) AdminMux() *http.ServeMux {
	mux := http.NewServeMux()
	if api := s.opts.APIHandlers; api != nil {
		mux.HandleFunc("/healthz", api.HandleHealthCheck)
		mux.HandleFunc("/health", api.HandleHealthCheck)
		mux.HandleFunc("/status", api.HandleStatus)
		mux.HandleFunc("/api/events", api.HandleEvents)
		mux.HandleFunc("/api/summary", api.HandleSummary)
	}
	if s.opts.PrometheusHandler != nil {
		mux.Handle("/metrics", s.opts.PrometheusHandler)
	}
	return mux
}

func (s *Server) startWebhookServer(ln net.Listener) {
	s.webhookServer = &http.Server{
		Handler:      s.mchain(s.WebhookMux()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.serve("webhook", s.webhookServer, ln)
}

func (s *Server) startAdminServer(ln net.Listener) {
	s.adminServer = &http.Server{
		Handler:      s.mchain(s.AdminMux()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.serve("admin", s.adminServer, ln)
}

// serve launches an http.Server on a pre-bound listener, standardizing
// goroutine startup and error logging.
func (s *Server) serve(kind string, srv *http.Server, ln net.Listener) {
	go func() {
		err := srv.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s server error", kind), "error", err)
		}
	}()
}
