package proxy

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/acme/autocert"

	"github.com/modelrelay/modelrelay/pkg/config"
	"github.com/modelrelay/modelrelay/pkg/modelmap"
	"github.com/modelrelay/modelrelay/pkg/version"
)

const maxRequestBodyBytes = 8 << 20

type Server struct {
	cfg        *config.ServerConfig
	models     *modelmap.Map
	upstream   *upstreamClient
	metrics    *serverMetrics
	httpServer *http.Server
	startedAt  time.Time
}

func NewServer(cfg *config.ServerConfig, models *modelmap.Map) *Server {
	s := &Server{
		cfg:       cfg,
		models:    models,
		upstream:  newUpstreamClient(cfg.UpstreamURL, time.Duration(cfg.TimeoutSeconds)*time.Second),
		metrics:   newServerMetrics(),
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(corsMiddleware)
	r.Use(requestLogger)

	r.Get("/v1/models", s.handleModels)
	r.Post("/v1/chat/completions", s.handleChatCompletions)
	r.Post("/v1/images/generations", s.handleImageGenerations)
	r.Get("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}).ServeHTTP)

	// Every unrouted method/path gets the informational index, not a 404.
	r.NotFound(s.handleInfo)
	r.MethodNotAllowed(s.handleInfo)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if s.cfg.TLS.Enabled {
		mgr := &autocert.Manager{
			Cache:      autocert.DirCache(s.cfg.TLS.CacheDir),
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(s.cfg.TLS.Domain),
			Email:      s.cfg.TLS.Email,
		}

		httpsSrv := &http.Server{
			Addr:              ":443",
			Handler:           s.httpServer.Handler,
			ReadHeaderTimeout: s.httpServer.ReadHeaderTimeout,
			ReadTimeout:       s.httpServer.ReadTimeout,
			WriteTimeout:      s.httpServer.WriteTimeout,
			IdleTimeout:       s.httpServer.IdleTimeout,
			TLSConfig:         &tls.Config{GetCertificate: mgr.GetCertificate, MinVersion: tls.VersionTLS12},
		}

		httpChallenge := &http.Server{
			Addr:              ":80",
			Handler:           mgr.HTTPHandler(http.HandlerFunc(redirectHTTPS)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Info("http challenge/redirect listening", "addr", ":80")
			if err := httpChallenge.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http challenge server: %w", err)
			}
		}()

		go func() {
			log.Info("https listening", "addr", ":443", "domain", s.cfg.TLS.Domain)
			if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("https server: %w", err)
			}
		}()

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpChallenge.Shutdown(shutdownCtx)
		_ = httpsSrv.Shutdown(shutdownCtx)
		return firstErr(errCh)
	}

	go func() {
		log.Info("proxy listening", "addr", s.cfg.ListenAddr, "upstream", s.cfg.UpstreamURL, "models", s.models.Len())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("proxy server: %w", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.httpServer.Shutdown(shutdownCtx)
	return firstErr(errCh)
}

func redirectHTTPS(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "https://"+r.Host+r.RequestURI, http.StatusMovedPermanently)
}

// handleChatCompletions runs the translation pipeline: bearer check, field
// filtering with model resolution, the single upstream call, then either a
// streaming or buffered relay of the response.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header)
	if token == "" {
		writeError(w, http.StatusUnauthorized, apiError{Message: "Missing Bearer token", Type: "authentication_error"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, apiError{Message: "failed to read request body", Type: "invalid_request_error"})
		return
	}
	defer r.Body.Close()

	filtered, stream, err := filterChatRequest(body, s.models)
	if err != nil {
		writeError(w, http.StatusBadRequest, apiError{Message: err.Error(), Type: "invalid_request_error"})
		return
	}

	start := time.Now()
	resp, err := s.upstream.send(r.Context(), filtered, token)
	if err != nil {
		s.metrics.observeUpstream(time.Since(start), 0)
		log.Warn("upstream call failed", "err", err)
		writeError(w, http.StatusRequestTimeout, apiError{Message: "Network error or timeout", Type: "timeout_error"})
		return
	}
	defer resp.Body.Close()
	s.metrics.observeUpstream(time.Since(start), resp.StatusCode)

	if stream {
		if err := relayStreaming(w, resp); err != nil {
			// Headers are gone by now; just cut the stream and log.
			log.Debug("streaming relay ended early", "err", err)
		}
		return
	}
	if err := relayBuffered(w, resp); err != nil {
		log.Debug("buffered relay failed", "err", err)
	}
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "modelrelay",
		"version": version.String(),
		"message": "OpenAI-compatible translating proxy",
		"endpoints": []string{
			"POST /v1/chat/completions",
			"POST /v1/images/generations",
			"GET /v1/models",
		},
	})
}

// corsMiddleware sets allow-all CORS headers on every response and answers
// OPTIONS preflights for any path without dispatching further.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "authorization, content-type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func firstErr(ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	default:
		return nil
	}
}
