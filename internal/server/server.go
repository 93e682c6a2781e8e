// Package server provides the docsentry HTTP server: webhook intake,
// health check, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/halcyonlabs/docsentry/internal/config"
	"github.com/halcyonlabs/docsentry/internal/gh"
	"github.com/halcyonlabs/docsentry/internal/logging"
	"github.com/halcyonlabs/docsentry/internal/metrics"
	"github.com/halcyonlabs/docsentry/internal/pipeline"
)

// EventHandler processes a change event. Implemented by pipeline.Pipeline.
type EventHandler interface {
	HandleEvent(ctx context.Context, event pipeline.Event) error
}

// PRFilesLister resolves the changed files of a merged pull request.
// Implemented by gh.Client.
type PRFilesLister interface {
	PullRequestFiles(ctx context.Context, owner, repo string, number int) ([]string, error)
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

// ChunkCounter exposes the knowledge base size for health reporting.
type ChunkCounter interface {
	Len() int
}

// Server is the docsentry HTTP server.
type Server struct {
	echo    *echo.Echo
	cfg     *config.Config
	handler EventHandler
	prFiles PRFilesLister
	counter ChunkCounter
	logger  *logging.Logger

	mu           sync.Mutex
	rateLimiters map[string]*rate.Limiter
	lastCleanup  time.Time
}

// New creates the HTTP server and registers its routes.
func New(cfg *config.Config, handler EventHandler, prFiles PRFilesLister, counter ChunkCounter, logger *logging.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("1M"))

	s := &Server{
		echo:         e,
		cfg:          cfg,
		handler:      handler,
		prFiles:      prFiles,
		counter:      counter,
		logger:       logger.Named("server"),
		rateLimiters: make(map[string]*rate.Limiter),
		lastCleanup:  time.Now(),
	}

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/webhook", s.handleWebhook)

	return s
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
// Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	errCh := make(chan error, 1)

	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Echo returns the underlying Echo instance, mostly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if s.counter != nil {
		resp.Chunks = s.counter.Len()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	ip := c.RealIP()
	if !s.limiterFor(ip).Allow() {
		s.logger.Warn(ctx, "rate limit exceeded", zap.String("ip", ip))
		metrics.WebhookEvents.WithLabelValues("rate_limited").Inc()
		return c.String(http.StatusTooManyRequests, "rate limit exceeded")
	}

	event, err := gh.ValidateAndParse(c.Request(), s.cfg.GitHub.WebhookSecret.Value())
	if err != nil {
		s.logger.Warn(ctx, "webhook rejected", zap.Error(err))
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		if errors.Is(err, gh.ErrUnparseablePayload) {
			return c.String(http.StatusBadRequest, "invalid payload")
		}
		return c.String(http.StatusUnauthorized, "invalid signature")
	}

	switch e := event.(type) {
	case *github.PushEvent:
		return s.acceptEvent(c, pipeline.Event{
			Ref:     e.GetRef(),
			HeadSHA: e.GetAfter(),
			Paths:   gh.PushChangedPaths(e),
		})

	case *github.PullRequestEvent:
		if !gh.IsMergedPR(e) {
			metrics.WebhookEvents.WithLabelValues("ignored").Inc()
			return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
		}
		paths, err := s.prFiles.PullRequestFiles(ctx,
			e.GetRepo().GetOwner().GetLogin(),
			e.GetRepo().GetName(),
			e.GetPullRequest().GetNumber())
		if err != nil {
			s.logger.Error(ctx, "listing merged PR files failed", zap.Error(err))
			metrics.WebhookEvents.WithLabelValues("error").Inc()
			return c.String(http.StatusBadGateway, "listing PR files failed")
		}
		return s.acceptEvent(c, pipeline.Event{
			Ref:     "refs/heads/" + e.GetPullRequest().GetBase().GetRef(),
			HeadSHA: e.GetPullRequest().GetMergeCommitSHA(),
			Paths:   paths,
		})

	default:
		s.logger.Debug(ctx, "ignoring event type", zap.String("type", fmt.Sprintf("%T", event)))
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}
}

// acceptEvent queues the event for processing and acknowledges delivery.
// Processing runs in the background; the pipeline serializes events itself.
func (s *Server) acceptEvent(c echo.Context, event pipeline.Event) error {
	metrics.WebhookEvents.WithLabelValues("accepted").Inc()
	s.logger.Info(c.Request().Context(), "event accepted",
		zap.String("ref", event.Ref),
		zap.String("head", event.HeadSHA),
		zap.Int("paths", len(event.Paths)))

	go func() {
		ctx := context.Background()
		if err := s.handler.HandleEvent(ctx, event); err != nil {
			s.logger.Error(ctx, "event processing failed",
				zap.String("head", event.HeadSHA),
				zap.Error(err))
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}

// limiterFor returns the per-IP rate limiter: 1 req/s, burst of 10. The map
// is rebuilt hourly so long-gone IPs do not accumulate.
func (s *Server) limiterFor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastCleanup) > time.Hour {
		s.rateLimiters = make(map[string]*rate.Limiter)
		s.lastCleanup = time.Now()
	}

	limiter, ok := s.rateLimiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(1), 10)
		s.rateLimiters[ip] = limiter
	}
	return limiter
}
