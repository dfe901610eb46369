// Package server exposes the chat widget and estimate wizard over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"arxenbot/internal/chat"
	"arxenbot/internal/config"
	"arxenbot/internal/delivery"
	"arxenbot/internal/kb"
	"arxenbot/internal/metrics"
	"arxenbot/internal/store"
)

// Deps are the services the HTTP layer fronts. Store may be nil, in which case
// drafts and PDF downloads are unavailable.
type Deps struct {
	Config    config.Config
	KB        *kb.Store
	Chat      *chat.Service
	Store     *store.Store
	Submitter *delivery.Submitter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Server wraps the echo instance.
type Server struct {
	echo      *echo.Echo
	cfg       config.Config
	kb        *kb.Store
	chat      *chat.Service
	store     *store.Store
	submitter *delivery.Submitter
	metrics   *metrics.Metrics
	logger    *zap.Logger
	started   time.Time
}

// New builds the server and registers every route.
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		echo:      echo.New(),
		cfg:       d.Config,
		kb:        d.KB,
		chat:      d.Chat,
		store:     d.Store,
		submitter: d.Submitter,
		metrics:   d.Metrics,
		logger:    logger,
		started:   time.Now(),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	s.echo.Use(s.requestLogger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.BodyLimit("2M"))
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: originsOrAll(d.Config.Server.AllowedOrigins),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/health", s.handleHealth)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := e.Group("/api")
	api.POST("/chat", s.handleChat, s.chatRateLimiter())
	api.GET("/chat/config", s.handleChatConfig)
	api.POST("/chat/actions/:action", s.handleChatAction)

	est := api.Group("/estimate")
	est.GET("/services", s.handleServices)
	est.GET("/promo/:code", s.handlePromo)
	est.POST("/validate", s.handleValidate)
	est.POST("/drafts", s.handleSaveDraft)
	est.GET("/drafts/:key", s.handleLoadDraft)
	est.PUT("/drafts/:key", s.handleUpdateDraft)
	est.PATCH("/drafts/:key/:section", s.handlePatchDraft)
	est.POST("/submit", s.handleSubmit)
	est.GET("/pdf/:ref", s.handlePDF)

	admin := e.Group("/admin", s.adminAuth())
	admin.GET("/kb-info", s.handleKBInfo)
	admin.GET("/kb/duplicates", s.handleKBDuplicates)
	admin.POST("/kb/reload", s.handleKBReload)
	admin.GET("/submissions/:ref", s.handleSubmission)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server started", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				s.logger.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.logger.Info("request", fields...)
			return nil
		},
	})
}

// chatRateLimiter limits each client IP on the chat endpoint.
func (s *Server) chatRateLimiter() echo.MiddlewareFunc {
	limit := s.cfg.Server.ChatRateLimit
	if limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	burst := int(limit * 2)
	if burst < 1 {
		burst = 1
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, errorResponse{Error: "unable to identify client"})
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "Too many messages, please slow down."})
		},
	})
}

// adminAuth requires the bearer admin token when one is configured.
func (s *Server) adminAuth() echo.MiddlewareFunc {
	token := s.cfg.Server.AdminToken
	if token == "" {
		s.logger.Warn("admin token not set, admin endpoints are unauthenticated")
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(key string, _ echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
		},
	})
}

func originsOrAll(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
