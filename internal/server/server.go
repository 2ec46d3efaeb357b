// Package server is the GradeFresh web frontend: public marketing pages,
// sign-in and registration, the fruit quality checker and the admin
// back-office. Every page is rendered server-side; all data comes from the
// GradeFresh API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gradefresh-dev/gradefresh/internal/apiclient"
	"github.com/gradefresh-dev/gradefresh/internal/cache"
	"github.com/gradefresh-dev/gradefresh/internal/config"
	"github.com/gradefresh-dev/gradefresh/internal/content"
	"github.com/gradefresh-dev/gradefresh/internal/metrics"
	"github.com/gradefresh-dev/gradefresh/internal/session"
)

// maxUploadSize matches the limit advertised on the upload form
const maxUploadSize = 10 << 20

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	config    *config.Config
	logger    zerolog.Logger
	api       *apiclient.Client
	cache     *cache.Client
	metrics   *metrics.Metrics
	content   *content.Content
	templates *templates
	cookies   session.CookieOptions
	version   string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	siteContent, err := content.Default()
	if err != nil {
		return nil, err
	}

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	newsCache := cache.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if newsCache == nil {
		zlog.Info().Msg("REDIS_ADDRESS not set - news cache disabled")
	}

	server := &Server{
		config:    cfg,
		logger:    zlog,
		api:       apiclient.New(cfg.API.URL, cfg.API.Timeout),
		cache:     newsCache,
		metrics:   metrics.New(),
		content:   siteContent,
		templates: tmpl,
		cookies: session.CookieOptions{
			Path:   "/",
			Domain: cfg.Session.CookieDomain,
			MaxAge: cfg.Session.MaxAge,
			Secure: cfg.Session.CookieSecure,
		},
		version: version,
	}

	server.setupRouter()

	return server, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	s.router = gin.New()
	s.router.MaxMultipartMemory = maxUploadSize

	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(otelgin.Middleware(s.serviceName(), otelgin.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/health" && r.URL.Path != "/metrics"
	})))
	s.router.Use(s.loggingMiddleware())
	s.router.Use(s.metricsMiddleware())

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// Public pages
	s.router.GET("/", s.homePage)
	s.router.GET("/about", s.aboutPage)
	s.router.GET("/faq", s.faqPage)
	s.router.GET("/contact", s.contactPage)
	s.router.POST("/contact", s.submitContact)
	s.router.GET("/news", s.newsPage)

	// Sign-in and registration
	s.router.GET("/register", s.registerPage)
	s.router.POST("/register", s.register)
	s.router.GET("/signin", s.signInPage)
	s.router.POST("/signin", s.signIn)
	s.router.GET("/admin/login", s.adminLoginPage)
	s.router.POST("/admin/login", s.adminLogin)
	s.router.POST("/logout", s.logout)

	// Session state for client-side scripts
	api := s.router.Group("/api")
	api.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	api.GET("/session", s.sessionState)

	// Signed-in visitors
	quality := s.router.Group("/quality")
	quality.Use(s.guardMiddleware(&session.Guard{}))
	{
		quality.GET("", s.qualityPage)
		quality.POST("", s.analyzeImage)
		quality.POST("/report", s.downloadReport)
	}

	// Admin back-office
	admin := s.router.Group("/admin")
	admin.Use(s.guardMiddleware(session.AdminGuard()))
	{
		admin.GET("", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/admin/dashboard")
		})
		admin.GET("/dashboard", s.dashboardPage)

		admin.GET("/users", s.usersPage)
		admin.POST("/users/:id/delete", s.deleteUser)

		admin.GET("/news", s.adminNewsPage)
		admin.GET("/news/create", s.createNewsPage)
		admin.POST("/news/create", s.createNews)
		admin.GET("/news/:id/edit", s.editNewsPage)
		admin.POST("/news/:id/edit", s.updateNews)
		admin.POST("/news/:id/delete", s.deleteNews)
	}

	s.router.NoRoute(func(c *gin.Context) {
		s.render(c, http.StatusNotFound, "not_found", gin.H{"Title": "Page not found"})
	})
}

func (s *Server) serviceName() string {
	if s.config.Tracing.ServiceName != "" {
		return s.config.Tracing.ServiceName
	}
	return "gradefresh-web"
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthCheck(c *gin.Context) {
	status := gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "gradefresh-web",
		"version":   s.version,
		"cache":     "disabled",
	}
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := s.cache.Ping(ctx); err != nil {
			status["cache"] = "unavailable"
		} else {
			status["cache"] = "ok"
		}
	}
	c.JSON(http.StatusOK, status)
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Server.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
		// Uploads are forwarded to the classifier, which can be slow
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      s.config.API.Timeout + 30*time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("api_url", s.api.BaseURL()).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	case <-sigChan:
	}
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if err := s.cache.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing Redis client")
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
