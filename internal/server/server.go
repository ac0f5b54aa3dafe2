// Package server exposes verification over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/policyvoice/corroborate/internal/classify"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/pipeline"
)

const requestIDHeader = "X-Request-ID"

// Service is what the HTTP layer needs from the pipeline
type Service interface {
	Verify(ctx context.Context, story model.Story) model.AggregatedVerification
	Route(story model.Story) []classify.Route
	Adapters() []pipeline.AdapterInfo
	Quotas(ctx context.Context) ([]pipeline.QuotaStatus, error)
}

// Server is the HTTP API
type Server struct {
	svc      Service
	gatherer prometheus.Gatherer
	cfg      model.ServerConfig
	logger   *zap.Logger
	engine   *gin.Engine
}

// New creates the server and its routes
func New(svc Service, gatherer prometheus.Gatherer, cfg model.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		svc:      svc,
		gatherer: gatherer,
		cfg:      cfg,
		logger:   logger,
		engine:   gin.New(),
	}
	s.engine.Use(requestID(), accessLog(logger), gin.Recovery())
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, requestIDHeader)
		corsCfg.ExposeHeaders = []string{requestIDHeader}
		if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
			corsCfg.AllowAllOrigins = true
		} else {
			corsCfg.AllowOrigins = cfg.AllowedOrigins
		}
		s.engine.Use(cors.New(corsCfg))
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	if s.gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/verify", s.verify)
		v1.POST("/route", s.route)
		v1.GET("/adapters", s.adapters)
		v1.GET("/quotas", s.quotas)
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is done, then drains
// in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "requestId": c.GetString("request_id")})
}

func (s *Server) health(c *gin.Context) {
	enabled := 0
	for _, a := range s.svc.Adapters() {
		if a.Enabled {
			enabled++
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "adapters": enabled})
}

// bindStory decodes and checks a story body
func bindStory(c *gin.Context) (model.Story, bool) {
	var story model.Story
	if err := c.ShouldBindJSON(&story); err != nil {
		fail(c, http.StatusBadRequest, "invalid story: "+err.Error())
		return story, false
	}
	if story.Headline == "" && story.Body == "" {
		fail(c, http.StatusBadRequest, "story needs a headline or body")
		return story, false
	}
	return story, true
}

func (s *Server) verify(c *gin.Context) {
	story, ok := bindStory(c)
	if !ok {
		return
	}
	if story.ID == "" {
		story.ID = uuid.NewString()
	}

	ctx := c.Request.Context()
	if s.cfg.VerifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.VerifyTimeout)
		defer cancel()
	}

	c.JSON(http.StatusOK, s.svc.Verify(ctx, story))
}

func (s *Server) route(c *gin.Context) {
	story, ok := bindStory(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"policyArea": model.ParsePolicyArea(string(story.PolicyArea)),
		"routes":     s.svc.Route(story),
	})
}

func (s *Server) adapters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"adapters": s.svc.Adapters()})
}

func (s *Server) quotas(c *gin.Context) {
	quotas, err := s.svc.Quotas(c.Request.Context())
	if err != nil {
		s.logger.Error("quota lookup failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "quota lookup failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotas": quotas})
}
