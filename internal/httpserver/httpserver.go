package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"

	"github.com/orgball2608/social-feed-bot/internal/feed"
	"github.com/orgball2608/social-feed-bot/pkg/config"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

type Opts struct {
	fx.In
	LC fx.Lifecycle

	Reconciler *feed.Reconciler
	Loader     *feed.Loader
	Config     *config.Config
	Logger     logger.Logger
}

// Server exposes the health check and a read-only JSON view of the feed.
type Server struct {
	reconciler *feed.Reconciler
	loader     *feed.Loader
	logger     logger.Logger
	srv        *http.Server
}

func New(opts Opts) *Server {
	if opts.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		reconciler: opts.Reconciler,
		loader:     opts.Loader,
		logger:     opts.Logger.WithComponent("HttpServer"),
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Config.App.Port),
		Handler:           otelhttp.NewHandler(s.Router(), "http"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	opts.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", s.srv.Addr)
			if err != nil {
				return err
			}
			s.logger.Info("Starting server", "addr", s.srv.Addr)
			go func() {
				if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					s.logger.Error("Server stopped unexpectedly", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.srv.Shutdown(ctx)
		},
	})
	return s
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Health)
	r.GET("/feed", s.ListFeed)
	r.GET("/feed/:id", s.GetCard)
	r.POST("/feed/refresh", s.Refresh)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
