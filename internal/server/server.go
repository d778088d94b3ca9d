// Package server exposes the publication repository over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/pubd/internal/config"
	"github.com/danmuck/pubd/internal/observability"
	"github.com/danmuck/pubd/internal/repository"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	version         = "0.0.1"
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	ID           string            `json:"id"`
	Addr         string            `json:"addr"`
	MaxBodyBytes int64             `json:"max_body_bytes"`
	Appeared     time.Time         `json:"appeared"`
	Store        *repository.Store `json:"-"`

	router *gin.Engine
}

func Appear(id, addr string, corsOrigins []string, store *repository.Store) *Server {
	observability.RegisterMetrics()
	if store == nil {
		store = repository.New()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestObserver(id, log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Server{
		ID:           id,
		Addr:         addr,
		MaxBodyBytes: config.DefaultMaxBodyBytes,
		Appeared:     time.Now(),
		Store:        store,
		router:       r,
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":      true,
			"uptime":     time.Since(s.Appeared).String(),
			"service":    s.ID,
			"version":    version,
			"publishers": len(s.Store.Publishers()),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/publishers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"publishers": s.Store.Publishers(),
		})
	})

	s.router.POST("/rfc8181/:publisher", s.handlePublication)
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context) error {
	s.RegisterRoutes()
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("node", s.ID).
			Str("addr", s.Addr).
			Msg("publication server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Str("node", s.ID).Msg("publication server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
