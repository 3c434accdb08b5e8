// Package api assembles the Gin engine serving the availability cache.
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/app"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/cache"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/events"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/handlers"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/middleware"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/prewarm"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, cfg *app.Config, store *cache.Store, dispatcher *events.Dispatcher, orch *prewarm.Orchestrator) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store must be provided")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("event dispatcher must be provided")
	}
	if orch == nil {
		return nil, fmt.Errorf("pre-warm orchestrator must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	prewarmHandler := handlers.NewPrewarmHandler(orch)
	availabilityHandler := handlers.NewAvailabilityHandler(store)
	eventsHandler := handlers.NewEventsHandler(dispatcher)

	api := r.Group("/rtac-cache")
	api.Use(middleware.Tenant())
	{
		api.POST("/prewarm", prewarmHandler.Submit)
		api.GET("/prewarm", prewarmHandler.List)
		api.GET("/prewarm/:id", prewarmHandler.Status)
		api.GET("/availability/:instanceId", availabilityHandler.ByInstance)
		api.POST("/events", eventsHandler.Ingest)
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
