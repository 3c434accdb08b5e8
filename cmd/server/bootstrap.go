package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/api"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/app"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/app/maintenance"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/cache"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/database"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/events"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/generation"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/prewarm"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/refdata"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB           *gorm.DB
	Store        *cache.Store
	Orchestrator *prewarm.Orchestrator
	Sweeper      *maintenance.Sweeper
	Router       *gin.Engine
}

// bootstrapRuntime initialises the database, gateway, synchronization flows,
// and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Store, err = cache.NewStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise cache store: %w", err)
	}

	gw, err := gateway.NewClient(gateway.ClientConfig{
		BaseURL:  cfg.Gateway.BaseURL,
		Token:    cfg.Gateway.Token,
		Timeout:  cfg.Gateway.Timeout,
		RetryMax: cfg.Gateway.RetryMax,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise gateway client: %w", err)
	}

	ref, err := refdata.NewLookup(gw)
	if err != nil {
		return nil, fmt.Errorf("initialise reference lookup: %w", err)
	}

	pipeline, err := generation.NewPipeline(gw, stack.Store, ref, generation.Config{
		HoldingsPageSize:    cfg.Sync.HoldingsPageSize,
		ItemsPageSize:       cfg.Sync.ItemsPageSize,
		PiecesLimit:         cfg.Sync.PiecesLimit,
		EnrichmentChunkSize: cfg.Sync.EnrichmentChunkSize,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise generation pipeline: %w", err)
	}

	handlers, err := events.DefaultHandlers(stack.Store, ref)
	if err != nil {
		return nil, fmt.Errorf("initialise event handlers: %w", err)
	}
	dispatcher, err := events.NewDispatcher(handlers...)
	if err != nil {
		return nil, fmt.Errorf("initialise event dispatcher: %w", err)
	}

	jobs, err := prewarm.NewJobStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise job store: %w", err)
	}
	stack.Orchestrator, err = prewarm.NewOrchestrator(pipeline, stack.Store, jobs,
		prewarm.WithBatchSize(cfg.Sync.PrewarmBatchSize))
	if err != nil {
		return nil, fmt.Errorf("initialise pre-warm orchestrator: %w", err)
	}

	if cfg.Retention.Enabled {
		stack.Sweeper, err = maintenance.NewSweeper(stack.Store,
			maintenance.WithRetentionDays(cfg.Retention.Days),
			maintenance.WithSchedule(cfg.Retention.Schedule),
		)
		if err != nil {
			return nil, fmt.Errorf("initialise retention sweeper: %w", err)
		}
		if err := stack.Sweeper.Start(); err != nil {
			return nil, fmt.Errorf("start retention sweeper: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(stack.DB, cfg, stack.Store, dispatcher, stack.Orchestrator)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Orchestrator != nil {
		s.Orchestrator.Wait()
	}

	if s.Sweeper != nil {
		stopCtx := s.Sweeper.Stop()
		<-stopCtx.Done()
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.MustMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
