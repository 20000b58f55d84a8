package bootstrap

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"hookboard/internal/api"
	"hookboard/internal/config"
	"hookboard/internal/migrate"
	"hookboard/internal/observability"
	"hookboard/internal/providers/github"
	"hookboard/internal/store"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jackc/pgx/v5/stdlib"

	_ "modernc.org/sqlite"
)

type Runtime struct {
	Handler http.Handler
	Cleanup func()
}

func NewRuntime(ctx context.Context, cfg config.Config, logger logr.Logger) *Runtime {
	st, cleanup := buildStore(ctx, cfg, logger)

	server := api.NewServerWithOptions(st, github.Parser{}, logger.WithName("api"), api.ServerOptions{
		EventTypeHeader: github.EventTypeHeader,
		DeliveryHeader:  github.DeliveryHeader,
	})

	metrics := observability.NewHTTPMetrics()
	rootMux := http.NewServeMux()
	rootMux.Handle("/metrics", promhttp.Handler())
	rootMux.Handle("/", metrics.Wrap(server.Routes()))

	return &Runtime{
		Handler: rootMux,
		Cleanup: cleanup,
	}
}

func buildStore(ctx context.Context, cfg config.Config, logger logr.Logger) (store.Store, func()) {
	if cfg.DBDriver == "" || cfg.DBDSN == "" {
		logger.Info("running with in-memory store; events are lost on restart")
		return store.NewMemoryStore(), func() {}
	}

	db, err := sql.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Error(err, "db open failed, falling back to in-memory store")
		return store.NewMemoryStore(), func() {}
	}
	if cfg.DBDialect == "sqlite" {
		// modernc sqlite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error(err, "db ping failed, falling back to in-memory store")
		_ = db.Close()
		return store.NewMemoryStore(), func() {}
	}

	if cfg.DBMigrate {
		if err := migrate.Apply(ctx, db, cfg.DBDialect); err != nil {
			logger.Error(err, "migration apply failed, falling back to in-memory store")
			_ = db.Close()
			return store.NewMemoryStore(), func() {}
		}
	}

	st, err := store.NewSQLStore(db, cfg.DBDialect)
	if err != nil {
		logger.Error(err, "sql store init failed, falling back to in-memory store")
		_ = db.Close()
		return store.NewMemoryStore(), func() {}
	}
	logger.Info("running with SQL store", "dialect", cfg.DBDialect)
	return st, func() { _ = db.Close() }
}
