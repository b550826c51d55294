package main

import (
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hospiq/queue-backend/config"
	"github.com/hospiq/queue-backend/internal/api/routes"
	"github.com/hospiq/queue-backend/internal/queue"
	"github.com/hospiq/queue-backend/internal/store"
	"github.com/hospiq/queue-backend/pkg/storage/mariadb"
	"github.com/hospiq/queue-backend/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	var st store.Store
	switch cfg.StoreDriver {
	case "mysql":
		db, err := mariadb.Connect(cfg)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		st = store.NewMySQLStore(db)
		log.Info("using mysql store", "host", cfg.DBHost, "database", cfg.DBName)
	default:
		st = store.NewMemStore()
		log.Info("using in-memory store")
	}

	hub := ws.NewHub(log)
	engine := queue.NewEngine(st, hub, queue.SystemClock(), log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	routes.Init(e, engine, hub, log)

	log.Info("server listening", "port", cfg.Port, "env", cfg.AppEnv)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
