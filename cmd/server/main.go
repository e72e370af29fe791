package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/config"
	"github.com/edusys/activityhub/internal/db"
	"github.com/edusys/activityhub/internal/handlers"
	"github.com/edusys/activityhub/internal/services"
	"github.com/edusys/activityhub/internal/web"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load", zap.Error(err))
	}

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}

	svc := services.New(conn, log, cfg.PageSize)
	sessions := auth.NewSessions(
		[]byte(cfg.SessionHashKey), []byte(cfg.SessionBlockKey), !cfg.Dev)
	h := handlers.New(svc, sessions, log, cfg.BcryptCost)

	router := web.Router(h, sessions, log, web.Options{
		CSRFKey: []byte(cfg.CSRFKey),
		Dev:     cfg.Dev,
	})

	log.Info("activityhub listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatal("server", zap.Error(err))
	}
}
