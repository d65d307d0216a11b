package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ninnin76-design/sm-manager/internal/config"
	"github.com/ninnin76-design/sm-manager/internal/export"
	"github.com/ninnin76-design/sm-manager/internal/handler"
	"github.com/ninnin76-design/sm-manager/internal/logger"
	"github.com/ninnin76-design/sm-manager/internal/middleware"
	"github.com/ninnin76-design/sm-manager/internal/service"
	"github.com/ninnin76-design/sm-manager/internal/store"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg := config.Load(*configFile)
	closer := logger.Init(cfg.Log)
	defer closer.Close()

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("store open failed", "driver", cfg.Database.Driver, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	catalogSync, err := service.NewCatalogSync(cfg)
	if err != nil {
		logger.Warn("catalog sync disabled", "err", err)
	}
	if catalogSync != nil {
		logger.Info("catalog sync enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archive, err := export.New(ctx, cfg.Export)
	if err != nil {
		logger.Error("export archive init failed", "err", err)
		os.Exit(1)
	}

	aiSvc := service.NewAIService(cfg)
	scheduleSvc := service.NewScheduleService(st, aiSvc, catalogSync)
	memberSvc := service.NewMemberService(st, catalogSync)
	authSvc := service.NewAuthService(st, cfg.Auth)
	tokens := middleware.NewTokens(cfg.Auth)

	r := handler.NewRouter(handler.Handlers{
		Tokens:    tokens,
		Auth:      handler.NewAuthHandler(authSvc, tokens),
		Members:   handler.NewMemberHandler(memberSvc),
		Schedules: handler.NewScheduleHandler(scheduleSvc),
		Export:    handler.NewExportHandler(scheduleSvc, archive),
		Admin:     handler.NewAdminHandler(scheduleSvc),
	})

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("server starting", "addr", cfg.Addr(), "driver", cfg.Database.Driver, "ai", cfg.AI.Provider)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "err", err)
	}
}
