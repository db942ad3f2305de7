package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/intrepidkarthi/feaws-sub001/internal/api"
	"github.com/intrepidkarthi/feaws-sub001/internal/config"
	"github.com/intrepidkarthi/feaws-sub001/internal/registry"
	"github.com/intrepidkarthi/feaws-sub001/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	var st store.Store
	switch cfg.DBBackend {
	case config.BackendBolt:
		st, err = store.NewBoltStore(cfg.BoltPath, nil)
	default:
		st, err = store.NewPostgresStore(context.Background(), cfg.DBSource, nil)
	}
	if err != nil {
		logger.Fatal("unable to open store", zap.Error(err))
	}
	defer st.Close()

	reg := registry.New(st, nil, logger)
	handler := api.NewHandler(reg)
	router := api.NewRouter(handler, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server starting",
		zap.String("port", cfg.Port),
		zap.String("backend", cfg.DBBackend),
		zap.String("env", cfg.Env),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown incomplete", zap.Error(err))
		}
	}
}
