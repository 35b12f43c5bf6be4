package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cuberootdigital/sig-backend/certcheck"
	"github.com/cuberootdigital/sig-backend/config"
	"github.com/cuberootdigital/sig-backend/handler"
	"github.com/cuberootdigital/sig-backend/logger"
	"github.com/cuberootdigital/sig-backend/render"
	"github.com/cuberootdigital/sig-backend/store"
	"github.com/cuberootdigital/sig-backend/upload"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sig-backend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := store.New(ctx, cfg.StoreBackend, store.Options{
		DataDir:     cfg.DataDir,
		SqlitePath:  cfg.SqlitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return fmt.Errorf("create store (backend=%s): %w", cfg.StoreBackend, err)
	}
	defer backend.Close()

	pages, err := render.New()
	if err != nil {
		return err
	}

	h := handler.New(
		store.NewRecords(backend),
		pages,
		&certcheck.TLSChecker{Port: cfg.CertCheckPort, Timeout: cfg.CertCheckTimeout},
		&upload.Intake{},
		log,
		handler.Options{
			BasePath:       cfg.BasePath,
			PublicURL:      cfg.PublicURL,
			AllowedOrigins: cfg.AllowedOrigins,
			MaxBodyBytes:   cfg.MaxUploadBytes(),
			PublicDir:      cfg.PublicDir,
		},
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("base_path", cfg.BasePath),
			zap.String("store", cfg.StoreBackend),
			zap.String("data_dir", cfg.DataDir),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
