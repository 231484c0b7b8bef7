package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"wanworker/internal/handler"
	"wanworker/internal/http/handlers"
	httpapi "wanworker/internal/http/httpapi"
	"wanworker/internal/infra"
	"wanworker/internal/platform"
	"wanworker/internal/storage"
	"wanworker/internal/wan"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ensurer := wan.NewEnsurer(wan.EnsurerOptions{
		RepoURL:      cfg.ModelRepoURL,
		RepoPath:     cfg.ModelRepoPath,
		VolumePath:   cfg.VolumePath,
		AutoDownload: cfg.AutoDownload,
		Logger:       logger,
	})

	// Warm the clone before taking jobs; weight downloads stay lazy because
	// only the variants actually requested should land on the volume.
	if err := ensurer.EnsureRepo(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker: generation repo unavailable")
	}

	runner := wan.NewRunner(wan.RunnerOptions{
		PythonBin:  cfg.PythonBin,
		RepoPath:   cfg.ModelRepoPath,
		VolumePath: cfg.VolumePath,
		OutputDir:  cfg.OutputDir,
		Logger:     logger,
	})

	var store *storage.FileStore
	if cfg.ArchiveDir != "" {
		store, err = storage.NewFileStore(cfg.ArchiveDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to configure archive storage")
		}
	}

	h := handler.New(handler.Options{
		Generator: runner,
		Ensurer:   ensurer,
		Store:     store,
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	if cfg.PlatformConfigured() {
		client, err := platform.NewClient(platform.Options{
			BaseURL:    cfg.PlatformBaseURL,
			EndpointID: cfg.PlatformEndpointID,
			APIKey:     cfg.PlatformAPIKey,
			WorkerID:   cfg.WorkerID,
			Logger:     &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to configure platform client")
		}
		worker := platform.NewWorker(platform.WorkerOptions{
			Client:       client,
			Handler:      h,
			PollInterval: cfg.PollInterval,
			JobTimeout:   cfg.JobTimeout,
			Logger:       logger,
		})
		g.Go(func() error { return worker.Run(gctx) })
	} else {
		logger.Warn().Msg("worker: platform credentials missing, queue polling disabled")
	}

	if cfg.ServeLocalAPI || !cfg.PlatformConfigured() {
		app := handlers.NewApp(h, cfg.JobTimeout, logger)
		server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, logger))

		g.Go(func() error {
			logger.Info().Msgf("local API listening on :%s", cfg.Port)
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("worker: exited with error")
	}
	logger.Info().Msg("worker stopped")
}
