package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"pocketmoney/internal/cli"
	apphttp "pocketmoney/internal/http"
	"pocketmoney/internal/log"
	"pocketmoney/internal/middleware/ratelimit"
	"pocketmoney/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	gen, lessons, err := cli.NewContent(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize content generator", log.FieldError, err)
		os.Exit(1)
	}

	publisher := cli.NewAMQPClient(cfg, logger)
	if publisher != nil {
		defer publisher.Close()
	}

	household, err := cli.OpenHousehold(ctx, cfg, logger, gen, publisher)
	if err != nil {
		logger.Error("failed to open household", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer household.Journal.Close()

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RequestsPerMinute,
		IdleAfter:         ratelimit.DefaultConfig().IdleAfter,
	})
	srv := apphttp.NewServer(":"+cfg.Port, household.Household, apphttp.Options{
		Logger:  logger,
		Limiter: limiter,
		Ready:   household.Journal.Ping,
	})

	janitor := cli.NewJanitor(logger)
	janitor.Register("lessons", lessons)
	janitor.Register("rate_limit", limiter)

	allowances := services.NewAllowanceProcessor(household.Household)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting pocketmoney server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return allowances.Run(gctx, cfg.AllowanceInterval, time.Now)
	})
	g.Go(func() error {
		return janitor.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
