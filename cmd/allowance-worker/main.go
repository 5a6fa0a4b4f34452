// Command allowance-worker pays due allowances from the journal. It must not
// run against the database of a live pocketmoney server, which pays
// allowances itself.
package main

import (
	"os"
	"time"

	"pocketmoney/internal/cli"
	"pocketmoney/internal/log"
	"pocketmoney/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentAllowance)
	logger.Info("starting allowance-worker")

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	publisher := cli.NewAMQPClient(cfg, logger)
	if publisher != nil {
		defer publisher.Close()
	}

	household, err := cli.OpenHousehold(ctx, cfg, logger, nil, publisher)
	if err != nil {
		logger.Error("failed to open household", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer household.Journal.Close()

	processor := services.NewAllowanceProcessor(household.Household)
	logger.Info("allowance processor configured",
		"interval", cfg.AllowanceInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	if err := processor.Run(ctx, cfg.AllowanceInterval, time.Now); err != nil {
		logger.Error("allowance processor failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("allowance-worker shutdown complete")
}
