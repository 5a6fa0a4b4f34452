// Command notify-worker consumes ledger events and turns them into family
// notifications.
package main

import (
	"context"
	"os"

	"pocketmoney/internal/cli"
	"pocketmoney/internal/log"
	"pocketmoney/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentNotify)
	logger.Info("starting notify-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for notify-worker")
		os.Exit(1)
	}
	client := cli.NewAMQPClient(cfg, logger)
	if client == nil {
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	processor := services.NewNotifyProcessor(client, services.LogNotifier{Logger: logger},
		logger, services.DefaultNotifyProcessorConfig())
	if err := processor.Start(ctx); err != nil {
		logger.Error("failed to start notify processor", log.FieldError, err)
		os.Exit(1)
	}

	janitor := cli.NewJanitor(logger)
	janitor.Register("notify_seen", processor.Seen())
	go janitor.Run(ctx)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
	defer cancel()
	if err := processor.Stop(shutdownCtx); err != nil {
		logger.Warn("notify processor did not stop cleanly", log.FieldError, err)
	}
	logger.Info("notify-worker shutdown complete")
}
