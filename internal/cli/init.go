// Package cli provides the start-up steps shared by cmd/pocketmoney,
// cmd/allowance-worker and cmd/notify-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pocketmoney/internal/amqp"
	"pocketmoney/internal/cache"
	"pocketmoney/internal/config"
	"pocketmoney/internal/content"
	"pocketmoney/internal/core"
	"pocketmoney/internal/goals"
	"pocketmoney/internal/ledger"
	"pocketmoney/internal/log"
	"pocketmoney/internal/services"
	"pocketmoney/internal/storage"
)

// ShutdownTimeout bounds graceful shutdown of every binary.
const ShutdownTimeout = 30 * time.Second

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig() *config.Config {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		log.New(log.DefaultConfig()).Error("configuration invalid", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger from cfg and makes it the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
	}()
	return ctx, stop
}

// NewContent returns the content generator used by the household. Without a
// Gemini key the offline set is served. The lesson cache is returned so it
// can be swept.
func NewContent(ctx context.Context, cfg *config.Config, logger *log.Logger) (content.Generator, *cache.LRU[core.Lesson], error) {
	lessons := cache.NewLRU[core.Lesson](cfg.LessonCacheSize, cfg.LessonCacheTTL)
	var primary content.Generator = content.Offline
	if cfg.ContentEnabled() {
		g, err := content.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini: %w", err)
		}
		primary = g
		logger.Info("remote content enabled", "model", cfg.GeminiModel)
	}
	contentLog := logger.WithComponent(log.ComponentContent)
	return content.NewResilient(primary, content.Recovery, cfg.ContentTimeout, lessons, contentLog), lessons, nil
}

// NewAMQPClient connects to the broker when AMQP is configured. A nil client
// means events are not published.
func NewAMQPClient(cfg *config.Config, logger *log.Logger) *amqp.Client {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP disabled, ledger events will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	return client
}

// Household is a restored household and the journal backing it.
type Household struct {
	*services.Household
	Journal *storage.Journal
}

// OpenHousehold opens the journal, replays it into a new household and
// returns both. gen and publisher may be nil.
func OpenHousehold(ctx context.Context, cfg *config.Config, logger *log.Logger, gen content.Generator, publisher *amqp.Client) (*Household, error) {
	journal, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	state, err := journal.Load(ctx)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("load journal: %w", err)
	}

	l := ledger.New()
	var vaultPolicy goals.Policy
	if cfg.RejectOverdraft {
		vaultPolicy.Overdraft = goals.RejectOverdraft
	}
	if cfg.RejectOverWithdrawal {
		vaultPolicy.Withdrawal = goals.RejectOverWithdrawal
	}
	deps := services.Deps{
		Ledger:  l,
		Goals:   goals.NewVault(l, goals.WithPolicy(vaultPolicy)),
		Content: gen,
		Journal: journal,
		Logger:  logger,
	}
	// Assigning a nil *amqp.Client would leave a non-nil interface.
	if publisher != nil {
		deps.Publisher = publisher
	}
	h := services.NewHousehold(deps)
	if err := h.Restore(ctx, state); err != nil {
		journal.Close()
		return nil, err
	}
	logger.Info("journal opened", "path", cfg.SQLiteDBPath)
	return &Household{Household: h, Journal: journal}, nil
}

// NewJanitor returns a janitor sweeping every minute.
func NewJanitor(logger *log.Logger) *cache.Janitor {
	return cache.NewJanitor(logger.WithComponent(log.ComponentCache).Logger, time.Minute)
}
