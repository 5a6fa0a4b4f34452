package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"pocketmoney/internal/amqp"
	"pocketmoney/internal/cache"
	"pocketmoney/internal/core"
	"pocketmoney/internal/log"
)

// Consumer delivers ledger events until ctx is done. amqp.Client implements it.
type Consumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// Notification is the household facing message derived from a ledger event.
type Notification struct {
	AccountID core.AccountID
	Title     string
	Body      string
}

// Notifier delivers notifications. The worker ships with LogNotifier.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(ctx context.Context, msg Notification) error {
	n.Logger.InfoContext(ctx, msg.Title, log.FieldAccountID, msg.AccountID, "body", msg.Body)
	return nil
}

type NotifyProcessorConfig struct {
	// DedupSize is how many transaction IDs are remembered for redelivery checks.
	DedupSize int
	DedupTTL  time.Duration
}

func DefaultNotifyProcessorConfig() NotifyProcessorConfig {
	return NotifyProcessorConfig{
		DedupSize: 1024,
		DedupTTL:  time.Hour,
	}
}

// NotifyProcessor turns ledger events into notifications. Events are at least
// once, so recently seen transaction IDs are skipped.
type NotifyProcessor struct {
	consumer Consumer
	notifier Notifier
	seen     *cache.LRU[struct{}]
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

func NewNotifyProcessor(consumer Consumer, notifier Notifier, logger *log.Logger, config NotifyProcessorConfig) *NotifyProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &NotifyProcessor{
		consumer: consumer,
		notifier: notifier,
		seen:     cache.NewLRU[struct{}](config.DedupSize, config.DedupTTL),
		logger:   logger.WithComponent(log.ComponentNotify),
	}
}

// Seen exposes the dedup cache so it can be swept by a cache.Janitor.
func (p *NotifyProcessor) Seen() cache.Sweeper { return p.seen }

// Start begins consuming. Returns an error if already running.
func (p *NotifyProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("notify processor is already running")
	}
	if p.consumer == nil || p.notifier == nil {
		return fmt.Errorf("processor not properly initialized")
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.doneCh = make(chan struct{})
	p.running = true

	go func(done chan struct{}) {
		defer close(done)
		if err := p.consumer.ConsumeLedgerEvents(ctx, p.Handle); err != nil && ctx.Err() == nil {
			p.logger.LogError(ctx, "ledger event consumer stopped", err, log.OpRead, nil)
		}
	}(p.doneCh)

	p.logger.InfoContext(ctx, "notify processor started")
	return nil
}

// Stop cancels consumption and waits for the consumer to return.
func (p *NotifyProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.cancel()
	done := p.doneCh
	p.mu.Unlock()

	select {
	case <-done:
		p.logger.InfoContext(ctx, "notify processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "notify processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *NotifyProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Handle processes one event. A notifier error is returned so the event is
// redelivered.
func (p *NotifyProcessor) Handle(ctx context.Context, e *amqp.LedgerEvent) error {
	key := strconv.FormatInt(e.TransactionID, 10)
	if _, ok := p.seen.Get(key); ok {
		p.logger.DebugContext(ctx, "duplicate ledger event skipped", log.FieldTxID, e.TransactionID)
		return nil
	}
	if err := p.notifier.Notify(ctx, NotificationFor(e)); err != nil {
		return fmt.Errorf("notify transaction %d: %w", e.TransactionID, err)
	}
	p.seen.Set(key, struct{}{})
	return nil
}

// NotificationFor renders the message for a ledger event.
func NotificationFor(e *amqp.LedgerEvent) Notification {
	amount := e.Amount()
	who := e.AccountName
	if who == "" {
		who = e.AccountID
	}
	n := Notification{AccountID: core.AccountID(e.AccountID)}
	switch core.Kind(e.Kind) {
	case core.Spend:
		n.Title = "Purchase"
		n.Body = fmt.Sprintf("%s spent %s on %s", who, amount.Neg(), e.Description)
		if e.Category != "" {
			n.Body += " (" + e.Category + ")"
		}
	case core.Earn:
		n.Title = "Money earned"
		n.Body = fmt.Sprintf("%s earned %s: %s", who, amount, e.Description)
	default:
		if amount.IsNegative() {
			n.Title = "Money moved"
			n.Body = fmt.Sprintf("%s moved %s: %s", who, amount.Neg(), e.Description)
		} else {
			n.Title = "Money received"
			n.Body = fmt.Sprintf("%s received %s: %s", who, amount, e.Description)
		}
	}
	return n
}
