package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketmoney/internal/amqp"
	"pocketmoney/internal/core"
	"pocketmoney/internal/log"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// chanConsumer delivers events from a channel until ctx is done.
type chanConsumer struct {
	events chan *amqp.LedgerEvent
}

func (c chanConsumer) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-c.events:
			_ = handler(ctx, e)
		}
	}
}

func event(id int64, kind core.Kind, cents int64) *amqp.LedgerEvent {
	return amqp.NewLedgerEvent(core.Transaction{
		ID:          core.TransactionID(id),
		AccountID:   "leo",
		Amount:      core.Cents(cents),
		Description: "Comic",
		Kind:        kind,
		Category:    "Books",
		Timestamp:   time.Now(),
	}, "Leo")
}

func TestNotificationFor(t *testing.T) {
	tests := []struct {
		name  string
		event *amqp.LedgerEvent
		title string
		body  string
	}{
		{"spend", event(1, core.Spend, -300), "Purchase", "Leo spent 3.00 on Comic (Books)"},
		{"earn", event(2, core.Earn, 500), "Money earned", "Leo earned 5.00: Comic"},
		{"transfer in", event(3, core.Transfer, 2000), "Money received", "Leo received 20.00: Comic"},
		{"transfer out", event(4, core.Transfer, -1000), "Money moved", "Leo moved 10.00: Comic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NotificationFor(tt.event)
			assert.Equal(t, tt.title, n.Title)
			assert.Equal(t, tt.body, n.Body)
			assert.Equal(t, core.AccountID("leo"), n.AccountID)
		})
	}
}

func TestNotifyHandleSkipsDuplicates(t *testing.T) {
	notifier := &recordingNotifier{}
	p := NewNotifyProcessor(nil, notifier, nil, DefaultNotifyProcessorConfig())
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, event(1, core.Earn, 100)))
	require.NoError(t, p.Handle(ctx, event(1, core.Earn, 100)))
	require.NoError(t, p.Handle(ctx, event(2, core.Earn, 100)))

	assert.Equal(t, 2, notifier.count())
}

func TestNotifyHandleFailureAllowsRedelivery(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("unreachable")}
	p := NewNotifyProcessor(nil, notifier, nil, DefaultNotifyProcessorConfig())
	ctx := context.Background()

	assert.Error(t, p.Handle(ctx, event(1, core.Earn, 100)))

	notifier.mu.Lock()
	notifier.err = nil
	notifier.mu.Unlock()
	require.NoError(t, p.Handle(ctx, event(1, core.Earn, 100)))
	assert.Equal(t, 1, notifier.count())
}

func TestNotifyProcessorLifecycle(t *testing.T) {
	consumer := chanConsumer{events: make(chan *amqp.LedgerEvent)}
	notifier := &recordingNotifier{}
	p := NewNotifyProcessor(consumer, notifier, log.Discard(), DefaultNotifyProcessorConfig())
	ctx := context.Background()

	assert.False(t, p.IsRunning())
	require.NoError(t, p.Start(ctx))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(ctx))

	consumer.events <- event(7, core.Spend, -150)
	assert.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, p.Stop(stopCtx))
	assert.False(t, p.IsRunning())
	require.NoError(t, p.Stop(stopCtx))
}

func TestNotifyProcessorRequiresCollaborators(t *testing.T) {
	p := NewNotifyProcessor(nil, nil, nil, DefaultNotifyProcessorConfig())
	assert.Error(t, p.Start(context.Background()))
	assert.False(t, p.IsRunning())
}

func TestLogNotifier(t *testing.T) {
	n := LogNotifier{Logger: log.Discard()}
	assert.NoError(t, n.Notify(context.Background(), Notification{Title: "Purchase"}))
}
