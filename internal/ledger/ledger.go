// Package ledger is the append-only log of money movements and the account
// store whose balances it derives.
//
// Each account owns a RWMutex that protects its balance and its entry log
// together, so an append and the matching balance change are observed as one
// step. Mutations on different accounts proceed in parallel.
package ledger

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pocketmoney/internal/core"
)

type Ledger struct {
	mu       sync.RWMutex
	accounts map[core.AccountID]*account
	order    []core.AccountID

	seq atomic.Int64
	now func() time.Time

	obsMu     sync.RWMutex
	observers []func(core.Transaction)
}

type account struct {
	mu      sync.RWMutex
	info    core.Account
	balance core.Money
	entries []core.Transaction
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now as the source of transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[core.AccountID]*account),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Observe registers fn to be called with every committed transaction. Calls
// happen after the account lock is released, in the committing goroutine.
func (l *Ledger) Observe(fn func(core.Transaction)) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	l.observers = append(l.observers, fn)
}

// Tx stages entries for a single account inside Update.
type Tx struct {
	acct     *account
	balance  core.Money
	staged   []core.Transaction
	onCommit []func()
}

// Append stages a movement. Zero amounts carry no meaning and are rejected.
func (tx *Tx) Append(amount core.Money, description string, kind core.Kind, category string) error {
	return tx.AppendRef("", amount, description, kind, category)
}

// AppendRef is Append for a movement caused by the entity ref names, such as
// a chore payout. The reference is journaled with the entry.
func (tx *Tx) AppendRef(ref core.Ref, amount core.Money, description string, kind core.Kind, category string) error {
	if amount.IsZero() {
		return core.ErrInvalidAmount
	}
	if err := kind.Validate(); err != nil {
		return err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return core.ErrEmptyDescription
	}
	balance, ok := tx.balance.AddChecked(amount)
	if !ok {
		return fmt.Errorf("balance overflow: %w", core.ErrInvalidAmount)
	}
	tx.staged = append(tx.staged, core.Transaction{
		AccountID:   tx.acct.info.ID,
		Amount:      amount,
		Description: description,
		Kind:        kind,
		Category:    strings.TrimSpace(category),
		Ref:         ref,
	})
	tx.balance = balance
	return nil
}

// OnCommit registers fn to run once the staged entries are committed, while
// the account lock is still held. fn does not run if Update fails.
func (tx *Tx) OnCommit(fn func()) {
	tx.onCommit = append(tx.onCommit, fn)
}

// Balance is the account balance including entries staged so far.
func (tx *Tx) Balance() core.Money {
	return tx.balance
}

// SpentSince totals committed SPEND entries at or after since, as a positive
// amount. Staged entries are not counted.
func (tx *Tx) SpentSince(since time.Time) core.Money {
	var total core.Money
	for i := len(tx.acct.entries) - 1; i >= 0; i-- {
		t := tx.acct.entries[i]
		if t.Timestamp.Before(since) {
			break
		}
		if t.Kind == core.Spend {
			total = total.Sub(t.Amount)
		}
	}
	return total
}

// Account returns the profile of the account being updated.
func (tx *Tx) Account() core.Account {
	a := tx.acct.info
	a.Balance = tx.balance
	return a
}

// Update runs fn inside the account's exclusive section. Entries staged by fn
// are committed only when fn returns nil; otherwise nothing is applied.
func (l *Ledger) Update(id core.AccountID, fn func(*Tx) error) ([]core.Transaction, error) {
	a, err := l.lookup(id)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	tx := &Tx{acct: a, balance: a.balance}
	if err := fn(tx); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	committed := l.commit(a, tx.staged)
	for _, fn := range tx.onCommit {
		fn()
	}
	a.mu.Unlock()

	l.notify(committed)
	return committed, nil
}

// commit must be called with a.mu held.
func (l *Ledger) commit(a *account, staged []core.Transaction) []core.Transaction {
	if len(staged) == 0 {
		return nil
	}
	ts := l.now()
	for i := range staged {
		staged[i].ID = core.TransactionID(l.seq.Add(1))
		staged[i].Timestamp = ts
		a.entries = append(a.entries, staged[i])
		a.balance = a.balance.Add(staged[i].Amount)
	}
	return staged
}

func (l *Ledger) notify(committed []core.Transaction) {
	if len(committed) == 0 {
		return
	}
	l.obsMu.RLock()
	observers := slices.Clone(l.observers)
	l.obsMu.RUnlock()
	for _, t := range committed {
		for _, fn := range observers {
			fn(t)
		}
	}
}

// Append records one movement and updates the balance in the same step.
func (l *Ledger) Append(id core.AccountID, amount core.Money, description string, kind core.Kind, category string) (core.TransactionID, error) {
	return l.AppendRef(id, "", amount, description, kind, category)
}

func (l *Ledger) AppendRef(id core.AccountID, ref core.Ref, amount core.Money, description string, kind core.Kind, category string) (core.TransactionID, error) {
	committed, err := l.Update(id, func(tx *Tx) error {
		return tx.AppendRef(ref, amount, description, kind, category)
	})
	if err != nil {
		return 0, err
	}
	return committed[0].ID, nil
}

func (l *Ledger) lookup(id core.AccountID) (*account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", id, core.ErrUnknownAccount)
	}
	return a, nil
}

func newAccountID() core.AccountID {
	return core.AccountID(uuid.NewString())
}
