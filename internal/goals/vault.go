// Package goals holds savings goals. Money moves between an account's cash
// balance and its goals only through ledger entries, and each entry is
// committed together with the matching change to the goal.
package goals

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pocketmoney/internal/core"
	"pocketmoney/internal/ledger"
)

type OverdraftMode int

const (
	// AllowOverdraft lets a contribution take the cash balance below zero.
	AllowOverdraft OverdraftMode = iota
	RejectOverdraft
)

type WithdrawalMode int

const (
	// ClampWithdrawal credits the full amount and floors the goal at zero.
	ClampWithdrawal WithdrawalMode = iota
	RejectOverWithdrawal
)

// Policy selects how the vault treats movements that exceed available funds.
type Policy struct {
	Overdraft  OverdraftMode
	Withdrawal WithdrawalMode
}

// Ledger is the part of the ledger the vault needs.
type Ledger interface {
	Exists(id core.AccountID) bool
	Update(id core.AccountID, fn func(*ledger.Tx) error) ([]core.Transaction, error)
}

type Option func(*Vault)

func WithPolicy(p Policy) Option {
	return func(v *Vault) { v.policy = p }
}

type Vault struct {
	ledger Ledger
	policy Policy

	// mu is always taken after the owner's account lock, never before.
	mu    sync.Mutex
	goals map[core.GoalID]*core.SavingsGoal
	order []core.GoalID
}

func NewVault(l Ledger, opts ...Option) *Vault {
	v := &Vault{
		ledger: l,
		goals:  make(map[core.GoalID]*core.SavingsGoal),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Vault) Create(owner core.AccountID, title string, target core.Money, glyph string) (core.GoalID, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", core.ErrEmptyTitle
	}
	if err := target.Validate(); err != nil {
		return "", err
	}
	if !v.ledger.Exists(owner) {
		return "", fmt.Errorf("owner %q: %w", owner, core.ErrUnknownAccount)
	}

	g := &core.SavingsGoal{
		ID:      core.GoalID(uuid.NewString()),
		Title:   title,
		Target:  target,
		OwnerID: owner,
		Glyph:   glyph,
		Version: 1,
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.goals[g.ID] = g
	v.order = append(v.order, g.ID)
	return g.ID, nil
}

// Contribute moves amount from the owner's cash balance into the goal.
func (v *Vault) Contribute(id core.GoalID, amount core.Money) (core.SavingsGoal, error) {
	if err := amount.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	g, err := v.Get(id)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	return v.move(g, func(tx *ledger.Tx) error {
		if v.policy.Overdraft == RejectOverdraft && tx.Balance().Cents < amount.Cents {
			return fmt.Errorf("contribute %s to %q: %w", amount, g.Title, core.ErrInsufficientFunds)
		}
		return tx.AppendRef(core.GoalRef(id), amount.Neg(), "Contribution to "+g.Title, core.Transfer, "")
	}, func(g *core.SavingsGoal) error {
		sum, ok := g.Current.AddChecked(amount)
		if !ok {
			return fmt.Errorf("goal overflow: %w", core.ErrInvalidAmount)
		}
		g.Current = sum
		return nil
	})
}

// Withdraw moves amount from the goal back to the owner's cash balance.
func (v *Vault) Withdraw(id core.GoalID, amount core.Money) (core.SavingsGoal, error) {
	if err := amount.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	g, err := v.Get(id)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	return v.move(g, func(tx *ledger.Tx) error {
		return tx.AppendRef(core.GoalRef(id), amount, "Withdrawal from "+g.Title, core.Transfer, "")
	}, func(g *core.SavingsGoal) error {
		if v.policy.Withdrawal == RejectOverWithdrawal && amount.Cents > g.Current.Cents {
			return fmt.Errorf("withdraw %s from %q: %w", amount, g.Title, core.ErrInsufficientFunds)
		}
		g.Current = Withdrawn(g.Current, amount)
		return nil
	})
}

// move stages the ledger entry for g and applies fn to the goal once that
// entry is committed, under the owner's account lock. fn runs first against a
// copy so a rejected change leaves both the ledger and the goal untouched.
// Every change to a goal's balance holds its owner's lock, so the copy cannot
// go stale before it is stored.
func (v *Vault) move(g core.SavingsGoal, stage func(*ledger.Tx) error, fn func(*core.SavingsGoal) error) (core.SavingsGoal, error) {
	var out core.SavingsGoal
	_, err := v.ledger.Update(g.OwnerID, func(tx *ledger.Tx) error {
		next, err := v.next(g.ID, fn)
		if err != nil {
			return err
		}
		if err := stage(tx); err != nil {
			return err
		}
		tx.OnCommit(func() { out = v.store(next) })
		return nil
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return out, nil
}

// next returns the goal after fn with its version bumped, without storing it.
func (v *Vault) next(id core.GoalID, fn func(*core.SavingsGoal) error) (core.SavingsGoal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	g, ok := v.goals[id]
	if !ok {
		return core.SavingsGoal{}, fmt.Errorf("goal %q: %w", id, core.ErrUnknownGoal)
	}
	next := *g
	if err := fn(&next); err != nil {
		return core.SavingsGoal{}, err
	}
	next.Version++
	return next, nil
}

func (v *Vault) store(g core.SavingsGoal) core.SavingsGoal {
	v.mu.Lock()
	defer v.mu.Unlock()
	if cur, ok := v.goals[g.ID]; ok {
		*cur = g
	}
	return g
}

// Withdrawn is the goal balance left after withdrawing amount, floored at zero.
func Withdrawn(current, amount core.Money) core.Money {
	if amount.Cents > current.Cents {
		return core.Money{}
	}
	return current.Sub(amount)
}

// Reconcile sets the goal's current amount when it differs, bumping the
// version. It reports whether the goal changed.
func (v *Vault) Reconcile(id core.GoalID, current core.Money) (core.SavingsGoal, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	g, ok := v.goals[id]
	if !ok || g.Current == current {
		return core.SavingsGoal{}, false
	}
	g.Current = current
	g.Version++
	return *g, true
}

func (v *Vault) Get(id core.GoalID) (core.SavingsGoal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	g, ok := v.goals[id]
	if !ok {
		return core.SavingsGoal{}, fmt.Errorf("goal %q: %w", id, core.ErrUnknownGoal)
	}
	return *g, nil
}

// List returns goals in creation order. An empty owner lists all.
func (v *Vault) List(owner core.AccountID) []core.SavingsGoal {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]core.SavingsGoal, 0, len(v.order))
	for _, id := range v.order {
		g := v.goals[id]
		if owner != "" && g.OwnerID != owner {
			continue
		}
		out = append(out, *g)
	}
	return out
}

func (v *Vault) Restore(goals []core.SavingsGoal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, g := range goals {
		g := g
		if _, exists := v.goals[g.ID]; !exists {
			v.order = append(v.order, g.ID)
		}
		v.goals[g.ID] = &g
	}
}
