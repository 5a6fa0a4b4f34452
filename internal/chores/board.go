// Package chores implements the chore lifecycle.
//
// A chore moves PENDING -> REVIEW -> COMPLETED, with REVIEW -> PENDING on
// rejection. Transitions are looked up in a fixed table; side effects are
// attached to table edges, so the payout can only run on REVIEW -> COMPLETED.
package chores

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pocketmoney/internal/core"
)

const (
	MarkDone Action = "mark_done"
	Approve  Action = "approve"
	Reject   Action = "reject"
)

// Action names a requested transition.
type Action string

type edge struct {
	from   core.ChoreStatus
	action Action
}

var transitions = map[edge]core.ChoreStatus{
	{core.Pending, MarkDone}: core.Review,
	{core.Review, Approve}:   core.Completed,
	{core.Review, Reject}:    core.Pending,
}

// Ledger is the part of the ledger the board needs.
type Ledger interface {
	Exists(id core.AccountID) bool
	AppendRef(id core.AccountID, ref core.Ref, amount core.Money, description string, kind core.Kind, category string) (core.TransactionID, error)
}

type Board struct {
	ledger  Ledger
	effects map[edge]func(core.Chore) error

	mu     sync.Mutex
	chores map[core.ChoreID]*core.Chore
	order  []core.ChoreID
	// busy marks chores whose side effect is running outside mu.
	busy map[core.ChoreID]bool
}

func NewBoard(ledger Ledger) *Board {
	b := &Board{
		ledger: ledger,
		chores: make(map[core.ChoreID]*core.Chore),
		busy:   make(map[core.ChoreID]bool),
	}
	b.effects = map[edge]func(core.Chore) error{
		{core.Review, Approve}: b.payout,
	}
	return b
}

// Create adds a PENDING chore for assignee.
func (b *Board) Create(title string, reward core.Money, assignee core.AccountID, due core.Date) (core.ChoreID, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", core.ErrEmptyTitle
	}
	if reward.IsNegative() {
		return "", core.ErrInvalidAmount
	}
	if !b.ledger.Exists(assignee) {
		return "", fmt.Errorf("assignee %q: %w", assignee, core.ErrUnknownAccount)
	}

	c := &core.Chore{
		ID:         core.ChoreID(uuid.NewString()),
		Title:      title,
		Reward:     reward,
		Status:     core.Pending,
		AssigneeID: assignee,
		DueDate:    due,
		Version:    1,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.chores[c.ID] = c
	b.order = append(b.order, c.ID)
	return c.ID, nil
}

func (b *Board) MarkDone(id core.ChoreID) (core.Chore, error) {
	return b.transition(id, MarkDone)
}

// Approve completes a chore under review and pays its reward exactly once.
func (b *Board) Approve(id core.ChoreID) (core.Chore, error) {
	return b.transition(id, Approve)
}

func (b *Board) Reject(id core.ChoreID) (core.Chore, error) {
	return b.transition(id, Reject)
}

// Apply performs a transition by action name.
func (b *Board) Apply(id core.ChoreID, action Action) (core.Chore, error) {
	return b.transition(id, action)
}

// transition applies action to the chore. A side effect attached to the edge
// runs without b.mu held; the chore is reserved meanwhile so no other
// transition can start, and the new status is written only if it succeeds.
func (b *Board) transition(id core.ChoreID, action Action) (core.Chore, error) {
	b.mu.Lock()
	c, ok := b.chores[id]
	if !ok {
		b.mu.Unlock()
		return core.Chore{}, fmt.Errorf("chore %q: %w", id, core.ErrUnknownChore)
	}
	e := edge{from: c.Status, action: action}
	to, ok := transitions[e]
	if !ok || b.busy[id] {
		b.mu.Unlock()
		return core.Chore{}, fmt.Errorf("chore %q: %s from %s: %w", id, action, c.Status, core.ErrInvalidTransition)
	}

	effect := b.effects[e]
	if effect == nil {
		defer b.mu.Unlock()
		c.Status = to
		c.Version++
		return *c, nil
	}

	b.busy[id] = true
	snapshot := *c
	b.mu.Unlock()

	err := effect(snapshot)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.busy, id)
	if err != nil {
		return core.Chore{}, fmt.Errorf("chore %q: %s: %w", id, action, err)
	}
	c.Status = to
	c.Version++
	return *c, nil
}

// payout credits the reward. A zero reward completes without a ledger entry.
func (b *Board) payout(c core.Chore) error {
	if c.Reward.IsZero() {
		return nil
	}
	_, err := b.ledger.AppendRef(c.AssigneeID, core.ChoreRef(c.ID), c.Reward, "Chore payout: "+c.Title, core.Earn, "")
	return err
}

func (b *Board) Get(id core.ChoreID) (core.Chore, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.chores[id]
	if !ok {
		return core.Chore{}, fmt.Errorf("chore %q: %w", id, core.ErrUnknownChore)
	}
	return *c, nil
}

// List returns chores in creation order. An empty assignee lists all.
func (b *Board) List(assignee core.AccountID) []core.Chore {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.Chore, 0, len(b.order))
	for _, id := range b.order {
		c := b.chores[id]
		if assignee != "" && c.AssigneeID != assignee {
			continue
		}
		out = append(out, *c)
	}
	return out
}

// Settle marks a chore whose payout is already in the ledger as completed.
// It reports whether the chore changed.
func (b *Board) Settle(id core.ChoreID) (core.Chore, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.chores[id]
	if !ok || c.Status == core.Completed {
		return core.Chore{}, false
	}
	c.Status = core.Completed
	c.Version++
	return *c, true
}

// Restore loads persisted chores without running any side effects.
func (b *Board) Restore(chores []core.Chore) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range chores {
		c := c
		if _, exists := b.chores[c.ID]; !exists {
			b.order = append(b.order, c.ID)
		}
		b.chores[c.ID] = &c
	}
}
