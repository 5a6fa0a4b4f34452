// Package services composes the household core into the command surface used
// by the HTTP API and the workers.
//
// Every command runs against the in-memory core first. Once it has committed
// and all core locks are released, the result is written to the journal,
// published as a ledger event and fanned out to subscribers. Failures in
// those follow-up steps are logged and never fail the command.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"pocketmoney/internal/amqp"
	"pocketmoney/internal/chores"
	"pocketmoney/internal/content"
	"pocketmoney/internal/core"
	"pocketmoney/internal/goals"
	"pocketmoney/internal/ledger"
	"pocketmoney/internal/log"
	"pocketmoney/internal/policy"
)

var ErrGuardianExists = errors.New("household already has a guardian")

const defaultIOTimeout = 5 * time.Second

// Journal persists household state. storage.Journal implements it.
type Journal interface {
	RecordAccount(ctx context.Context, a core.Account) error
	RecordTransaction(ctx context.Context, t core.Transaction) error
	RecordChore(ctx context.Context, c core.Chore) error
	RecordGoal(ctx context.Context, g core.SavingsGoal) error
	RecordPolicy(ctx context.Context, p core.PolicySettings) error
	RecordMission(ctx context.Context, m core.MissionCompletion) error
}

// Publisher announces committed ledger entries. amqp.Client implements it.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error
}

// Deps are the collaborators of a Household. Journal and Publisher are
// optional.
type Deps struct {
	Ledger    *ledger.Ledger
	Chores    *chores.Board
	Goals     *goals.Vault
	Policies  *policy.Store
	Content   content.Generator
	Journal   Journal
	Publisher Publisher
	Logger    *log.Logger
	Now       func() time.Time
}

type Household struct {
	ledger    *ledger.Ledger
	chores    *chores.Board
	goals     *goals.Vault
	policies  *policy.Store
	content   content.Generator
	journal   Journal
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
	ioTimeout time.Duration

	hub      *hub
	missions *missionBook

	// guardianMu serializes the single guardian check with its creation.
	guardianMu sync.Mutex
}

// NewHousehold wires the service and registers it as a ledger observer.
// Missing core components are created empty.
func NewHousehold(d Deps) *Household {
	if d.Ledger == nil {
		d.Ledger = ledger.New()
	}
	if d.Chores == nil {
		d.Chores = chores.NewBoard(d.Ledger)
	}
	if d.Goals == nil {
		d.Goals = goals.NewVault(d.Ledger)
	}
	if d.Policies == nil {
		d.Policies = policy.NewStore()
	}
	if d.Content == nil {
		d.Content = content.Offline
	}
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &Household{
		ledger:    d.Ledger,
		chores:    d.Chores,
		goals:     d.Goals,
		policies:  d.Policies,
		content:   d.Content,
		journal:   d.Journal,
		publisher: d.Publisher,
		logger:    d.Logger.WithComponent(log.ComponentHousehold),
		now:       d.Now,
		ioTimeout: defaultIOTimeout,
		hub:       newHub(),
		missions:  newMissionBook(DefaultMissions),
	}
	h.ledger.Observe(h.onCommit)
	return h
}

// onCommit runs after every ledger commit, outside the account lock.
func (h *Household) onCommit(t core.Transaction) {
	ctx, cancel := context.WithTimeout(context.Background(), h.ioTimeout)
	defer cancel()

	if h.journal != nil {
		h.persist(ctx, "transaction", func(ctx context.Context) error { return h.journal.RecordTransaction(ctx, t) })
	}
	if h.publisher != nil {
		name := ""
		if a, err := h.ledger.Get(t.AccountID); err == nil {
			name = a.Name
		}
		if err := h.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(t, name)); err != nil {
			h.logger.LogError(ctx, "failed to publish ledger event", err, log.OpPublish,
				log.NewFields().WithTransaction(string(t.AccountID), int64(t.ID), t.Amount.Cents, string(t.Kind), t.Category))
		}
	}
	h.hub.broadcast(Change{Type: ChangeTransaction, AccountID: t.AccountID, Transaction: &t})
}

// persist runs fn with a context detached from the caller, so a client
// disconnect does not drop a journal write.
func (h *Household) persist(ctx context.Context, what string, fn func(context.Context) error) {
	if h.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.ioTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		h.logger.LogError(ctx, "failed to record "+what, err, log.OpJournal, nil)
	}
}

func (h *Household) recordAccount(ctx context.Context, a core.Account) {
	h.persist(ctx, "account", func(ctx context.Context) error { return h.journal.RecordAccount(ctx, a) })
	h.hub.broadcast(Change{Type: ChangeAccount, AccountID: a.ID, Account: &a})
}

func (h *Household) recordChore(ctx context.Context, c core.Chore) {
	h.persist(ctx, "chore", func(ctx context.Context) error { return h.journal.RecordChore(ctx, c) })
	h.hub.broadcast(Change{Type: ChangeChore, AccountID: c.AssigneeID, Chore: &c})
}

func (h *Household) recordGoal(ctx context.Context, g core.SavingsGoal) {
	h.persist(ctx, "goal", func(ctx context.Context) error { return h.journal.RecordGoal(ctx, g) })
	h.hub.broadcast(Change{Type: ChangeGoal, AccountID: g.OwnerID, Goal: &g})
}

func (h *Household) recordPolicy(ctx context.Context, p core.PolicySettings) {
	h.persist(ctx, "policy", func(ctx context.Context) error { return h.journal.RecordPolicy(ctx, p) })
	h.hub.broadcast(Change{Type: ChangePolicy, AccountID: p.AccountID, Policy: &p})
}

// Subscribe returns a channel of changes and a func that cancels the
// subscription. Changes are dropped for a subscriber whose buffer is full.
func (h *Household) Subscribe(buffer int) (<-chan Change, func()) {
	return h.hub.subscribe(buffer)
}

// Accounts

func (h *Household) CreateGuardian(ctx context.Context, p core.Profile) (core.Account, error) {
	p.Role = core.Guardian
	h.guardianMu.Lock()
	if _, ok := h.guardian(); ok {
		h.guardianMu.Unlock()
		return core.Account{}, ErrGuardianExists
	}
	id, err := h.ledger.Create(p)
	h.guardianMu.Unlock()
	if err != nil {
		return core.Account{}, err
	}
	a, err := h.ledger.Get(id)
	if err != nil {
		return core.Account{}, err
	}
	h.recordAccount(ctx, a)
	h.logger.InfoContext(ctx, "guardian created", log.FieldAccountID, a.ID)
	return a, nil
}

// AddDependent creates a dependent account with default spending controls.
func (h *Household) AddDependent(ctx context.Context, p core.Profile) (core.Account, core.PolicySettings, error) {
	p.Role = core.Dependent
	id, err := h.ledger.Create(p)
	if err != nil {
		return core.Account{}, core.PolicySettings{}, err
	}
	a, err := h.ledger.Get(id)
	if err != nil {
		return core.Account{}, core.PolicySettings{}, err
	}
	settings := h.policies.Init(a)
	h.recordAccount(ctx, a)
	h.recordPolicy(ctx, settings)
	h.logger.InfoContext(ctx, "dependent added", log.FieldAccountID, a.ID)
	return a, settings, nil
}

func (h *Household) Account(id core.AccountID) (core.Account, error) {
	return h.ledger.Get(id)
}

func (h *Household) Accounts() []core.Account {
	return slices.Collect(h.ledger.All())
}

func (h *Household) Dependents() []core.Account {
	return slices.Collect(h.ledger.Dependents())
}

func (h *Household) guardian() (core.Account, bool) {
	for a := range h.ledger.All() {
		if a.Role == core.Guardian {
			return a, true
		}
	}
	return core.Account{}, false
}

// History returns up to limit entries, most recent first.
func (h *Household) History(id core.AccountID, limit int) ([]core.Transaction, error) {
	seq, err := h.ledger.History(id, limit)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// Money movements

// RecordTransaction appends a raw ledger entry.
func (h *Household) RecordTransaction(ctx context.Context, id core.AccountID, amount core.Money, description string, kind core.Kind, category string) (core.Transaction, error) {
	return h.appendOne(id, func(tx *ledger.Tx) error {
		return tx.Append(amount, description, kind, category)
	})
}

// SendMoney credits to with amount as a transfer from the sender. The
// sender's balance is not debited.
func (h *Household) SendMoney(ctx context.Context, from, to core.AccountID, amount core.Money) (core.Transaction, error) {
	if err := amount.Validate(); err != nil {
		return core.Transaction{}, err
	}
	sender, err := h.ledger.Get(from)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("sender: %w", err)
	}
	t, err := h.appendOne(to, func(tx *ledger.Tx) error {
		return tx.Append(amount, "Transfer from "+sender.Name, core.Transfer, "")
	})
	if err != nil {
		return core.Transaction{}, err
	}
	h.logger.InfoContext(ctx, "money sent", log.NewFields().
		WithTransaction(string(to), int64(t.ID), t.Amount.Cents, string(t.Kind), "").Args()...)
	return t, nil
}

// Spend debits a dependent after checking spending controls. The check and
// the debit happen in the same critical section, so concurrent spends cannot
// both slip under the daily limit.
func (h *Household) Spend(ctx context.Context, id core.AccountID, amount core.Money, description, category string) (core.Transaction, error) {
	if err := amount.Validate(); err != nil {
		return core.Transaction{}, err
	}
	settings, err := h.policies.Get(id)
	if err != nil {
		return core.Transaction{}, err
	}
	now := h.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	t, err := h.appendOne(id, func(tx *ledger.Tx) error {
		if err := policy.Authorize(settings, tx.SpentSince(midnight), amount, category); err != nil {
			return err
		}
		return tx.Append(amount.Neg(), description, core.Spend, category)
	})
	if err != nil {
		h.logger.WarnContext(ctx, "spend declined", log.FieldAccountID, id, log.FieldAmountCents, amount.Cents, log.FieldError, err)
		return core.Transaction{}, err
	}
	return t, nil
}

func (h *Household) appendOne(id core.AccountID, fn func(*ledger.Tx) error) (core.Transaction, error) {
	committed, err := h.ledger.Update(id, fn)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(committed) == 0 {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	return committed[0], nil
}

// Chores

func (h *Household) CreateChore(ctx context.Context, title string, reward core.Money, assignee core.AccountID, due core.Date) (core.Chore, error) {
	id, err := h.chores.Create(title, reward, assignee, due)
	if err != nil {
		return core.Chore{}, err
	}
	c, err := h.chores.Get(id)
	if err != nil {
		return core.Chore{}, err
	}
	h.recordChore(ctx, c)
	return c, nil
}

// TransitionChore applies one of chores.MarkDone, chores.Approve or
// chores.Reject.
func (h *Household) TransitionChore(ctx context.Context, id core.ChoreID, action chores.Action) (core.Chore, error) {
	c, err := h.chores.Apply(id, action)
	if err != nil {
		return core.Chore{}, err
	}
	h.recordChore(ctx, c)
	h.logger.InfoContext(ctx, "chore transitioned", log.FieldChoreID, id, log.FieldStatus, c.Status)
	return c, nil
}

func (h *Household) Chore(id core.ChoreID) (core.Chore, error) {
	return h.chores.Get(id)
}

func (h *Household) Chores(assignee core.AccountID) []core.Chore {
	return h.chores.List(assignee)
}

// Goals

func (h *Household) CreateGoal(ctx context.Context, owner core.AccountID, title string, target core.Money, glyph string) (core.SavingsGoal, error) {
	id, err := h.goals.Create(owner, title, target, glyph)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g, err := h.goals.Get(id)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	h.recordGoal(ctx, g)
	return g, nil
}

func (h *Household) Contribute(ctx context.Context, id core.GoalID, amount core.Money) (core.SavingsGoal, error) {
	g, err := h.goals.Contribute(id, amount)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	h.recordGoal(ctx, g)
	return g, nil
}

func (h *Household) Withdraw(ctx context.Context, id core.GoalID, amount core.Money) (core.SavingsGoal, error) {
	g, err := h.goals.Withdraw(id, amount)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	h.recordGoal(ctx, g)
	return g, nil
}

func (h *Household) Goal(id core.GoalID) (core.SavingsGoal, error) {
	return h.goals.Get(id)
}

func (h *Household) Goals(owner core.AccountID) []core.SavingsGoal {
	return h.goals.List(owner)
}

// Policy

func (h *Household) Policy(id core.AccountID) (core.PolicySettings, error) {
	return h.policies.Get(id)
}

func (h *Household) UpdatePolicy(ctx context.Context, id core.AccountID, patch policy.Patch) (core.PolicySettings, error) {
	p, err := h.policies.Update(id, patch)
	if err != nil {
		return core.PolicySettings{}, err
	}
	h.recordPolicy(ctx, p)
	return p, nil
}

// Content

// SuggestChores asks the content generator for chores suited to the
// dependent's age. No lock is held during the call.
func (h *Household) SuggestChores(ctx context.Context, id core.AccountID, interests []string) ([]string, error) {
	a, err := h.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	return h.content.SuggestChores(ctx, a.DOB.AgeAt(h.now()), interests)
}
