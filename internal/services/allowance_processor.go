package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pocketmoney/internal/core"
	"pocketmoney/internal/ledger"
	"pocketmoney/internal/log"
)

// AllowanceProcessor pays scheduled allowances to dependents.
type AllowanceProcessor struct {
	household  *Household
	logger     *log.Logger
	strategies DuenessStrategies

	// mu serializes runs so an allowance is never paid twice for one period.
	mu sync.Mutex
}

type AllowanceOption func(*AllowanceProcessor)

// WithDuenessChecker adds or replaces the checker used for a frequency.
func WithDuenessChecker(f core.Frequency, c DuenessChecker) AllowanceOption {
	return func(p *AllowanceProcessor) { p.strategies[f] = c }
}

func NewAllowanceProcessor(h *Household, opts ...AllowanceOption) *AllowanceProcessor {
	p := &AllowanceProcessor{
		household:  h,
		logger:     h.logger.WithComponent(log.ComponentAllowance),
		strategies: DefaultDuenessStrategies(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessDue credits every active allowance that is due at now and returns
// how many were paid. A failure for one dependent is logged and the rest are
// still processed.
func (p *AllowanceProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.household == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	dependents := p.household.Dependents()
	paid := 0
	for _, a := range dependents {
		if err := ctx.Err(); err != nil {
			return paid, err
		}
		ok, err := p.payIfDue(ctx, a, now)
		if err != nil {
			p.logger.LogError(ctx, "failed to pay allowance", err, log.OpAppend, nil)
			continue
		}
		if ok {
			paid++
		}
	}

	p.logger.InfoContext(ctx, "allowance processing complete",
		"paid", paid,
		"total_checked", len(dependents),
		"processing_date", now.Format(time.DateOnly))
	return paid, nil
}

func (p *AllowanceProcessor) payIfDue(ctx context.Context, a core.Account, now time.Time) (bool, error) {
	h := p.household
	settings, err := h.policies.Get(a.ID)
	if err != nil {
		return false, err
	}
	allowance := settings.Allowance
	if !allowance.Active || allowance.Amount.IsZero() {
		return false, nil
	}
	checker, err := p.strategies.Get(allowance.Frequency)
	if err != nil {
		return false, fmt.Errorf("account %s: %w", a.ID, err)
	}
	if !checker.IsDue(allowance.LastPaidAt, now, allowance.Weekday) {
		return false, nil
	}

	// The entry carries its run time, so a restore can repair LastPaidAt if
	// the policy write below is lost.
	var (
		updated core.PolicySettings
		markErr error
	)
	t, err := h.appendOne(a.ID, func(tx *ledger.Tx) error {
		ref := core.AllowanceRef(a.ID, now)
		if err := tx.AppendRef(ref, allowance.Amount, allowanceDescription(allowance.Frequency), core.Transfer, ""); err != nil {
			return err
		}
		tx.OnCommit(func() { updated, markErr = h.policies.MarkAllowancePaid(a.ID, now) })
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("account %s: %w", a.ID, err)
	}
	if markErr != nil {
		return true, fmt.Errorf("mark paid %s: %w", a.ID, markErr)
	}
	h.recordPolicy(ctx, updated)

	p.logger.InfoContext(ctx, "allowance paid", log.NewFields().
		WithTransaction(string(a.ID), int64(t.ID), t.Amount.Cents, string(t.Kind), "").Args()...)
	return true, nil
}

func allowanceDescription(f core.Frequency) string {
	if f == core.Monthly {
		return "Monthly Allowance"
	}
	return "Weekly Allowance"
}

// Run calls ProcessDue every interval until ctx is done.
func (p *AllowanceProcessor) Run(ctx context.Context, interval time.Duration, now func() time.Time) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := p.ProcessDue(ctx, now()); err != nil && ctx.Err() == nil {
			p.logger.LogError(ctx, "allowance run failed", err, log.OpAppend, nil)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
