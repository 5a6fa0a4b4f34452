package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"pocketmoney/internal/core"
	"pocketmoney/internal/goals"
	"pocketmoney/internal/log"
	"pocketmoney/internal/storage"
)

// Restore rebuilds the household from a loaded journal. It must run before
// any command. Balances are re-derived by replaying transactions in order.
func (h *Household) Restore(ctx context.Context, s storage.State) error {
	if err := h.ledger.Replay(s.Accounts, s.Transactions); err != nil {
		return fmt.Errorf("replay ledger: %w", err)
	}
	h.chores.Restore(s.Chores)
	h.goals.Restore(s.Goals)
	h.policies.Restore(s.Policies)
	h.missions.restore(s.Missions)
	repaired := h.reconcile(ctx, s.Transactions)

	h.logger.InfoContext(ctx, "household restored",
		log.FieldOperation, log.OpStartup,
		"accounts", len(s.Accounts),
		"transactions", len(s.Transactions),
		"chores", len(s.Chores),
		"goals", len(s.Goals),
		"repaired", repaired)
	return nil
}

// reconcile brings chores, goals and allowance schedules in line with the
// referenced ledger entries. The entry and the entity write are journaled
// separately, so a crash between them leaves the entity behind the ledger.
// Repaired entities are journaled again. It returns how many were repaired.
func (h *Household) reconcile(ctx context.Context, txs []core.Transaction) int {
	sorted := slices.Clone(txs)
	slices.SortFunc(sorted, func(x, y core.Transaction) int { return cmp.Compare(x.ID, y.ID) })

	var (
		paidChores []core.ChoreID
		goalOrder  []core.GoalID
		saved      = make(map[core.GoalID]core.Money)
		lastPaid   = make(map[core.AccountID]time.Time)
	)
	for _, t := range sorted {
		if acct, paidAt, ok := core.ParseAllowanceRef(t.Ref); ok {
			if paidAt.After(lastPaid[acct]) {
				lastPaid[acct] = paidAt
			}
			continue
		}
		kind, id, ok := t.Ref.Split()
		if !ok {
			continue
		}
		switch kind {
		case core.RefChore:
			paidChores = append(paidChores, core.ChoreID(id))
		case core.RefGoal:
			gid := core.GoalID(id)
			cur, seen := saved[gid]
			if !seen {
				goalOrder = append(goalOrder, gid)
			}
			if t.Amount.IsNegative() {
				saved[gid] = cur.Add(t.Amount.Neg())
			} else {
				saved[gid] = goals.Withdrawn(cur, t.Amount)
			}
		}
	}

	repaired := 0
	for _, id := range paidChores {
		if c, changed := h.chores.Settle(id); changed {
			h.logger.WarnContext(ctx, "chore paid but not completed, settling", log.FieldChoreID, string(id))
			h.recordChore(ctx, c)
			repaired++
		}
	}
	for _, id := range goalOrder {
		if g, changed := h.goals.Reconcile(id, saved[id]); changed {
			h.logger.WarnContext(ctx, "goal behind ledger, reconciling", log.FieldGoalID, string(id))
			h.recordGoal(ctx, g)
			repaired++
		}
	}
	for acct, paidAt := range lastPaid {
		settings, err := h.policies.Get(acct)
		if err != nil || !settings.Allowance.LastPaidAt.Before(paidAt) {
			continue
		}
		updated, err := h.policies.MarkAllowancePaid(acct, paidAt)
		if err != nil {
			continue
		}
		h.logger.WarnContext(ctx, "allowance paid but not marked, reconciling", log.FieldAccountID, string(acct))
		h.recordPolicy(ctx, updated)
		repaired++
	}
	return repaired
}
