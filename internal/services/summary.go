package services

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"pocketmoney/internal/core"
)

// Uncategorized labels spending recorded without a category.
const Uncategorized = "Other"

type CategoryAmount struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

// SpendingSummary is the dashboard view of one account.
type SpendingSummary struct {
	AccountID   core.AccountID   `json:"account_id"`
	Since       time.Time        `json:"since"`
	Balance     core.Money       `json:"balance"`
	Savings     core.Money       `json:"savings"`
	TotalSpent  core.Money       `json:"total_spent"`
	TotalEarned core.Money       `json:"total_earned"`
	ByCategory  []CategoryAmount `json:"by_category"`
}

// Summary totals the account's entries at or after since. A zero since
// covers the whole history. Categories are ordered by amount, largest first.
func (h *Household) Summary(id core.AccountID, since time.Time) (SpendingSummary, error) {
	acct, entries, err := h.ledger.Statement(id)
	if err != nil {
		return SpendingSummary{}, err
	}
	s := SpendingSummary{AccountID: id, Since: since, Balance: acct.Balance, ByCategory: []CategoryAmount{}}
	for _, g := range h.goals.List(id) {
		s.Savings = s.Savings.Add(g.Current)
	}

	// Categories group case-insensitively under the first spelling seen.
	byName := make(map[string]*CategoryAmount)
	var order []string
	for _, t := range entries {
		if t.Timestamp.Before(since) {
			continue
		}
		switch t.Kind {
		case core.Spend:
			spent := t.Amount.Neg()
			s.TotalSpent = s.TotalSpent.Add(spent)
			name := t.Category
			if name == "" {
				name = Uncategorized
			}
			key := strings.ToLower(name)
			c, ok := byName[key]
			if !ok {
				c = &CategoryAmount{Name: name}
				byName[key] = c
				order = append(order, key)
			}
			c.Amount = c.Amount.Add(spent)
		case core.Earn:
			s.TotalEarned = s.TotalEarned.Add(t.Amount)
		}
	}
	for _, key := range order {
		s.ByCategory = append(s.ByCategory, *byName[key])
	}
	slices.SortFunc(s.ByCategory, func(a, b CategoryAmount) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return s, nil
}
