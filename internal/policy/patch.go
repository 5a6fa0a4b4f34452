package policy

import (
	"errors"
	"strings"
	"time"

	"pocketmoney/internal/core"
)

// Patch is a partial update. Nil fields are left untouched; a non-nil empty
// BlockedCategories clears the set.
type Patch struct {
	Frozen            *bool           `json:"frozen,omitempty"`
	DailyLimit        *core.Money     `json:"daily_limit,omitempty"`
	BlockedCategories []string        `json:"blocked_categories,omitempty"`
	Card              *CardPatch      `json:"card,omitempty"`
	Allowance         *AllowancePatch `json:"allowance,omitempty"`
}

type CardPatch struct {
	Color *string         `json:"color,omitempty"`
	Label *string         `json:"label,omitempty"`
	Theme *core.CardTheme `json:"theme,omitempty"`
}

type AllowancePatch struct {
	Active    *bool           `json:"active,omitempty"`
	Amount    *core.Money     `json:"amount,omitempty"`
	Frequency *core.Frequency `json:"frequency,omitempty"`
	Weekday   *time.Weekday   `json:"weekday,omitempty"`
}

func (p Patch) Validate() error {
	var errs []error
	if p.DailyLimit != nil && p.DailyLimit.IsNegative() {
		errs = append(errs, core.ErrInvalidAmount)
	}
	if c := p.Card; c != nil && c.Theme != nil {
		switch *c.Theme {
		case core.ThemeDefault, core.ThemeDark, core.ThemeFun:
		default:
			errs = append(errs, core.ErrInvalidTheme)
		}
	}
	if a := p.Allowance; a != nil {
		if a.Amount != nil {
			if err := a.Amount.Validate(); err != nil {
				errs = append(errs, err)
			}
		}
		if a.Frequency != nil {
			if err := a.Frequency.Validate(); err != nil {
				errs = append(errs, err)
			}
		}
		if a.Weekday != nil && (*a.Weekday < time.Sunday || *a.Weekday > time.Saturday) {
			errs = append(errs, core.ErrInvalidWeekday)
		}
	}
	return errors.Join(errs...)
}

func (p Patch) apply(s *core.PolicySettings) {
	if p.Frozen != nil {
		s.Frozen = *p.Frozen
	}
	if p.DailyLimit != nil {
		s.DailyLimit = *p.DailyLimit
	}
	if p.BlockedCategories != nil {
		s.BlockedCategories = normalizeCategories(p.BlockedCategories)
	}
	if c := p.Card; c != nil {
		if c.Color != nil {
			s.Card.Color = *c.Color
		}
		if c.Label != nil {
			s.Card.Label = *c.Label
		}
		if c.Theme != nil {
			s.Card.Theme = *c.Theme
		}
	}
	if a := p.Allowance; a != nil {
		if a.Active != nil {
			s.Allowance.Active = *a.Active
		}
		if a.Amount != nil {
			s.Allowance.Amount = *a.Amount
		}
		if a.Frequency != nil {
			s.Allowance.Frequency = *a.Frequency
		}
		if a.Weekday != nil {
			s.Allowance.Weekday = *a.Weekday
		}
	}
}

// normalizeCategories trims names and drops blanks and case-insensitive
// duplicates, keeping first-seen order.
func normalizeCategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
