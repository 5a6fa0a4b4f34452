// Package policy stores per-dependent spending controls and decides whether a
// spend is allowed under them.
package policy

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"pocketmoney/internal/core"
)

var (
	DefaultDailyLimit      = core.Cents(1000)
	DefaultAllowanceAmount = core.Cents(500)
)

const (
	DefaultFrequency = core.Weekly
	DefaultWeekday   = time.Friday
	DefaultCardColor = "#4f46e5"
)

// Defaults returns the settings a new dependent starts with.
func Defaults(acct core.Account) core.PolicySettings {
	return core.PolicySettings{
		AccountID:         acct.ID,
		DailyLimit:        DefaultDailyLimit,
		BlockedCategories: []string{},
		Card: core.CardDesign{
			Color: DefaultCardColor,
			Label: acct.Name,
			Theme: core.ThemeDefault,
		},
		Allowance: core.Allowance{
			Amount:    DefaultAllowanceAmount,
			Frequency: DefaultFrequency,
			Weekday:   DefaultWeekday,
		},
		Version: 1,
	}
}

type Store struct {
	mu       sync.RWMutex
	settings map[core.AccountID]*core.PolicySettings
}

func NewStore() *Store {
	return &Store{settings: make(map[core.AccountID]*core.PolicySettings)}
}

// Init stores default settings for acct. Existing settings are kept.
func (s *Store) Init(acct core.Account) core.PolicySettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.settings[acct.ID]; ok {
		return p.Clone()
	}
	p := Defaults(acct)
	s.settings[acct.ID] = &p
	return p.Clone()
}

func (s *Store) Get(id core.AccountID) (core.PolicySettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.settings[id]
	if !ok {
		return core.PolicySettings{}, fmt.Errorf("policy for %q: %w", id, core.ErrUnknownAccount)
	}
	return p.Clone(), nil
}

// All returns every stored policy ordered by account id.
func (s *Store) All() []core.PolicySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.PolicySettings, 0, len(s.settings))
	for _, p := range s.settings {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b core.PolicySettings) int {
		return strings.Compare(string(a.AccountID), string(b.AccountID))
	})
	return out
}

// Update merges patch into the stored settings. The patch is validated as a
// whole before anything is written.
func (s *Store) Update(id core.AccountID, patch Patch) (core.PolicySettings, error) {
	if err := patch.Validate(); err != nil {
		return core.PolicySettings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.settings[id]
	if !ok {
		return core.PolicySettings{}, fmt.Errorf("policy for %q: %w", id, core.ErrUnknownAccount)
	}
	next := p.Clone()
	patch.apply(&next)
	next.Version++
	*p = next
	return next.Clone(), nil
}

// MarkAllowancePaid records at as the last allowance payment.
func (s *Store) MarkAllowancePaid(id core.AccountID, at time.Time) (core.PolicySettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.settings[id]
	if !ok {
		return core.PolicySettings{}, fmt.Errorf("policy for %q: %w", id, core.ErrUnknownAccount)
	}
	p.Allowance.LastPaidAt = at
	p.Version++
	return p.Clone(), nil
}

func (s *Store) Restore(all []core.PolicySettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range all {
		p := p.Clone()
		s.settings[p.AccountID] = &p
	}
}
