package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketmoney/internal/core"
)

func ptr[T any](v T) *T { return &v }

func TestInitDefaults(t *testing.T) {
	s := NewStore()
	p := s.Init(core.Account{ID: "c1", Name: "Leo"})

	assert.Equal(t, core.Cents(1000), p.DailyLimit)
	assert.False(t, p.Frozen)
	assert.Empty(t, p.BlockedCategories)
	assert.Equal(t, "Leo", p.Card.Label)
	assert.Equal(t, core.ThemeDefault, p.Card.Theme)
	assert.False(t, p.Allowance.Active)
	assert.Equal(t, core.Cents(500), p.Allowance.Amount)
	assert.Equal(t, core.Weekly, p.Allowance.Frequency)
	assert.Equal(t, time.Friday, p.Allowance.Weekday)

	_, err := s.Get("ghost")
	assert.ErrorIs(t, err, core.ErrUnknownAccount)
}

func TestUpdateMergesPartially(t *testing.T) {
	s := NewStore()
	s.Init(core.Account{ID: "c1", Name: "Leo"})

	p, err := s.Update("c1", Patch{Frozen: ptr(true)})
	require.NoError(t, err)
	assert.True(t, p.Frozen)
	assert.Equal(t, core.Cents(1000), p.DailyLimit)
	assert.Equal(t, int64(2), p.Version)

	p, err = s.Update("c1", Patch{
		DailyLimit:        ptr(core.Cents(2500)),
		BlockedCategories: []string{" Candy ", "games", "candy", ""},
		Card:              &CardPatch{Theme: ptr(core.ThemeFun)},
		Allowance:         &AllowancePatch{Active: ptr(true), Weekday: ptr(time.Monday)},
	})
	require.NoError(t, err)
	assert.True(t, p.Frozen, "untouched field keeps its value")
	assert.Equal(t, core.Cents(2500), p.DailyLimit)
	assert.Equal(t, []string{"Candy", "games"}, p.BlockedCategories)
	assert.Equal(t, core.ThemeFun, p.Card.Theme)
	assert.Equal(t, "Leo", p.Card.Label)
	assert.True(t, p.Allowance.Active)
	assert.Equal(t, time.Monday, p.Allowance.Weekday)
	assert.Equal(t, core.Weekly, p.Allowance.Frequency)

	p, err = s.Update("c1", Patch{BlockedCategories: []string{}})
	require.NoError(t, err)
	assert.Empty(t, p.BlockedCategories)
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	s := NewStore()
	s.Init(core.Account{ID: "c1", Name: "Leo"})

	tests := []struct {
		name  string
		patch Patch
		want  error
	}{
		{"negative limit", Patch{DailyLimit: ptr(core.Cents(-1))}, core.ErrInvalidAmount},
		{"zero allowance", Patch{Allowance: &AllowancePatch{Amount: ptr(core.Cents(0))}}, core.ErrInvalidAmount},
		{"bad frequency", Patch{Allowance: &AllowancePatch{Frequency: ptr(core.Frequency("daily"))}}, core.ErrInvalidFrequency},
		{"bad weekday", Patch{Allowance: &AllowancePatch{Weekday: ptr(time.Weekday(9))}}, core.ErrInvalidWeekday},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Update("c1", Patch{Frozen: ptr(true), DailyLimit: tt.patch.DailyLimit, Allowance: tt.patch.Allowance})
			assert.ErrorIs(t, err, tt.want)
			p, err := s.Get("c1")
			require.NoError(t, err)
			assert.False(t, p.Frozen, "rejected patch must not apply")
			assert.Equal(t, int64(1), p.Version)
		})
	}

	_, err := s.Update("c1", Patch{Card: &CardPatch{Theme: ptr(core.CardTheme("neon"))}})
	assert.Error(t, err)
	_, err = s.Update("ghost", Patch{})
	assert.ErrorIs(t, err, core.ErrUnknownAccount)
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Init(core.Account{ID: "c1", Name: "Leo"})
	_, err := s.Update("c1", Patch{BlockedCategories: []string{"candy"}})
	require.NoError(t, err)

	p, err := s.Get("c1")
	require.NoError(t, err)
	p.BlockedCategories[0] = "nothing"

	again, err := s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"candy"}, again.BlockedCategories)
}

func TestMarkAllowancePaid(t *testing.T) {
	s := NewStore()
	s.Init(core.Account{ID: "c1", Name: "Leo"})
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	p, err := s.MarkAllowancePaid("c1", at)
	require.NoError(t, err)
	assert.Equal(t, at, p.Allowance.LastPaidAt)
	assert.Equal(t, int64(2), p.Version)
}
