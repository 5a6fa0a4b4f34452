package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketmoney/internal/core"
)

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.child.ID

	_, err := f.h.RecordTransaction(ctx, id, core.Cents(4550), "Opening balance", core.Transfer, "")
	require.NoError(t, err)
	_, err = f.h.RecordTransaction(ctx, id, core.Cents(500), "Chore payout: Dishes", core.Earn, "")
	require.NoError(t, err)
	_, err = f.h.RecordTransaction(ctx, id, core.Cents(-300), "Comic", core.Spend, "Books")
	require.NoError(t, err)
	_, err = f.h.RecordTransaction(ctx, id, core.Cents(-450), "Pizza", core.Spend, "Food")
	require.NoError(t, err)
	_, err = f.h.RecordTransaction(ctx, id, core.Cents(-150), "Chips", core.Spend, "food")
	require.NoError(t, err)
	_, err = f.h.RecordTransaction(ctx, id, core.Cents(-300), "Mystery", core.Spend, "")
	require.NoError(t, err)

	g, err := f.h.CreateGoal(ctx, id, "Lego", core.Cents(6000), "🧱")
	require.NoError(t, err)
	_, err = f.h.Contribute(ctx, g.ID, core.Cents(1000))
	require.NoError(t, err)

	s, err := f.h.Summary(id, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, core.Cents(2850), s.Balance)
	assert.Equal(t, core.Cents(1000), s.Savings)
	assert.Equal(t, core.Cents(1200), s.TotalSpent)
	assert.Equal(t, core.Cents(500), s.TotalEarned)
	assert.Equal(t, []CategoryAmount{
		{Name: "Food", Amount: core.Cents(600)},
		{Name: "Books", Amount: core.Cents(300)},
		{Name: Uncategorized, Amount: core.Cents(300)},
	}, s.ByCategory)
}

func TestSummarySinceExcludesOlderEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.h.RecordTransaction(ctx, f.child.ID, core.Cents(-100), "Old", core.Spend, "Food")
	require.NoError(t, err)

	s, err := f.h.Summary(f.child.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, s.TotalSpent.Cents)
	assert.Empty(t, s.ByCategory)
	assert.Equal(t, core.Cents(-100), s.Balance)

	_, err = f.h.Summary("nobody", time.Time{})
	assert.ErrorIs(t, err, core.ErrUnknownAccount)
}
