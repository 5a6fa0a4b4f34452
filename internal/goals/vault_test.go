package goals

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketmoney/internal/core"
	"pocketmoney/internal/ledger"
)

func setup(t *testing.T, opening int64, opts ...Option) (*Vault, *ledger.Ledger, core.AccountID) {
	t.Helper()
	l := ledger.New()
	child, err := l.Create(core.Profile{Name: "Leo", Role: core.Dependent})
	require.NoError(t, err)
	if opening != 0 {
		_, err = l.Append(child, core.Cents(opening), "Opening balance", core.Transfer, "")
		require.NoError(t, err)
	}
	return NewVault(l, opts...), l, child
}

func cash(t *testing.T, l *ledger.Ledger, id core.AccountID) core.Money {
	t.Helper()
	a, err := l.Get(id)
	require.NoError(t, err)
	return a.Balance
}

func TestContribute(t *testing.T) {
	v, l, child := setup(t, 4850)
	id, err := v.Create(child, "New Bike", core.Cents(15000), "🚲")
	require.NoError(t, err)
	v.Restore([]core.SavingsGoal{{ID: id, Title: "New Bike", Target: core.Cents(15000), Current: core.Cents(4500), OwnerID: child, Version: 1}})

	g, err := v.Contribute(id, core.Cents(1000))
	require.NoError(t, err)
	assert.Equal(t, core.Cents(5500), g.Current)
	assert.Equal(t, core.Cents(3850), cash(t, l, child))

	_, txs, err := l.Statement(child)
	require.NoError(t, err)
	last := txs[len(txs)-1]
	assert.Equal(t, core.Cents(-1000), last.Amount)
	assert.Equal(t, "Contribution to New Bike", last.Description)
	assert.Equal(t, core.Transfer, last.Kind)
}

func TestWithdrawClamps(t *testing.T) {
	v, l, child := setup(t, 0)
	id, err := v.Create(child, "New Bike", core.Cents(15000), "")
	require.NoError(t, err)
	_, err = l.Append(child, core.Cents(200), "Gift", core.Earn, "")
	require.NoError(t, err)
	_, err = v.Contribute(id, core.Cents(200))
	require.NoError(t, err)

	g, err := v.Withdraw(id, core.Cents(500))
	require.NoError(t, err)
	assert.Equal(t, core.Cents(0), g.Current)
	assert.Equal(t, core.Cents(500), cash(t, l, child))

	_, txs, err := l.Statement(child)
	require.NoError(t, err)
	last := txs[len(txs)-1]
	assert.Equal(t, core.Cents(500), last.Amount)
	assert.Equal(t, "Withdrawal from New Bike", last.Description)
}

func TestRoundTripRestoresBalances(t *testing.T) {
	v, l, child := setup(t, 2000)
	id, err := v.Create(child, "Lego", core.Cents(5000), "")
	require.NoError(t, err)

	_, err = v.Contribute(id, core.Cents(750))
	require.NoError(t, err)
	g, err := v.Withdraw(id, core.Cents(750))
	require.NoError(t, err)

	assert.Equal(t, core.Cents(0), g.Current)
	assert.Equal(t, core.Cents(2000), cash(t, l, child))
}

func TestInvalidMovementsLeaveNoTrace(t *testing.T) {
	v, l, child := setup(t, 1000)
	id, err := v.Create(child, "Lego", core.Cents(5000), "")
	require.NoError(t, err)

	tests := []struct {
		name string
		op   func() error
		want error
	}{
		{"contribute zero", func() error { _, err := v.Contribute(id, core.Cents(0)); return err }, core.ErrInvalidAmount},
		{"contribute negative", func() error { _, err := v.Contribute(id, core.Cents(-5)); return err }, core.ErrInvalidAmount},
		{"withdraw zero", func() error { _, err := v.Withdraw(id, core.Cents(0)); return err }, core.ErrInvalidAmount},
		{"unknown goal", func() error { _, err := v.Contribute("ghost", core.Cents(100)); return err }, core.ErrUnknownGoal},
		{"unknown goal withdraw", func() error { _, err := v.Withdraw("ghost", core.Cents(100)); return err }, core.ErrUnknownGoal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.op(), tt.want)
			_, txs, err := l.Statement(child)
			require.NoError(t, err)
			assert.Len(t, txs, 1)
			g, err := v.Get(id)
			require.NoError(t, err)
			assert.Equal(t, core.Cents(0), g.Current)
		})
	}
}

func TestCreateValidation(t *testing.T) {
	v, _, child := setup(t, 0)
	_, err := v.Create(child, "Bike", core.Cents(0), "")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = v.Create("ghost", "Bike", core.Cents(100), "")
	assert.ErrorIs(t, err, core.ErrUnknownAccount)
	_, err = v.Create(child, "", core.Cents(100), "")
	assert.ErrorIs(t, err, core.ErrEmptyTitle)
}

func TestDefaultPolicyAllowsOverdraft(t *testing.T) {
	v, l, child := setup(t, 100)
	id, err := v.Create(child, "Lego", core.Cents(5000), "")
	require.NoError(t, err)

	g, err := v.Contribute(id, core.Cents(300))
	require.NoError(t, err)
	assert.Equal(t, core.Cents(300), g.Current)
	assert.Equal(t, core.Cents(-200), cash(t, l, child))
}

func TestRejectingPolicy(t *testing.T) {
	v, l, child := setup(t, 100, WithPolicy(Policy{Overdraft: RejectOverdraft, Withdrawal: RejectOverWithdrawal}))
	id, err := v.Create(child, "Lego", core.Cents(5000), "")
	require.NoError(t, err)

	_, err = v.Contribute(id, core.Cents(300))
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	assert.Equal(t, core.Cents(100), cash(t, l, child))

	_, err = v.Contribute(id, core.Cents(100))
	require.NoError(t, err)
	_, err = v.Withdraw(id, core.Cents(150))
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	assert.Equal(t, core.Cents(0), cash(t, l, child))

	g, err := v.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(100), g.Current)
}

func TestConcurrentMovementsKeepTotals(t *testing.T) {
	v, l, child := setup(t, 10000)
	id, err := v.Create(child, "Lego", core.Cents(50000), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := v.Contribute(id, core.Cents(100))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, _ = l.Append(child, core.Cents(10), "Interest", core.Earn, "")
		}()
	}
	wg.Wait()

	g, err := v.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(5000), g.Current)
	// cash + goal equals opening plus interest
	assert.Equal(t, core.Cents(10000+500), cash(t, l, child).Add(g.Current))
	assert.Equal(t, int64(51), g.Version)
}

func TestList(t *testing.T) {
	v, l, child := setup(t, 0)
	other, err := l.Create(core.Profile{Name: "Mia", Role: core.Dependent})
	require.NoError(t, err)
	_, err = v.Create(child, "Bike", core.Cents(100), "")
	require.NoError(t, err)
	_, err = v.Create(other, "Doll", core.Cents(100), "")
	require.NoError(t, err)

	assert.Len(t, v.List(""), 2)
	assert.Len(t, v.List(other), 1)
}

func TestMovementsReturnCommittedVersion(t *testing.T) {
	v, l, child := setup(t, 1000)
	id, err := v.Create(child, "Kite", core.Cents(3000), "")
	require.NoError(t, err)

	g, err := v.Contribute(id, core.Cents(300))
	require.NoError(t, err)
	assert.Equal(t, int64(2), g.Version)
	stored, err := v.Get(id)
	require.NoError(t, err)
	assert.Equal(t, stored, g)

	g, err = v.Withdraw(id, core.Cents(100))
	require.NoError(t, err)
	assert.Equal(t, int64(3), g.Version)
	assert.Equal(t, core.Cents(200), g.Current)

	_, txs, err := l.Statement(child)
	require.NoError(t, err)
	for _, tr := range txs[1:] {
		assert.Equal(t, core.GoalRef(id), tr.Ref)
	}
}

func TestGoalChangesWithTheLedger(t *testing.T) {
	v, l, child := setup(t, 1000)
	id, err := v.Create(child, "Kite", core.Cents(3000), "")
	require.NoError(t, err)

	// An observer runs after the entry is committed; by then the goal must
	// already reflect it.
	var seen []core.Money
	l.Observe(func(core.Transaction) {
		g, err := v.Get(id)
		require.NoError(t, err)
		seen = append(seen, g.Current)
	})
	_, err = v.Contribute(id, core.Cents(400))
	require.NoError(t, err)
	assert.Equal(t, []core.Money{core.Cents(400)}, seen)
}

func TestReconcile(t *testing.T) {
	v, _, child := setup(t, 0)
	id, err := v.Create(child, "Kite", core.Cents(3000), "")
	require.NoError(t, err)

	_, changed := v.Reconcile(id, core.Cents(0))
	assert.False(t, changed)

	g, changed := v.Reconcile(id, core.Cents(700))
	require.True(t, changed)
	assert.Equal(t, core.Cents(700), g.Current)
	assert.Equal(t, int64(2), g.Version)
}

func TestWithdrawn(t *testing.T) {
	assert.Equal(t, core.Cents(300), Withdrawn(core.Cents(500), core.Cents(200)))
	assert.Equal(t, core.Cents(0), Withdrawn(core.Cents(100), core.Cents(200)))
}
