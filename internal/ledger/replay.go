package ledger

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"pocketmoney/internal/core"
)

// Snapshot returns every account and every transaction in append order.
// Balances on the returned accounts are informational; Replay ignores them.
func (l *Ledger) Snapshot() ([]core.Account, []core.Transaction) {
	var (
		accounts []core.Account
		txs      []core.Transaction
	)
	for _, a := range l.accountsInOrder() {
		a.mu.RLock()
		info := a.info
		info.Balance = a.balance
		accounts = append(accounts, info)
		txs = append(txs, a.entries...)
		a.mu.RUnlock()
	}
	slices.SortFunc(txs, func(x, y core.Transaction) int { return cmp.Compare(x.ID, y.ID) })
	return accounts, txs
}

// Replay rebuilds an empty ledger from persisted accounts and transactions.
// Transactions are applied in ID order and balances are derived from them;
// persisted balances are never trusted. Observers are not notified.
func (l *Ledger) Replay(accounts []core.Account, txs []core.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.accounts) > 0 || l.seq.Load() > 0 {
		return errors.New("replay into a non-empty ledger")
	}

	for _, info := range accounts {
		if _, dup := l.accounts[info.ID]; dup {
			return fmt.Errorf("duplicate account %q", info.ID)
		}
		info.Balance = core.Money{}
		l.accounts[info.ID] = &account{info: info}
		l.order = append(l.order, info.ID)
	}

	sorted := slices.Clone(txs)
	slices.SortFunc(sorted, func(x, y core.Transaction) int { return cmp.Compare(x.ID, y.ID) })

	var last core.TransactionID
	for _, t := range sorted {
		if t.ID <= last {
			return fmt.Errorf("transaction %d out of order", t.ID)
		}
		a, ok := l.accounts[t.AccountID]
		if !ok {
			return fmt.Errorf("transaction %d: account %q: %w", t.ID, t.AccountID, core.ErrUnknownAccount)
		}
		a.entries = append(a.entries, t)
		a.balance = a.balance.Add(t.Amount)
		last = t.ID
	}
	l.seq.Store(int64(last))
	return nil
}
