package ledger

import (
	"iter"

	"pocketmoney/internal/core"
)

// History yields the account's transactions, most recent first. A limit of
// zero or less means no limit.
//
// The sequence is lazy and restartable: each iteration takes a fresh view of
// the log and never mutates it.
func (l *Ledger) History(id core.AccountID, limit int) (iter.Seq[core.Transaction], error) {
	a, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	return func(yield func(core.Transaction) bool) {
		a.mu.RLock()
		// Entries below len are immutable, so the view stays valid after
		// the lock is released.
		view := a.entries[:len(a.entries):len(a.entries)]
		a.mu.RUnlock()

		n := 0
		for i := len(view) - 1; i >= 0; i-- {
			if limit > 0 && n >= limit {
				return
			}
			if !yield(view[i]) {
				return
			}
			n++
		}
	}, nil
}
