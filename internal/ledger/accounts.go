package ledger

import (
	"iter"
	"strings"

	"pocketmoney/internal/core"
)

// Create registers a new account with a zero balance.
func (l *Ledger) Create(p core.Profile) (core.AccountID, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	role, _ := core.ParseRole(string(p.Role))
	info := core.Account{
		ID:     newAccountID(),
		Name:   strings.TrimSpace(p.Name),
		Role:   role,
		Avatar: p.Avatar,
		DOB:    p.DOB,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[info.ID] = &account{info: info}
	l.order = append(l.order, info.ID)
	return info.ID, nil
}

// Get returns a copy of the account with its current balance.
func (l *Ledger) Get(id core.AccountID) (core.Account, error) {
	a, err := l.lookup(id)
	if err != nil {
		return core.Account{}, err
	}
	return a.snapshot(), nil
}

// All yields every account in creation order.
func (l *Ledger) All() iter.Seq[core.Account] {
	return func(yield func(core.Account) bool) {
		for _, a := range l.accountsInOrder() {
			if !yield(a.snapshot()) {
				return
			}
		}
	}
}

// Dependents yields the accounts with the DEPENDENT role.
func (l *Ledger) Dependents() iter.Seq[core.Account] {
	return func(yield func(core.Account) bool) {
		for a := range l.All() {
			if a.Role != core.Dependent {
				continue
			}
			if !yield(a) {
				return
			}
		}
	}
}

// Exists reports whether id resolves to an account.
func (l *Ledger) Exists(id core.AccountID) bool {
	_, err := l.lookup(id)
	return err == nil
}

// Statement returns the account and its full log read under one lock, so the
// balance always equals the sum of the returned entries.
func (l *Ledger) Statement(id core.AccountID) (core.Account, []core.Transaction, error) {
	a, err := l.lookup(id)
	if err != nil {
		return core.Account{}, nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	info := a.info
	info.Balance = a.balance
	return info, append([]core.Transaction(nil), a.entries...), nil
}

func (l *Ledger) accountsInOrder() []*account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*account, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.accounts[id])
	}
	return out
}

func (a *account) snapshot() core.Account {
	a.mu.RLock()
	defer a.mu.RUnlock()
	info := a.info
	info.Balance = a.balance
	return info
}
