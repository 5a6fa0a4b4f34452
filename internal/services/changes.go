package services

import (
	"sync"

	"pocketmoney/internal/core"
)

type ChangeType string

const (
	ChangeAccount     ChangeType = "account"
	ChangeTransaction ChangeType = "transaction"
	ChangeChore       ChangeType = "chore"
	ChangeGoal        ChangeType = "goal"
	ChangePolicy      ChangeType = "policy"
	ChangeMission     ChangeType = "mission"
)

// Change describes one committed update. Exactly one of the pointer fields is
// set, matching Type.
type Change struct {
	Type        ChangeType              `json:"type"`
	AccountID   core.AccountID          `json:"account_id"`
	Account     *core.Account           `json:"account,omitempty"`
	Transaction *core.Transaction       `json:"transaction,omitempty"`
	Chore       *core.Chore             `json:"chore,omitempty"`
	Goal        *core.SavingsGoal       `json:"goal,omitempty"`
	Policy      *core.PolicySettings    `json:"policy,omitempty"`
	Mission     *core.MissionCompletion `json:"mission,omitempty"`
}

type hub struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan Change
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Change)}
}

func (h *hub) subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Change, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// broadcast never blocks. Sends happen under the read lock so a concurrent
// cancel cannot close a channel mid-send.
func (h *hub) broadcast(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
