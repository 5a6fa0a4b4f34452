package core

import (
	"strings"
	"time"
)

// Ref names the entity whose state change caused a ledger entry. It lets a
// restore repair entity state that was lost after the money moved.
type Ref string

const (
	RefChore     = "chore"
	RefGoal      = "goal"
	RefAllowance = "allowance"
)

func ChoreRef(id ChoreID) Ref { return Ref(RefChore + ":" + string(id)) }
func GoalRef(id GoalID) Ref   { return Ref(RefGoal + ":" + string(id)) }

// AllowanceRef names the allowance paid to id for the run at paidAt.
func AllowanceRef(id AccountID, paidAt time.Time) Ref {
	return Ref(RefAllowance + ":" + string(id) + "@" + paidAt.UTC().Format(time.RFC3339Nano))
}

// Split returns the kind and id of r. ok is false for an empty or malformed ref.
func (r Ref) Split() (kind, id string, ok bool) {
	kind, id, ok = strings.Cut(string(r), ":")
	if !ok || kind == "" || id == "" {
		return "", "", false
	}
	return kind, id, true
}

// ParseAllowanceRef is the inverse of AllowanceRef.
func ParseAllowanceRef(r Ref) (AccountID, time.Time, bool) {
	kind, id, ok := r.Split()
	if !ok || kind != RefAllowance {
		return "", time.Time{}, false
	}
	acct, stamp, ok := strings.Cut(id, "@")
	if !ok || acct == "" {
		return "", time.Time{}, false
	}
	paidAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return "", time.Time{}, false
	}
	return AccountID(acct), paidAt, true
}
