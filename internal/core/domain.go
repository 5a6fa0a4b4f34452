package core

import (
	"strings"
	"time"
)

const (
	Guardian  Role = "GUARDIAN"
	Dependent Role = "DEPENDENT"
)

const (
	Spend    Kind = "SPEND"
	Earn     Kind = "EARN"
	Transfer Kind = "TRANSFER"
)

const (
	Pending   ChoreStatus = "PENDING"
	Review    ChoreStatus = "REVIEW"
	Completed ChoreStatus = "COMPLETED"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

const (
	ThemeDefault CardTheme = "default"
	ThemeDark    CardTheme = "dark"
	ThemeFun     CardTheme = "fun"
)

type (
	Role        string
	Kind        string
	ChoreStatus string
	Frequency   string
	CardTheme   string

	AccountID     string
	ChoreID       string
	GoalID        string
	TransactionID int64

	Date struct {
		time.Time
	}

	// Account is a guardian or dependent identity. Balance is derived from the
	// ledger and only the ledger writes it.
	Account struct {
		ID      AccountID `json:"id"`
		Name    string    `json:"name"`
		Role    Role      `json:"role"`
		Avatar  string    `json:"avatar"`
		DOB     Date      `json:"dob"`
		Balance Money     `json:"balance"`
	}

	// Profile is the caller supplied part of an Account.
	Profile struct {
		Name   string
		Role   Role
		Avatar string
		DOB    Date
	}

	Transaction struct {
		ID          TransactionID `json:"id"`
		AccountID   AccountID     `json:"account_id"`
		Amount      Money         `json:"amount"`
		Description string        `json:"description"`
		Kind        Kind          `json:"kind"`
		Category    string        `json:"category,omitempty"`
		Ref         Ref           `json:"ref,omitempty"`
		Timestamp   time.Time     `json:"timestamp"`
	}

	Chore struct {
		ID         ChoreID     `json:"id"`
		Title      string      `json:"title"`
		Reward     Money       `json:"reward"`
		Status     ChoreStatus `json:"status"`
		AssigneeID AccountID   `json:"assignee_id"`
		DueDate    Date        `json:"due_date"`
		Version    int64       `json:"version"`
	}

	SavingsGoal struct {
		ID      GoalID    `json:"id"`
		Title   string    `json:"title"`
		Target  Money     `json:"target"`
		Current Money     `json:"current"`
		OwnerID AccountID `json:"owner_id"`
		Glyph   string    `json:"glyph"`
		Version int64     `json:"version"`
	}

	CardDesign struct {
		Color string    `json:"color"`
		Label string    `json:"label"`
		Theme CardTheme `json:"theme"`
	}

	Allowance struct {
		Active     bool         `json:"active"`
		Amount     Money        `json:"amount"`
		Frequency  Frequency    `json:"frequency"`
		Weekday    time.Weekday `json:"weekday"`
		LastPaidAt time.Time    `json:"last_paid_at"`
	}

	PolicySettings struct {
		AccountID         AccountID  `json:"account_id"`
		Frozen            bool       `json:"frozen"`
		DailyLimit        Money      `json:"daily_limit"`
		BlockedCategories []string   `json:"blocked_categories"`
		Card              CardDesign `json:"card"`
		Allowance         Allowance  `json:"allowance"`
		Version           int64      `json:"version"`
	}
)

// ParseRole accepts the role names case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case Guardian, Dependent:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}

func (k Kind) Validate() error {
	switch k {
	case Spend, Earn, Transfer:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (f Frequency) Validate() error {
	switch f {
	case Weekly, Monthly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

// ParseWeekday accepts English day names ("Friday", "fri").
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, ErrInvalidWeekday
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, ErrInvalidWeekday
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if _, err := ParseRole(string(p.Role)); err != nil {
		return err
	}
	if !p.DOB.IsZero() {
		if err := p.DOB.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Terminal reports whether no further transitions are allowed.
func (s ChoreStatus) Terminal() bool {
	return s == Completed
}

// Blocks reports whether category is in the blocked set. Matching ignores case.
func (p PolicySettings) Blocks(category string) bool {
	category = strings.TrimSpace(category)
	if category == "" {
		return false
	}
	for _, c := range p.BlockedCategories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with p.
func (p PolicySettings) Clone() PolicySettings {
	p.BlockedCategories = append([]string(nil), p.BlockedCategories...)
	return p
}
