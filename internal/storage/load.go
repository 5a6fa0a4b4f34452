package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pocketmoney/internal/core"
)

// Load reads the whole journal. Transactions come back in sequence order.
func (j *Journal) Load(ctx context.Context) (State, error) {
	var (
		s   State
		err error
	)
	if s.Accounts, err = j.loadAccounts(ctx); err != nil {
		return State{}, err
	}
	if s.Transactions, err = j.loadTransactions(ctx); err != nil {
		return State{}, err
	}
	if s.Chores, err = j.loadChores(ctx); err != nil {
		return State{}, err
	}
	if s.Goals, err = j.loadGoals(ctx); err != nil {
		return State{}, err
	}
	if s.Policies, err = j.loadPolicies(ctx); err != nil {
		return State{}, err
	}
	if s.Missions, err = j.loadMissions(ctx); err != nil {
		return State{}, err
	}
	return s, nil
}

// scanAll runs query and calls scan once per row.
func scanAll(ctx context.Context, db *sql.DB, what, query string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan %s: %w", what, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", what, err)
	}
	return nil
}

func (j *Journal) loadAccounts(ctx context.Context) ([]core.Account, error) {
	var out []core.Account
	err := scanAll(ctx, j.db, "accounts",
		`SELECT id, name, role, avatar, dob FROM accounts ORDER BY rowid`,
		func(rows *sql.Rows) error {
			var (
				a   core.Account
				dob string
			)
			if err := rows.Scan(&a.ID, &a.Name, &a.Role, &a.Avatar, &dob); err != nil {
				return err
			}
			d, err := core.ParseDate(dob)
			if err != nil {
				return err
			}
			a.DOB = d
			out = append(out, a)
			return nil
		})
	return out, err
}

func (j *Journal) loadTransactions(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	err := scanAll(ctx, j.db, "transactions",
		`SELECT id, account_id, amount_cents, description, kind, category, ref, created_at FROM transactions ORDER BY id`,
		func(rows *sql.Rows) error {
			var (
				t  core.Transaction
				ts string
			)
			if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount.Cents, &t.Description, &t.Kind, &t.Category, &t.Ref, &ts); err != nil {
				return err
			}
			at, err := time.Parse(timeLayout, ts)
			if err != nil {
				return err
			}
			t.Timestamp = at
			out = append(out, t)
			return nil
		})
	return out, err
}

func (j *Journal) loadChores(ctx context.Context) ([]core.Chore, error) {
	var out []core.Chore
	err := scanAll(ctx, j.db, "chores",
		`SELECT id, title, reward_cents, status, assignee_id, due_date, version FROM chores ORDER BY rowid`,
		func(rows *sql.Rows) error {
			var (
				c   core.Chore
				due string
			)
			if err := rows.Scan(&c.ID, &c.Title, &c.Reward.Cents, &c.Status, &c.AssigneeID, &due, &c.Version); err != nil {
				return err
			}
			d, err := core.ParseDate(due)
			if err != nil {
				return err
			}
			c.DueDate = d
			out = append(out, c)
			return nil
		})
	return out, err
}

func (j *Journal) loadGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	var out []core.SavingsGoal
	err := scanAll(ctx, j.db, "goals",
		`SELECT id, title, target_cents, current_cents, owner_id, glyph, version FROM goals ORDER BY rowid`,
		func(rows *sql.Rows) error {
			var g core.SavingsGoal
			if err := rows.Scan(&g.ID, &g.Title, &g.Target.Cents, &g.Current.Cents, &g.OwnerID, &g.Glyph, &g.Version); err != nil {
				return err
			}
			out = append(out, g)
			return nil
		})
	return out, err
}

func (j *Journal) loadPolicies(ctx context.Context) ([]core.PolicySettings, error) {
	var out []core.PolicySettings
	err := scanAll(ctx, j.db, "policies", `
		SELECT account_id, frozen, daily_limit_cents, blocked_categories,
			card_color, card_label, card_theme,
			allowance_active, allowance_cents, allowance_frequency, allowance_weekday, allowance_last_paid,
			version
		FROM policies ORDER BY account_id`,
		func(rows *sql.Rows) error {
			var (
				p        core.PolicySettings
				blocked  string
				weekday  int
				lastPaid string
			)
			if err := rows.Scan(&p.AccountID, &p.Frozen, &p.DailyLimit.Cents, &blocked,
				&p.Card.Color, &p.Card.Label, &p.Card.Theme,
				&p.Allowance.Active, &p.Allowance.Amount.Cents, &p.Allowance.Frequency, &weekday, &lastPaid,
				&p.Version); err != nil {
				return err
			}
			if err := json.Unmarshal([]byte(blocked), &p.BlockedCategories); err != nil {
				return fmt.Errorf("decode blocked categories: %w", err)
			}
			p.Allowance.Weekday = time.Weekday(weekday)
			if lastPaid != "" {
				at, err := time.Parse(timeLayout, lastPaid)
				if err != nil {
					return err
				}
				p.Allowance.LastPaidAt = at
			}
			out = append(out, p)
			return nil
		})
	return out, err
}

func (j *Journal) loadMissions(ctx context.Context) ([]core.MissionCompletion, error) {
	var out []core.MissionCompletion
	err := scanAll(ctx, j.db, "mission completions",
		`SELECT account_id, mission_id, points, completed_at FROM mission_completions ORDER BY completed_at, rowid`,
		func(rows *sql.Rows) error {
			var (
				m  core.MissionCompletion
				ts string
			)
			if err := rows.Scan(&m.AccountID, &m.MissionID, &m.Points, &ts); err != nil {
				return err
			}
			at, err := time.Parse(timeLayout, ts)
			if err != nil {
				return err
			}
			m.CompletedAt = at
			out = append(out, m)
			return nil
		})
	return out, err
}
