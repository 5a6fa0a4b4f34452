// Package storage persists the household journal in SQLite.
//
// Transactions are insert-only and keyed by their ledger sequence number.
// Chores, goals and policies are upserted with their version, and an older
// version never overwrites a newer one, so writes may arrive out of order.
// Balances are not stored: Load returns the log and the ledger replays it.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"pocketmoney/internal/core"
)

const timeLayout = time.RFC3339Nano

type Journal struct {
	db *sql.DB
}

// State is everything needed to rebuild a household.
type State struct {
	Accounts     []core.Account
	Transactions []core.Transaction
	Chores       []core.Chore
	Goals        []core.SavingsGoal
	Policies     []core.PolicySettings
	Missions     []core.MissionCompletion
}

// Open creates the database directory if needed, migrates the schema and
// returns a ready journal.
func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time avoids SQLITE_BUSY under concurrent commands.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

func (j *Journal) RecordAccount(ctx context.Context, a core.Account) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, role, avatar, dob, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		a.ID, a.Name, a.Role, a.Avatar, a.DOB.String(), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record account %s: %w", a.ID, err)
	}
	return nil
}

// RecordTransaction is idempotent on the transaction id.
func (j *Journal) RecordTransaction(ctx context.Context, t core.Transaction) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, amount_cents, description, kind, category, ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		int64(t.ID), t.AccountID, t.Amount.Cents, t.Description, t.Kind, t.Category, t.Ref, t.Timestamp.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record transaction %d: %w", t.ID, err)
	}
	return nil
}

func (j *Journal) RecordChore(ctx context.Context, c core.Chore) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO chores (id, title, reward_cents, status, assignee_id, due_date, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			reward_cents = excluded.reward_cents,
			status = excluded.status,
			assignee_id = excluded.assignee_id,
			due_date = excluded.due_date,
			version = excluded.version
		WHERE excluded.version > chores.version`,
		c.ID, c.Title, c.Reward.Cents, c.Status, c.AssigneeID, c.DueDate.String(), c.Version)
	if err != nil {
		return fmt.Errorf("record chore %s: %w", c.ID, err)
	}
	return nil
}

func (j *Journal) RecordGoal(ctx context.Context, g core.SavingsGoal) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO goals (id, title, target_cents, current_cents, owner_id, glyph, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			target_cents = excluded.target_cents,
			current_cents = excluded.current_cents,
			owner_id = excluded.owner_id,
			glyph = excluded.glyph,
			version = excluded.version
		WHERE excluded.version > goals.version`,
		g.ID, g.Title, g.Target.Cents, g.Current.Cents, g.OwnerID, g.Glyph, g.Version)
	if err != nil {
		return fmt.Errorf("record goal %s: %w", g.ID, err)
	}
	return nil
}

func (j *Journal) RecordPolicy(ctx context.Context, p core.PolicySettings) error {
	blocked, err := json.Marshal(p.BlockedCategories)
	if err != nil {
		return fmt.Errorf("encode blocked categories: %w", err)
	}
	lastPaid := ""
	if !p.Allowance.LastPaidAt.IsZero() {
		lastPaid = p.Allowance.LastPaidAt.UTC().Format(timeLayout)
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO policies (
			account_id, frozen, daily_limit_cents, blocked_categories,
			card_color, card_label, card_theme,
			allowance_active, allowance_cents, allowance_frequency, allowance_weekday, allowance_last_paid,
			version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			frozen = excluded.frozen,
			daily_limit_cents = excluded.daily_limit_cents,
			blocked_categories = excluded.blocked_categories,
			card_color = excluded.card_color,
			card_label = excluded.card_label,
			card_theme = excluded.card_theme,
			allowance_active = excluded.allowance_active,
			allowance_cents = excluded.allowance_cents,
			allowance_frequency = excluded.allowance_frequency,
			allowance_weekday = excluded.allowance_weekday,
			allowance_last_paid = excluded.allowance_last_paid,
			version = excluded.version
		WHERE excluded.version > policies.version`,
		p.AccountID, p.Frozen, p.DailyLimit.Cents, string(blocked),
		p.Card.Color, p.Card.Label, p.Card.Theme,
		p.Allowance.Active, p.Allowance.Amount.Cents, p.Allowance.Frequency, int(p.Allowance.Weekday), lastPaid,
		p.Version)
	if err != nil {
		return fmt.Errorf("record policy %s: %w", p.AccountID, err)
	}
	return nil
}

func (j *Journal) RecordMission(ctx context.Context, m core.MissionCompletion) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO mission_completions (account_id, mission_id, points, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, mission_id) DO NOTHING`,
		m.AccountID, m.MissionID, m.Points, m.CompletedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record mission %s for %s: %w", m.MissionID, m.AccountID, err)
	}
	return nil
}
