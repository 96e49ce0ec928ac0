// Package sqlite persists pool accounts in a local sqlite database.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/LiamVDB1/twitter-api/internal/domain"
	"github.com/LiamVDB1/twitter-api/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	username       TEXT PRIMARY KEY,
	password       TEXT NOT NULL,
	email          TEXT NOT NULL DEFAULT '',
	priority       INTEGER NOT NULL DEFAULT 1,
	tags           TEXT NOT NULL DEFAULT '[]',
	disabled       INTEGER NOT NULL DEFAULT 0,
	session_active INTEGER NOT NULL DEFAULT 0,
	success_count  INTEGER NOT NULL DEFAULT 0,
	failure_count  INTEGER NOT NULL DEFAULT 0,
	last_success   INTEGER NOT NULL DEFAULT 0,
	last_failure   INTEGER NOT NULL DEFAULT 0,
	last_error     TEXT NOT NULL DEFAULT '',
	rate_limits    TEXT NOT NULL DEFAULT '{}',
	updated_at     INTEGER NOT NULL DEFAULT 0
);
`

type Store struct {
	db *sqlx.DB
}

var _ ports.AccountStore = (*Store)(nil)

// New opens (creating if needed) the database at path with WAL mode on.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type accountRow struct {
	Username      string `db:"username"`
	Password      string `db:"password"`
	Email         string `db:"email"`
	Priority      int    `db:"priority"`
	Tags          string `db:"tags"`
	Disabled      bool   `db:"disabled"`
	SessionActive bool   `db:"session_active"`
	SuccessCount  int    `db:"success_count"`
	FailureCount  int    `db:"failure_count"`
	LastSuccess   int64  `db:"last_success"`
	LastFailure   int64  `db:"last_failure"`
	LastError     string `db:"last_error"`
	RateLimits    string `db:"rate_limits"`
	UpdatedAt     int64  `db:"updated_at"`
}

func (s *Store) LoadAll(ctx context.Context) ([]domain.Account, error) {
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM accounts ORDER BY priority, username`); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	accounts := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		account, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *Store) Upsert(ctx context.Context, account domain.Account) error {
	row, err := toRow(account)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO accounts (username, password, email, priority, tags, disabled, session_active,
			success_count, failure_count, last_success, last_failure, last_error, rate_limits, updated_at)
		VALUES (:username, :password, :email, :priority, :tags, :disabled, :session_active,
			:success_count, :failure_count, :last_success, :last_failure, :last_error, :rate_limits, :updated_at)
		ON CONFLICT(username) DO UPDATE SET
			password = excluded.password,
			email = excluded.email,
			priority = excluded.priority,
			tags = excluded.tags,
			disabled = excluded.disabled,
			session_active = excluded.session_active,
			success_count = excluded.success_count,
			failure_count = excluded.failure_count,
			last_success = excluded.last_success,
			last_failure = excluded.last_failure,
			last_error = excluded.last_error,
			rate_limits = excluded.rate_limits,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, username string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE username = ?`, username); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// SaveState updates mutable state only; credentials stay untouched.
func (s *Store) SaveState(ctx context.Context, account domain.Account) error {
	row, err := toRow(account)
	if err != nil {
		return err
	}

	const query = `
		UPDATE accounts SET
			disabled = :disabled,
			session_active = :session_active,
			success_count = :success_count,
			failure_count = :failure_count,
			last_success = :last_success,
			last_failure = :last_failure,
			last_error = :last_error,
			rate_limits = :rate_limits,
			updated_at = :updated_at
		WHERE username = :username
	`
	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("save account state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func toRow(account domain.Account) (accountRow, error) {
	tags := account.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return accountRow{}, fmt.Errorf("encode tags: %w", err)
	}

	limits := account.RateLimits
	if limits == nil {
		limits = map[domain.EndpointCategory]domain.RateLimitInfo{}
	}
	limitsJSON, err := json.Marshal(limits)
	if err != nil {
		return accountRow{}, fmt.Errorf("encode rate limits: %w", err)
	}

	return accountRow{
		Username:      account.Username,
		Password:      account.Password,
		Email:         account.Email,
		Priority:      account.Priority,
		Tags:          string(tagsJSON),
		Disabled:      account.Disabled,
		SessionActive: account.SessionActive,
		SuccessCount:  account.Health.SuccessCount,
		FailureCount:  account.Health.FailureCount,
		LastSuccess:   epochOrZero(account.Health.LastSuccess),
		LastFailure:   epochOrZero(account.Health.LastFailure),
		LastError:     account.Health.LastError,
		RateLimits:    string(limitsJSON),
		UpdatedAt:     time.Now().Unix(),
	}, nil
}

func fromRow(row accountRow) (domain.Account, error) {
	var tags []string
	if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
		return domain.Account{}, fmt.Errorf("decode tags for %s: %w", row.Username, err)
	}

	var limits map[domain.EndpointCategory]domain.RateLimitInfo
	if err := json.Unmarshal([]byte(row.RateLimits), &limits); err != nil {
		return domain.Account{}, fmt.Errorf("decode rate limits for %s: %w", row.Username, err)
	}

	return domain.Account{
		Username:      row.Username,
		Password:      row.Password,
		Email:         row.Email,
		Priority:      row.Priority,
		Tags:          tags,
		Disabled:      row.Disabled,
		SessionActive: row.SessionActive,
		Health: domain.Health{
			SuccessCount: row.SuccessCount,
			FailureCount: row.FailureCount,
			LastSuccess:  timeOrZero(row.LastSuccess),
			LastFailure:  timeOrZero(row.LastFailure),
			LastError:    row.LastError,
		},
		RateLimits: limits,
	}, nil
}

func epochOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(epoch int64) time.Time {
	if epoch == 0 {
		return time.Time{}
	}
	return time.Unix(epoch, 0)
}
