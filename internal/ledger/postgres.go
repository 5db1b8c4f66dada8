package ledger

import (
	"context"
	"database/sql"
	"errors"

	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/mochiserver/mochibot/core/logger"
)

// PostgresStore implements Store on a Postgres database via sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an established connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureUser(ctx context.Context, id int64, username, firstName, lastName string) (bool, error) {
	const q = `
		INSERT INTO users (id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, q, id, username, firstName, lastName)
	if err != nil {
		return false, storageErr("ensure user", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("ensure user", err)
	}

	created := rows == 1
	if created {
		logger.SVCLedger.LogAttrs(ctx, slog.LevelInfo, "account.created",
			slog.Int64("user_id", id),
		)
	}
	return created, nil
}

func (s *PostgresStore) CreditReferral(ctx context.Context, id int64, amount int64) error {
	const q = `UPDATE users SET balance = balance + $2 WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, q, id, amount); err != nil {
		return storageErr("credit referral", err)
	}
	logger.SVCLedger.LogAttrs(ctx, slog.LevelInfo, "referral.credited",
		slog.Int64("user_id", id),
		slog.Int64("amount", amount),
	)
	return nil
}

func (s *PostgresStore) GetBalance(ctx context.Context, id int64) (int64, error) {
	const q = `SELECT balance FROM users WHERE id = $1`

	var balance int64
	err := s.db.GetContext(ctx, &balance, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		// Unknown users read as zero, not as an error.
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("get balance", err)
	}
	return balance, nil
}

func (s *PostgresStore) Debit(ctx context.Context, id int64, amount int64) (bool, error) {
	// The balance check and decrement form one conditional update. Two
	// concurrent debits can never both pass on a balance covering one.
	const q = `UPDATE users SET balance = balance - $2 WHERE id = $1 AND balance >= $2`

	res, err := s.db.ExecContext(ctx, q, id, amount)
	if err != nil {
		return false, storageErr("debit", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("debit", err)
	}
	if rows == 0 {
		return false, nil
	}
	logger.SVCLedger.LogAttrs(ctx, slog.LevelInfo, "balance.debited",
		slog.Int64("user_id", id),
		slog.Int64("amount", amount),
	)
	return true, nil
}

func (s *PostgresStore) MarkTestConfigUsed(ctx context.Context, id int64) (bool, error) {
	// Test-and-set: the flag flips at most once per account.
	const q = `UPDATE users SET test_config_used = TRUE WHERE id = $1 AND NOT test_config_used`

	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, storageErr("mark test config", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("mark test config", err)
	}
	if rows == 1 {
		return true, nil
	}

	// Zero rows means either an already-claimed config or no account at all.
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id); err != nil {
		return false, storageErr("mark test config", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id int64, username, firstName, lastName string, balance int64) error {
	const q = `
		UPDATE users
		SET username = $2, first_name = $3, last_name = $4, balance = $5
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, q, id, username, firstName, lastName, balance)
	if err != nil {
		return storageErr("update profile", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return storageErr("update profile", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	logger.SVCLedger.LogAttrs(ctx, slog.LevelInfo, "account.updated",
		slog.Int64("user_id", id),
		slog.Int64("balance", balance),
	)
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	const q = `DELETE FROM users WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return storageErr("delete user", err)
	}
	logger.SVCLedger.LogAttrs(ctx, slog.LevelInfo, "account.deleted",
		slog.Int64("user_id", id),
	)
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*Account, error) {
	const q = `
		SELECT id, username, first_name, last_name, balance, test_config_used
		FROM users WHERE id = $1`

	var acc Account
	err := s.db.GetContext(ctx, &acc, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return &acc, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]Account, error) {
	const q = `
		SELECT id, username, first_name, last_name, balance, test_config_used
		FROM users ORDER BY id`

	var accs []Account
	if err := s.db.SelectContext(ctx, &accs, q); err != nil {
		return nil, storageErr("list users", err)
	}
	return accs, nil
}
