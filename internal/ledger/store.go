// Package ledger is the authoritative store of user accounts and balances.
//
// Every balance mutation is expressed as an atomic conditional update at the
// storage layer. Debits and the test-config flag never go through a separate
// read-then-write pair; a concurrent pair of debits can therefore never both
// succeed when the balance covers only one of them.
package ledger

import "context"

// Account is a stored user record.
type Account struct {
	ID             int64  `db:"id"`
	Username       string `db:"username"`
	FirstName      string `db:"first_name"`
	LastName       string `db:"last_name"`
	Balance        int64  `db:"balance"`
	TestConfigUsed bool   `db:"test_config_used"`
}

// Store provides atomic access to user accounts.
//
// Unknown users read as zero-balance defaults rather than errors, except for
// GetUser and MarkTestConfigUsed which report ErrNotFound. All other failures
// surface as *StorageError.
type Store interface {
	// EnsureUser inserts a fresh account with zero balance. Repeat calls for
	// an existing id are no-ops that report created=false; they never touch
	// balance or the test-config flag.
	EnsureUser(ctx context.Context, id int64, username, firstName, lastName string) (created bool, err error)

	// CreditReferral adds the referral bonus to the balance. The caller is
	// responsible for invoking it only on the creation path.
	CreditReferral(ctx context.Context, id int64, amount int64) error

	// GetBalance returns the current balance, or 0 for unknown users.
	GetBalance(ctx context.Context, id int64) (int64, error)

	// Debit atomically checks balance >= amount and decrements. It returns
	// false and leaves the balance unchanged when funds are insufficient.
	Debit(ctx context.Context, id int64, amount int64) (bool, error)

	// MarkTestConfigUsed flips the one-time test-config flag in a single
	// test-and-set. It returns true when this call was the first use, and
	// ErrNotFound for an id without an account.
	MarkTestConfigUsed(ctx context.Context, id int64) (first bool, err error)

	// UpdateProfile overwrites username, names and balance for an account.
	UpdateProfile(ctx context.Context, id int64, username, firstName, lastName string, balance int64) error

	// DeleteUser removes the account entirely (admin block).
	DeleteUser(ctx context.Context, id int64) error

	// GetUser returns a single account or ErrNotFound.
	GetUser(ctx context.Context, id int64) (*Account, error)

	// ListUsers returns a read-only snapshot of all accounts.
	ListUsers(ctx context.Context) ([]Account, error)
}
