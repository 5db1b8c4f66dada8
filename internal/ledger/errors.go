package ledger

import "fmt"

// codedError is a sentinel error carrying a stable machine-readable code.
type codedError struct {
	code string
	msg  string
}

func (e *codedError) Error() string { return e.msg }

// Code returns the stable error code used in structured logs.
func (e *codedError) Code() string { return e.code }

var (
	// ErrInsufficientBalance indicates a debit was rejected because the
	// balance does not cover the amount. The balance is left unchanged.
	ErrInsufficientBalance = &codedError{code: "INSUFFICIENT_BALANCE", msg: "insufficient balance"}

	// ErrNotFound indicates the requested account does not exist.
	ErrNotFound = &codedError{code: "NOT_FOUND", msg: "account not found"}

	// ErrTestConfigUsed indicates the one-time test config was already claimed.
	ErrTestConfigUsed = &codedError{code: "TEST_CONFIG_USED", msg: "test config already used"}
)

// StorageError wraps a failure of the underlying store. Callers treat it as
// non-fatal: the action fails, the service keeps running.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Code returns the stable error code used in structured logs.
func (e *StorageError) Code() string { return "STORAGE_ERROR" }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
