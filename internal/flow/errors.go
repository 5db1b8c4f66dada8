package flow

// flowError is a sentinel error carrying a stable machine-readable code.
type flowError struct {
	code string
	msg  string
}

func (e *flowError) Error() string { return e.msg }

// Code returns the stable error code used in structured logs.
func (e *flowError) Code() string { return e.code }

var (
	// ErrMalformedInput indicates an admin edit payload that is not exactly
	// four comma-separated fields with a numeric balance.
	ErrMalformedInput = &flowError{code: "MALFORMED_INPUT", msg: "malformed edit payload"}

	// ErrNotAllowed indicates an action reserved for another privilege tier.
	ErrNotAllowed = &flowError{code: "NOT_ALLOWED", msg: "action not allowed"}
)
