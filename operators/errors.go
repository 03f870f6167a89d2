package operators

import (
	"errors"
	"fmt"
	"strings"
)

/*
Error taxonomy for the whole engine. Every package wraps one of these
sentinels so callers can classify failures with errors.Is:

	ColumnNotFound      - requested column name absent from the table
	NotSupported        - operation intentionally unimplemented for this
	                      backend/configuration; message names the
	                      recommended alternative where one exists
	InvalidOperation    - operation is not valid for the resolved data type
	AnonymousExpression - an operation that needs known output names got an
	                      untracked expression
	Assertion           - internal invariant broken; an engine bug, never a
	                      user error, and never meant to be recovered
*/
var (
	ErrColumnNotFound      = errors.New("column not found")
	ErrNotSupported        = errors.New("not supported")
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrAnonymousExpression = errors.New("anonymous expression")
	ErrAssertion           = errors.New("internal assertion failed")
)

var (
	ErrInvalidSchema = func(info string) error {
		return fmt.Errorf("invalid schema was provided. context: %s", info)
	}
)

// ColumnNotFound lists every missing name plus the full available set so the
// caller can see what the table actually holds.
func ColumnNotFound(missing []string, available []string) error {
	return fmt.Errorf("%w: [%s], available columns: [%s]",
		ErrColumnNotFound,
		strings.Join(missing, ", "),
		strings.Join(available, ", "))
}

// NotSupported names the operation; alternative may be empty when there is
// no equivalent call to point at.
func NotSupported(op string, alternative string) error {
	if alternative == "" {
		return fmt.Errorf("%w: %s", ErrNotSupported, op)
	}
	return fmt.Errorf("%w: %s, use %s instead", ErrNotSupported, op, alternative)
}

func InvalidOperation(op string, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidOperation, op, detail)
}

func AnonymousExpression(op string) error {
	return fmt.Errorf("%w: %s requires named expressions; instead of selecting by position, select columns by name", ErrAnonymousExpression, op)
}

func Assertion(detail string) error {
	return fmt.Errorf("%w: %s, this is a bug in the engine", ErrAssertion, detail)
}
