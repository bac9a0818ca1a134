package transit

import (
	"errors"
	"fmt"
)

var (
	// Matches any *NotFoundError.
	ErrNotFound = errors.New("not found")

	// Malformed query input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// An unknown identifier in a query.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// The static archive was unreadable, lacked a required file, or held
// malformed rows.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing static archive: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
