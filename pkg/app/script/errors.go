package script

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned (wrapped) when generation parameters are rejected.
// It is always reported before any output is produced.
var ErrInvalidConfiguration = errors.New("invalid configuration")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// IntegrityError reports a broken generator invariant, e.g. a cancel that
// references an order id with no recorded owner. It indicates a defect in the
// generator, never bad input.
type IntegrityError struct {
	Op      string
	OrderID OrderID
	Reason  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation: %s order %d: %s", e.Op, e.OrderID, e.Reason)
}
