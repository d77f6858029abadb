package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidationFailed    = errors.New("validation failed")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrAuthorizationFailed = errors.New("authorization failed")
	ErrExceedsBalance      = errors.New("amount exceeds balance due")
	ErrInvalidStatus       = errors.New("unknown order status")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrRemoteStore         = errors.New("store write failed")
)

// PartialWriteError marks a ledger sequence that failed after its
// first durable write. The intent ID points at the outbox row holding
// the completed steps so an operator can reconcile by hand.
type PartialWriteError struct {
	IntentID   string
	Completed  []string
	FailedStep string
	Err        error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial ledger write (intent %s): step %s failed after [%s]: %v",
		e.IntentID, e.FailedStep, strings.Join(e.Completed, ", "), e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
