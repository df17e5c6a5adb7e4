package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoAgent             = errors.New("signing agent unavailable")
	ErrUserRejected        = errors.New("request rejected by user")
	ErrWrongNetwork        = errors.New("wrong network")
	ErrUnrecognizedChain   = errors.New("chain not recognized by signing agent")
	ErrNoAccounts          = errors.New("signing agent returned no accounts")
	ErrNotConnected        = errors.New("wallet not connected")
	ErrInvalidArea         = errors.New("invalid area")
	ErrInvalidInput        = errors.New("invalid input")
	ErrDecodeFailure       = errors.New("ledger record decode failure")
	ErrTimeout             = errors.New("timed out waiting for confirmation")
	ErrReverted            = errors.New("execution reverted")
	ErrPreferenceNotFound  = errors.New("preference not found")
	ErrSecretNotFound      = errors.New("secret not found")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// RevertError carries the reason string supplied by the ledger when it rejects a call.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return ErrReverted.Error()
	}

	return fmt.Sprintf("%s: %s", ErrReverted, e.Reason)
}

func (e *RevertError) Is(target error) bool {
	return target == ErrReverted
}

// RevertReason extracts the ledger-supplied reason from err, if any.
func RevertReason(err error) (string, bool) {
	var revertErr *RevertError
	if errors.As(err, &revertErr) {
		return revertErr.Reason, true
	}

	return "", false
}
