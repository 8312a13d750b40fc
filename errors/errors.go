package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrNotFound              = fmt.Errorf("record not found")
	ErrForbidden             = fmt.Errorf("access to this resource is not allowed")
	ErrValidation            = fmt.Errorf("validation failed")
	ErrDuplicateConversation = fmt.Errorf("conversation already exists for this combination")
	ErrQuotaExceeded         = fmt.Errorf("monthly property quota exceeded")
	ErrInvalidTransition     = fmt.Errorf("transition not allowed from current status")
	ErrOwnMessage            = fmt.Errorf("cannot mark own message as read")
	ErrTxConflict            = fmt.Errorf("transaction conflict retries exhausted")
	ErrBroadcastUnavailable  = fmt.Errorf("broadcast transport unavailable")

	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not satisfy complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrMissingToken       = fmt.Errorf("authorization token is missing")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
)

// Is and As are re-exported so callers importing this package
// don't also need the standard library one.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }
