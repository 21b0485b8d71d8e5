package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Kind enumerates the terminal outcomes of a failed login or OTP verification.
type Kind int

const (
	KindInvalidCredentials Kind = iota + 1
	KindInvalidRequest
	KindUserNotFound
	KindOtpExpired
	KindInvalidOtp
	KindNotificationFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindInvalidRequest:
		return "invalid request"
	case KindUserNotFound:
		return "user not found"
	case KindOtpExpired:
		return "otp expired"
	case KindInvalidOtp:
		return "invalid otp"
	case KindNotificationFailed:
		return "notification failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// AuthError carries a Kind and, optionally, the collaborator error behind it.
type AuthError struct {
	Kind Kind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches another *AuthError of the same Kind, so errors.Is(err, NewAuthError(k, nil)) works.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NewAuthError(kind Kind, err error) error {
	return &AuthError{Kind: kind, Err: err}
}

// AuthKind reports the Kind of the first AuthError in err's chain.
func AuthKind(err error) (Kind, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind, true
	}
	return 0, false
}
