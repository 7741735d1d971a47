package identity

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of identity failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindWrongPassword
	KindInvalidEmail
	KindDisabled
	KindRateLimited
	KindNetwork
	KindInvalidCredential
	KindEmailInUse
	KindWeakPassword
	KindPopupFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindWrongPassword:
		return "wrong_password"
	case KindInvalidEmail:
		return "invalid_email"
	case KindDisabled:
		return "disabled"
	case KindRateLimited:
		return "rate_limited"
	case KindNetwork:
		return "network_error"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindEmailInUse:
		return "email_in_use"
	case KindWeakPassword:
		return "weak_password"
	case KindPopupFailed:
		return "popup_failed"
	default:
		return "unknown"
	}
}

// Operation names the identity call an error came from; messages differ per call.
type Operation int

const (
	OpSignIn Operation = iota
	OpRegister
	OpProviderSignIn
	OpSignOut
	OpToken
)

// AuthError is returned by every Client operation.
type AuthError struct {
	Op      Operation
	Kind    ErrorKind
	Message string // raw provider message, used for KindUnknown
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("identity: %s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UserMessage is the human-readable text shown in the error banner.
func (e *AuthError) UserMessage() string {
	switch e.Kind {
	case KindNotFound:
		return "No account found with this email. Please register first."
	case KindWrongPassword:
		return "Incorrect password. Please try again."
	case KindInvalidEmail:
		return "Invalid email address."
	case KindDisabled:
		return "This account has been disabled. Contact support."
	case KindRateLimited:
		return "Too many failed attempts. Please try again later."
	case KindNetwork:
		return "Network error. Please check your connection."
	case KindInvalidCredential:
		return "Invalid email or password. Please try again."
	case KindEmailInUse:
		return "This email is already registered. Please login instead."
	case KindWeakPassword:
		return "Password is too weak. Please use a stronger password."
	case KindPopupFailed:
		return "Google login failed. Please try again."
	case KindUnknown:
		return e.unknownMessage()
	}
	return e.unknownMessage()
}

func (e *AuthError) unknownMessage() string {
	switch e.Op {
	case OpProviderSignIn:
		return "Google login failed. Please try again."
	case OpRegister:
		if e.Message != "" {
			return e.Message
		}
		return "Registration failed. Please try again."
	case OpSignOut:
		return "Sign out failed. Please try again."
	default:
		if e.Message != "" {
			return e.Message
		}
		return "Login failed. Please try again."
	}
}

// newError builds an AuthError for op.
func newError(op Operation, kind ErrorKind, msg string, err error) *AuthError {
	return &AuthError{Op: op, Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the kind of an identity error, or KindUnknown.
func KindOf(err error) ErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindUnknown
}
