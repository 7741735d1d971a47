package identity

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

var toolkitCodes = map[string]ErrorKind{
	"EMAIL_NOT_FOUND":                  KindNotFound,
	"USER_NOT_FOUND":                   KindNotFound,
	"INVALID_PASSWORD":                 KindWrongPassword,
	"INVALID_EMAIL":                    KindInvalidEmail,
	"MISSING_EMAIL":                    KindInvalidEmail,
	"USER_DISABLED":                    KindDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER":      KindRateLimited,
	"INVALID_LOGIN_CREDENTIALS":        KindInvalidCredential,
	"INVALID_CREDENTIAL":               KindInvalidCredential,
	"INVALID_ID_TOKEN":                 KindInvalidCredential,
	"EMAIL_EXISTS":                     KindEmailInUse,
	"WEAK_PASSWORD":                    KindWeakPassword,
	"INVALID_IDP_RESPONSE":             KindPopupFailed,
	"FEDERATED_USER_ID_ALREADY_LINKED": KindPopupFailed,
}

// allowedKinds narrows classification to the failures each operation can report.
var allowedKinds = map[Operation]map[ErrorKind]bool{
	OpSignIn: {
		KindNotFound: true, KindWrongPassword: true, KindInvalidEmail: true, KindDisabled: true,
		KindRateLimited: true, KindNetwork: true, KindInvalidCredential: true,
	},
	OpRegister: {
		KindEmailInUse: true, KindInvalidEmail: true, KindWeakPassword: true, KindNetwork: true,
	},
	OpProviderSignIn: {
		KindPopupFailed: true,
	},
	OpSignOut: {
		KindNetwork: true,
	},
	OpToken: {
		KindInvalidCredential: true, KindNetwork: true,
	},
}

// classify turns a transport or service error into an *AuthError for op.
func classify(op Operation, err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	kind, msg := kindOf(err)
	if !allowedKinds[op][kind] {
		kind = KindUnknown
	}
	return newError(op, kind, msg, err)
}

func kindOf(err error) (ErrorKind, string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork, ""
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		code := toolkitCode(apiErr.Message)
		if kind, ok := toolkitCodes[code]; ok {
			return kind, apiErr.Message
		}
		for _, item := range apiErr.Errors {
			if kind, ok := toolkitCodes[toolkitCode(item.Message)]; ok {
				return kind, apiErr.Message
			}
		}
		if apiErr.Code == http.StatusTooManyRequests {
			return KindRateLimited, apiErr.Message
		}
		return KindUnknown, apiErr.Message
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= http.StatusInternalServerError {
			return KindNetwork, ""
		}
		return KindInvalidCredential, ""
	}

	switch {
	case auth.IsUserNotFound(err):
		return KindNotFound, ""
	case auth.IsUserDisabled(err):
		return KindDisabled, ""
	case auth.IsEmailAlreadyExists(err):
		return KindEmailInUse, ""
	case auth.IsInvalidEmail(err):
		return KindInvalidEmail, ""
	case auth.IsIDTokenExpired(err), auth.IsIDTokenInvalid(err), auth.IsIDTokenRevoked(err):
		return KindInvalidCredential, ""
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork, ""
	}
	return KindUnknown, err.Error()
}

// toolkitCode extracts "WEAK_PASSWORD" from "WEAK_PASSWORD : Password should be at least 6 characters".
func toolkitCode(message string) string {
	code := strings.TrimSpace(message)
	if i := strings.IndexAny(code, " :"); i >= 0 {
		code = code[:i]
	}
	return code
}
