// File: utils/constants.go
package utils

import "time"

// SessionPrefix is the prefix used for Redis session keys.
const SessionPrefix = "session:"

// SessionContextKey is the gin context key holding the authenticated session.
const SessionContextKey = "session"

// DefaultSessionTTL applies when no TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// ProfileCompletionTTL bounds how long a provider sign-in may sit in profile completion.
const ProfileCompletionTTL = 30 * time.Minute
