package pileapi

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the structured logger used across the package. Args are key/value
// pairs following the message.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetKeyID() string
	GetContextKey() string
	GetTokenExpiration() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
	GetBcryptCost() int
	GetStrictActivityTracking() bool
	GetUseHashid() bool
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
	VerifyPassword(password, hash string) bool
}

// IdentityProvider ensure we have a store to verify credentials
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (*User, error)
}

// PrincipalResolver resolves the user behind a raw bearer token
type PrincipalResolver interface {
	PrincipalFromToken(ctx context.Context, raw string) (*User, error)
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	PrincipalResolver
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

// LoginResult is what a successful login hands back to the caller
type LoginResult struct {
	User  *User
	Token string
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] PILEAPI " + format(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] PILEAPI " + format(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] PILEAPI " + format(msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] PILEAPI " + format(msg, args...))
}

func format(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	b.WriteString("\n")
	return b.String()
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
