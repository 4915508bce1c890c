package pileapi

import (
	"database/sql"
	"errors"
	"net/http"
)

// Category groups errors by how they surface to clients
type Category string

const (
	CategoryAuth       Category = "authentication"
	CategoryAuthz      Category = "authorization"
	CategoryValidation Category = "validation"
	CategoryBadInput   Category = "bad_input"
	CategoryConflict   Category = "conflict"
	CategoryNotFound   Category = "not_found"
	CategoryInternal   Category = "internal"
)

// Error is the structured error returned by services and rendered by the
// HTTP error handler. Message is safe to show to clients, Source is not.
type Error struct {
	Category         Category
	Code             int
	TextCode         string
	Message          string
	Source           error
	ValidationErrors map[string]string
	Metadata         map[string]any
}

func (e *Error) Error() string {
	if e.Source != nil {
		return e.Message + ": " + e.Source.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Source
}

// Is matches errors sharing the same text code so wrapped sentinels compare
// equal to their originals.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.TextCode != "" && e.TextCode == t.TextCode
}

// WithMetadata returns a copy carrying extra metadata
func (e *Error) WithMetadata(kv map[string]any) *Error {
	cp := *e
	cp.Metadata = make(map[string]any, len(e.Metadata)+len(kv))
	for k, v := range e.Metadata {
		cp.Metadata[k] = v
	}
	for k, v := range kv {
		cp.Metadata[k] = v
	}
	return &cp
}

// Wrap attaches a source error to a copy of e
func (e *Error) Wrap(source error) *Error {
	cp := *e
	cp.Source = source
	return &cp
}

// NewError creates a new structured error
func NewError(category Category, code int, textCode, message string) *Error {
	return &Error{
		Category: category,
		Code:     code,
		TextCode: textCode,
		Message:  message,
	}
}

// WrapError wraps err as an internal error with the given message
func WrapError(err error, category Category, message string) *Error {
	return &Error{
		Category: category,
		Code:     codeForCategory(category),
		TextCode: "INTERNAL",
		Message:  message,
		Source:   err,
	}
}

// NewValidationError builds a 422 carrying per field messages
func NewValidationError(fields map[string]string) *Error {
	return &Error{
		Category:         CategoryValidation,
		Code:             http.StatusUnprocessableEntity,
		TextCode:         TextCodeValidation,
		Message:          "Validation failed",
		ValidationErrors: fields,
	}
}

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeTokenInvalid       = "TOKEN_INVALID"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodePrincipalNotFound  = "PRINCIPAL_NOT_FOUND"
	TextCodeOwnershipMismatch  = "OWNERSHIP_MISMATCH"
	TextCodeStoreUnavailable   = "STORE_UNAVAILABLE"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodePasswordMismatch   = "PASSWORD_MISMATCH"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeNotFound           = "NOT_FOUND"
	TextCodeValidation         = "VALIDATION_FAILED"
	TextCodeBadRequest         = "BAD_REQUEST"
)

var (
	// ErrInvalidCredentials is returned for any login failure. It does not say
	// whether the email or the password was wrong.
	ErrInvalidCredentials = NewError(CategoryBadInput, http.StatusBadRequest, TextCodeInvalidCredentials, "Login failed")

	// ErrTokenInvalid covers missing, malformed, badly signed or expired tokens
	ErrTokenInvalid = NewError(CategoryAuth, http.StatusUnauthorized, TextCodeTokenInvalid, "Unauthorized")

	// ErrTokenExpired is a refinement of ErrTokenInvalid
	ErrTokenExpired = NewError(CategoryAuth, http.StatusUnauthorized, TextCodeTokenExpired, "Unauthorized")

	// ErrPrincipalNotFound is returned when a valid token names a deleted user
	ErrPrincipalNotFound = NewError(CategoryAuth, http.StatusUnauthorized, TextCodePrincipalNotFound, "Unauthorized")

	// ErrOwnershipMismatch is returned when a principal reaches for another owner's data
	ErrOwnershipMismatch = NewError(CategoryAuthz, http.StatusForbidden, TextCodeOwnershipMismatch, "Hey, how about you try accessing your own data?")

	// ErrStoreUnavailable wraps credential store I/O failures
	ErrStoreUnavailable = NewError(CategoryInternal, http.StatusInternalServerError, TextCodeStoreUnavailable, "Something went wrong")

	// ErrNoEmptyString is returned when hashing an empty password
	ErrNoEmptyString = NewError(CategoryValidation, http.StatusBadRequest, TextCodeEmptyPassword, "password can not be empty")

	// ErrMismatchedHashAndPassword is returned when a password does not match its hash
	ErrMismatchedHashAndPassword = NewError(CategoryAuth, http.StatusUnauthorized, TextCodePasswordMismatch, "password does not match")

	// ErrEmailTaken is returned when registering or updating to an email in use
	ErrEmailTaken = NewError(CategoryConflict, http.StatusConflict, TextCodeEmailTaken, "email is already linked to an existing account")

	// ErrRecordNotFound is the repository not found error
	ErrRecordNotFound = NewError(CategoryNotFound, http.StatusNotFound, TextCodeNotFound, "Not found")

	// ErrBadRequest is returned for bodies we can not parse
	ErrBadRequest = NewError(CategoryBadInput, http.StatusBadRequest, TextCodeBadRequest, "Unable to parse request")
)

// IsNotFound reports whether err is a repository miss
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) || errors.Is(err, sql.ErrNoRows)
}

// IsUnauthenticated reports whether err should surface as a 401
func IsUnauthenticated(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == CategoryAuth
	}
	return false
}

// StatusCode maps err to the HTTP status the client sees
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}

func codeForCategory(c Category) int {
	switch c {
	case CategoryAuth:
		return http.StatusUnauthorized
	case CategoryAuthz:
		return http.StatusForbidden
	case CategoryValidation:
		return http.StatusUnprocessableEntity
	case CategoryBadInput:
		return http.StatusBadRequest
	case CategoryConflict:
		return http.StatusConflict
	case CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
