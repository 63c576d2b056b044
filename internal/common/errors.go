package common

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// Kind is the closed set of failure categories the HTTP boundary knows how to render.
type Kind int

const (
	KindDomain Kind = iota
	KindValidation
	KindMalformedID
	KindNotFound
	KindAuthMissing
	KindAuthInvalid
	KindWeakPassword
	KindForbidden
	KindConflict
	KindUnknownRoute
)

var kindNames = map[Kind]string{
	KindDomain:       "DomainError",
	KindValidation:   "ValidationError",
	KindMalformedID:  "MalformedIdentifierError",
	KindNotFound:     "NotFoundError",
	KindAuthMissing:  "AuthError::Missing",
	KindAuthInvalid:  "AuthError::Invalid",
	KindWeakPassword: "AuthError::WeakPassword",
	KindForbidden:    "AuthorizationError",
	KindConflict:     "UniquenessConflictError",
	KindUnknownRoute: "UnknownRouteError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownRoute   = errors.New("unknown endpoint")
)

// MalformedIDError is returned when an identifier cannot be parsed into the store's format.
type MalformedIDError struct {
	RawID string
}

func (e MalformedIDError) Error() string {
	return "malformatted id"
}

// NotFoundError is returned when no record exists for an otherwise valid identifier.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return ErrRecordNotFound.Error()
	}
	return fmt.Sprintf("record %s not found", e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}

type AuthReason int

const (
	AuthMissing AuthReason = iota
	AuthInvalid
	AuthWeakPassword
)

// AuthError is an authentication failure. The caller could not be identified.
type AuthError struct {
	Reason  AuthReason
	Message string
}

func (e AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Reason {
	case AuthMissing:
		return "token missing"
	case AuthWeakPassword:
		return "password must be at least 3 characters long"
	default:
		return "token invalid"
	}
}

// AuthorizationError means the caller is known but not entitled to touch the resource.
type AuthorizationError struct {
	ResourceID string
	Reason     string
}

func (e AuthorizationError) Error() string {
	return "only the owner can modify this blog"
}

// ConflictError is a uniqueness violation on Field.
type ConflictError struct {
	Field string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("expected `%s` to be unique", e.Field)
}

// Error is the translated, boundary-facing form of any failure.
type Error struct {
	Kind    Kind
	Field   string
	ID      string
	Name    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Translate maps any error into the taxonomy. Errors it does not recognise become
// KindDomain and keep their type name and message.
func Translate(err error) *Error {
	if err == nil {
		return nil
	}

	var translated *Error
	if errors.As(err, &translated) {
		return translated
	}

	err = StoreError(err)

	var (
		validationErr ValidationError
		malformedErr  MalformedIDError
		notFoundErr   NotFoundError
		authErr       AuthError
		forbiddenErr  AuthorizationError
		conflictErr   ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		field, message := validationErr.first()
		return &Error{Kind: KindValidation, Field: field, Message: message, Err: err}
	case errors.As(err, &malformedErr):
		return &Error{Kind: KindMalformedID, ID: malformedErr.RawID, Message: malformedErr.Error(), Err: err}
	case errors.As(err, &notFoundErr):
		return &Error{Kind: KindNotFound, ID: notFoundErr.ID, Message: "resource not found", Err: err}
	case errors.Is(err, ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Message: "resource not found", Err: err}
	case errors.As(err, &authErr):
		kind := KindAuthInvalid
		switch authErr.Reason {
		case AuthMissing:
			kind = KindAuthMissing
		case AuthWeakPassword:
			kind = KindWeakPassword
		}
		return &Error{Kind: kind, Message: authErr.Error(), Err: err}
	case errors.As(err, &forbiddenErr):
		return &Error{Kind: KindForbidden, ID: forbiddenErr.ResourceID, Message: forbiddenErr.Error(), Err: err}
	case errors.As(err, &conflictErr):
		return &Error{Kind: KindConflict, Field: conflictErr.Field, Message: conflictErr.Error(), Err: err}
	case errors.Is(err, ErrUnknownRoute):
		return &Error{Kind: KindUnknownRoute, Message: ErrUnknownRoute.Error(), Err: err}
	default:
		return &Error{Kind: KindDomain, Name: typeName(err), Message: err.Error(), Err: err}
	}
}

// StoreError converts driver level failures into the typed errors above. Anything
// it does not recognise is returned untouched.
func StoreError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return NotFoundError{}
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "23505":
		return ConflictError{Field: constraintField(pqErr.Table, pqErr.Constraint, "_key")}
	case "22P02":
		return MalformedIDError{}
	case "23502":
		return ValidationError{Errors: map[string]string{pqErr.Column: "must be provided"}}
	case "23514":
		field := constraintField(pqErr.Table, pqErr.Constraint, "_check")
		return ValidationError{Errors: map[string]string{field: "is invalid"}}
	case "23503":
		// the only foreign key is blogs.user_id, so the token names a user that is gone
		return AuthError{Reason: AuthInvalid, Message: "token invalid: user does not exist"}
	default:
		return err
	}
}

// constraintField recovers the column from Postgres' default constraint naming
// (<table>_<column>_<suffix>).
func constraintField(table, constraint, suffix string) string {
	field := strings.TrimSuffix(constraint, suffix)
	if table != "" {
		field = strings.TrimPrefix(field, table+"_")
	}
	return field
}

func (e ValidationError) first() (string, string) {
	if len(e.Errors) == 0 {
		return "", "validation failed"
	}

	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Errors[field]))
	}

	return fields[0], "validation failed: " + strings.Join(parts, ", ")
}

func typeName(err error) string {
	name := fmt.Sprintf("%T", err)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "*")
}
