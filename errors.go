package rql

import (
	"errors"
	"net/http"

	"github.com/nlstn/go-rql/internal/rqlerrors"
)

// Sentinel errors for the error classes of the package.
// These can be used with errors.Is() for error handling.
var (
	// ErrSyntax is wrapped by every *SyntaxError.
	// Maps to HTTP 400 Bad Request.
	ErrSyntax = rqlerrors.ErrSyntax

	// ErrNoSuchField indicates an unknown attribute, sorting into a
	// collection, or a like pattern rejected by a wildcard or pattern rule.
	// Maps to HTTP 400 Bad Request.
	ErrNoSuchField = rqlerrors.ErrNoSuchField

	// ErrUnsupportedFieldType indicates a schema member the compiler cannot
	// filter on, such as a whole nested object.
	// Maps to HTTP 400 Bad Request.
	ErrUnsupportedFieldType = rqlerrors.ErrUnsupportedFieldType

	// ErrIllegalValueType indicates a literal that does not fit the operator
	// or the member type.
	// Maps to HTTP 400 Bad Request.
	ErrIllegalValueType = rqlerrors.ErrIllegalValueType

	// ErrNonComparableField indicates an ordering operator on a member that
	// has no order.
	// Maps to HTTP 400 Bad Request.
	ErrNonComparableField = rqlerrors.ErrNonComparableField

	// ErrCursorAndLimit is returned by Builder.Build when both a cursor and a
	// limit were set.
	ErrCursorAndLimit = rqlerrors.ErrCursorAndLimit

	// ErrInvalidCursor indicates a cursor token that is malformed or was
	// issued for a different query.
	// Maps to HTTP 400 Bad Request.
	ErrInvalidCursor = rqlerrors.ErrInvalidCursor
)

// SyntaxError reports a query that does not parse. Line and Column are
// 1-based and only meaningful when Located is set. Problems holds every
// problem collected during the parse.
type SyntaxError = rqlerrors.SyntaxError

// Problem is one message collected while parsing.
type Problem = rqlerrors.Problem

// FieldError reports a path or value the compiler cannot accept. Kind is one
// of ErrNoSuchField, ErrUnsupportedFieldType, ErrIllegalValueType and
// ErrNonComparableField.
type FieldError = rqlerrors.FieldError

// HTTPStatus returns the HTTP status code a REST layer should answer with
// for err.
//
// Example usage:
//
//	m, err := rql.Parse(r.URL.Query().Get("q"))
//	if err != nil {
//	    http.Error(w, err.Error(), rql.HTTPStatus(err))
//	    return
//	}
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, ErrSyntax),
		errors.Is(err, ErrNoSuchField),
		errors.Is(err, ErrUnsupportedFieldType),
		errors.Is(err, ErrIllegalValueType),
		errors.Is(err, ErrNonComparableField),
		errors.Is(err, ErrCursorAndLimit),
		errors.Is(err, ErrInvalidCursor):
		return http.StatusBadRequest
	}

	// Default to internal server error for unknown errors
	return http.StatusInternalServerError
}

// IsSyntaxError returns true if err is or wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	return errors.Is(err, ErrSyntax)
}

// IsNoSuchField returns true if err reports an attribute that cannot be used.
//
// Example usage:
//
//	if rql.IsNoSuchField(err) {
//	    var fe *rql.FieldError
//	    errors.As(err, &fe)
//	    log.Printf("rejected field %s", fe.Path)
//	}
func IsNoSuchField(err error) bool {
	return errors.Is(err, ErrNoSuchField)
}

// IsUnsupportedFieldType returns true if err reports a member kind the
// compiler has no rule for.
func IsUnsupportedFieldType(err error) bool {
	return errors.Is(err, ErrUnsupportedFieldType)
}

// IsIllegalValueType returns true if err reports a literal that does not fit.
func IsIllegalValueType(err error) bool {
	return errors.Is(err, ErrIllegalValueType)
}

// IsNonComparableField returns true if err reports an ordering operator on an
// unordered member.
func IsNonComparableField(err error) bool {
	return errors.Is(err, ErrNonComparableField)
}

// ErrorClass returns a short identifier of the class of err, such as
// "syntax" or "no_such_field". Errors of no known class yield "other".
func ErrorClass(err error) string {
	return rqlerrors.Class(err)
}
