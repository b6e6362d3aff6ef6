// Package rqlerrors defines the error taxonomy shared by the parser, the
// compiler and the public API.
package rqlerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Typed errors unwrap to one of these so callers can use errors.Is.
var (
	ErrSyntax               = errors.New("rql: syntax error")
	ErrNoSuchField          = errors.New("rql: no such field")
	ErrUnsupportedFieldType = errors.New("rql: unsupported field type")
	ErrIllegalValueType     = errors.New("rql: illegal value type")
	ErrNonComparableField   = errors.New("rql: non comparable field")
)

// Builder and cursor errors.
var (
	ErrCursorAndLimit = errors.New("rql: cursor and limit cannot be used together")
	ErrInvalidCursor  = errors.New("rql: invalid cursor token")
)

// Problem is a single message collected while parsing, optionally tied to a
// 1-based source location. Err is set when the problem has a sentinel of its
// own.
type Problem struct {
	Msg     string
	Line    int
	Column  int
	Located bool
	Err     error
}

func (p Problem) String() string {
	if !p.Located {
		return p.Msg
	}
	return fmt.Sprintf("%s @[line:%d, column:%d]", p.Msg, p.Line, p.Column)
}

// SyntaxError is returned for lexical and grammatical violations. Msg, Line
// and Column describe the reported problem; Problems holds everything that
// was collected during the parse.
type SyntaxError struct {
	Msg      string
	Line     int
	Column   int
	Located  bool
	Problems []Problem
}

// NewSyntaxError picks the reported problem from the collected ones: the
// first located problem wins, otherwise all messages are aggregated.
func NewSyntaxError(problems []Problem) *SyntaxError {
	for _, p := range problems {
		if p.Located {
			return &SyntaxError{Msg: p.Msg, Line: p.Line, Column: p.Column, Located: true, Problems: problems}
		}
	}
	msgs := make([]string, 0, len(problems))
	for _, p := range problems {
		msgs = append(msgs, p.Msg)
	}
	return &SyntaxError{
		Msg:      "not a valid rql query: " + strings.Join(msgs, "\n"),
		Problems: problems,
	}
}

func (e *SyntaxError) Error() string {
	if !e.Located {
		return e.Msg
	}
	return fmt.Sprintf("%s @[line:%d, column:%d]", e.Msg, e.Line, e.Column)
}

// Unwrap returns ErrSyntax and the sentinels of the collected problems.
func (e *SyntaxError) Unwrap() []error {
	errs := []error{ErrSyntax}
	for _, p := range e.Problems {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errs
}

// FieldError is raised by the compiler when a path or value is not acceptable
// for a schema member. Kind is one of the compiler error classes.
type FieldError struct {
	Kind error
	Path string
	Msg  string
}

func (e *FieldError) Error() string {
	return e.Msg
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

// NoSuchField reports an unknown attribute.
func NoSuchField(path string) *FieldError {
	return &FieldError{Kind: ErrNoSuchField, Path: path, Msg: fmt.Sprintf("field '%s' does not exist", path)}
}

// Rejected reports a path that exists but cannot be used, with a custom message.
func Rejected(path, msg string) *FieldError {
	return &FieldError{Kind: ErrNoSuchField, Path: path, Msg: msg}
}

// UnsupportedFieldType reports a member whose kind cannot be used where the
// path ends.
func UnsupportedFieldType(path string, kind fmt.Stringer) *FieldError {
	return &FieldError{
		Kind: ErrUnsupportedFieldType,
		Path: path,
		Msg:  fmt.Sprintf("type of field '%s' not supported, found %s", path, kind),
	}
}

// Unsupported reports a member that exists but cannot be rendered where the
// path leads, with a custom message.
func Unsupported(path, format string, args ...any) *FieldError {
	return &FieldError{Kind: ErrUnsupportedFieldType, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// IllegalValueType reports a literal that does not fit the member or operator.
func IllegalValueType(path, format string, args ...any) *FieldError {
	return &FieldError{Kind: ErrIllegalValueType, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// NonComparableField reports an operator the member type does not support.
func NonComparableField(path, format string, args ...any) *FieldError {
	return &FieldError{Kind: ErrNonComparableField, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// Class returns a short identifier of the error class, for metrics and logs.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSyntax):
		return "syntax"
	case errors.Is(err, ErrNoSuchField):
		return "no_such_field"
	case errors.Is(err, ErrUnsupportedFieldType):
		return "unsupported_field_type"
	case errors.Is(err, ErrIllegalValueType):
		return "illegal_value_type"
	case errors.Is(err, ErrNonComparableField):
		return "non_comparable_field"
	case errors.Is(err, ErrInvalidCursor):
		return "invalid_cursor"
	default:
		return "other"
	}
}
