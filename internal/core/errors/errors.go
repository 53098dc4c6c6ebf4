// Package errors defines the coded error type shared across nexalint.
package errors

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrorCode classifies a failure independently of its message.
type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeReadFailed      ErrorCode = "READ_FAILED"
	CodeRuleFailed      ErrorCode = "RULE_FAILED"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// Context keys used across packages.
const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxRule      = "rule"
	CtxSetting   = "setting"
)

// DomainError carries a code, a message, an optional cause and key/value
// details rendered in key order.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

func (e *DomainError) WithContext(key string, value any) *DomainError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.Code))
	b.WriteString("] ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Context) == 0 {
		return b.String()
	}
	b.WriteString(" (")
	for i, key := range slices.Sorted(maps.Keys(e.Context)) {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", key, e.Context[key])
	}
	b.WriteString(")")
	return b.String()
}

func (e *DomainError) Unwrap() error { return e.Err }

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...any) error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap keeps err reachable through errors.Is and errors.As.
func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches key=value to the first DomainError in err's chain.
// Errors without one are wrapped as CodeInternal.
func AddContext(err error, key string, value any) error {
	if de, ok := asDomain(err); ok {
		de.WithContext(key, value)
		return de
	}
	return Wrap(err, CodeInternal, "wrapped error").(*DomainError).WithContext(key, value)
}

// CodeOf returns the code of the first DomainError in err's chain, or ""
// when there is none.
func CodeOf(err error) ErrorCode {
	if de, ok := asDomain(err); ok {
		return de.Code
	}
	return ""
}

func asDomain(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
