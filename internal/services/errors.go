package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies business-rule failures so the HTTP layer can map them to a status
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindForbidden    ErrorKind = "forbidden"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindInvalidState ErrorKind = "invalid_state"
)

// RouteError is returned for every rejected route operation.
// Details carries structured data for the client (e.g. remaining bin counts).
type RouteError struct {
	Kind    ErrorKind
	Message string
	Details map[string]interface{}
}

func (e *RouteError) Error() string {
	return e.Message
}

func ValidationError(format string, args ...interface{}) *RouteError {
	return &RouteError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func ForbiddenError(message string) *RouteError {
	return &RouteError{Kind: KindForbidden, Message: message}
}

func NotFoundError(message string) *RouteError {
	return &RouteError{Kind: KindNotFound, Message: message}
}

func ConflictError(message string) *RouteError {
	return &RouteError{Kind: KindConflict, Message: message}
}

func InvalidStateError(message string) *RouteError {
	return &RouteError{Kind: KindInvalidState, Message: message}
}

// IsKind reports whether err is a RouteError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var re *RouteError
	return errors.As(err, &re) && re.Kind == kind
}

// Errors returned by repositories
var (
	ErrRouteNotFound   = errors.New("route not found")
	ErrVersionConflict = errors.New("route was modified concurrently")
	ErrDuplicateName   = errors.New("route name already exists")
)
