package domain

import "errors"

var (
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not a participant of this session")
	ErrStore        = errors.New("store failure")
)

// ErrorKind maps an error to the kind string carried by the wire-level
// error event. Anything outside the taxonomy is reported as "internal".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not-found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrStore):
		return "store"
	default:
		return "internal"
	}
}
