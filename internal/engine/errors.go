package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a content or collaborator failure met while running
// scripts. The engine logs these and continues; they are returned only by
// internal helpers and by Deserialize.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Scope is the script source the failing rule came from.
	Scope string

	// Puzzle is the key of the failing rule, 0 when not rule-related.
	Puzzle uint32

	// Action is the name of the failing result.
	Action string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeMissingScript indicates a scope had no script source.
	ErrCodeMissingScript RuntimeErrorCode = "MISSING_SCRIPT"

	// ErrCodeBadScript indicates a script source failed to load.
	ErrCodeBadScript RuntimeErrorCode = "BAD_SCRIPT"

	// ErrCodeBadArgument indicates a result argument is out of range.
	ErrCodeBadArgument RuntimeErrorCode = "BAD_ARGUMENT"

	// ErrCodeCollaborator indicates the renderer or audio collaborator
	// refused a request.
	ErrCodeCollaborator RuntimeErrorCode = "COLLABORATOR_FAILED"

	// ErrCodeUnknownAction indicates a result kind the executor does not know.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"

	// ErrCodeBadSave indicates a save stream was rejected.
	ErrCodeBadSave RuntimeErrorCode = "BAD_SAVE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Scope != "" && e.Puzzle != 0 {
		msg = fmt.Sprintf("%s (scope=%s, puzzle=%d)", msg, e.Scope, e.Puzzle)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsCollaboratorError reports whether err is a collaborator failure.
// Uses errors.As to handle wrapped errors.
func IsCollaboratorError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCollaborator
	}
	return false
}

// IsSaveError reports whether err is a rejected save stream.
func IsSaveError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeBadSave
	}
	return false
}

func collaboratorError(action string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCollaborator,
		Message: "collaborator refused request",
		Action:  action,
		Err:     err,
	}
}

func argumentError(action, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeBadArgument,
		Message: fmt.Sprintf(format, args...),
		Action:  action,
	}
}
