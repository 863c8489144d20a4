package exam

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession        = errors.New("exam: no active session")
	ErrSessionActive    = errors.New("exam: a session is already active")
	ErrSubmitInProgress = errors.New("exam: submission in progress")
	ErrAlreadySubmitted = errors.New("exam: session already submitted")
	ErrUnknownQuestion  = errors.New("exam: unknown question")
	ErrChoiceOutOfRange = errors.New("exam: choice index out of range")
	ErrTimeExpired      = errors.New("exam: time limit reached")
)

// ValidationError reports a rejected Start precondition.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("exam: %s: %s", e.Field, e.Message)
}
