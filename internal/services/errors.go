package services

import (
	"errors"
	"fmt"

	"github.com/hansupo/shad-label/internal/repositories"
)

var (
	ErrAttributeInvalidInput = errors.New("attribute: invalid input")
	ErrAttributeNotFound     = errors.New("attribute: not found")
	ErrAttributeConflict     = errors.New("attribute: name already exists")

	ErrProductInvalidInput = errors.New("product: invalid input")
	ErrProductNotFound     = errors.New("product: not found")

	ErrTemplateInvalidInput = errors.New("template: invalid input")
	ErrTemplateNotFound     = errors.New("template: not found")

	ErrLabelInvalidInput   = errors.New("label: invalid input")
	ErrLabelPDFFailed      = errors.New("label: pdf generation failed")
	ErrLabelPDFUnavailable = errors.New("label: pdf renderer not configured")

	ErrCSVInvalidInput = errors.New("csv: invalid input")

	// ErrServiceUnavailable signals a storage outage.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// withMessage wraps sentinel with a client-facing message. The message is recoverable through Message.
func withMessage(sentinel error, message string) error {
	return &messageError{sentinel: sentinel, message: message}
}

type messageError struct {
	sentinel error
	message  string
}

func (e *messageError) Error() string { return fmt.Sprintf("%v: %s", e.sentinel, e.message) }
func (e *messageError) Unwrap() error { return e.sentinel }

// Message returns the client-facing message attached to err, or "" when there is none.
func Message(err error) string {
	var msgErr *messageError
	if errors.As(err, &msgErr) {
		return msgErr.message
	}
	return ""
}

// translateRepoError maps repository classifications onto service sentinels.
func translateRepoError(err error, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	switch {
	case notFound != nil && repositories.IsNotFound(err):
		return fmt.Errorf("%w: %v", notFound, err)
	case conflict != nil && repositories.IsConflict(err):
		return fmt.Errorf("%w: %v", conflict, err)
	case repositories.IsUnavailable(err):
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	default:
		return err
	}
}
