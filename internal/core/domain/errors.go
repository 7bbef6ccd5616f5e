package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoteNotFound      = errors.New("note not found")
	ErrTransport         = errors.New("transport failure")
	ErrParse             = errors.New("malformed response")
	ErrRecognitionFailed = errors.New("recognition produced no usable text")
	ErrInvalidInput      = errors.New("invalid input")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
