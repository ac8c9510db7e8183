package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnsupportedInput = errors.New("unsupported input file type")
	ErrTransient        = errors.New("transient transport failure")
	ErrAPIContract      = errors.New("api contract violation")
	ErrDecryptFailed    = errors.New("decrypt failed")
	ErrConfigMissing    = errors.New("configuration missing")
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
