package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxTextRunes is the longest accepted message.
const MaxTextRunes = 3000

var (
	// ErrEmptyInput means there was neither text nor a file.
	ErrEmptyInput = errors.New("message is empty")

	// ErrTooLong means the text exceeds MaxTextRunes.
	ErrTooLong = fmt.Errorf("message is longer than %d characters", MaxTextRunes)
)

// ValidationError is returned before any network call or write.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// sendRequest mirrors Input with the rules attached. validator counts
// runes for string max.
type sendRequest struct {
	Text    string `validate:"max=3000"`
	Trimmed string `validate:"required_without=File"`
	File    *File
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func validateInput(v *validator.Validate, in Input) error {
	req := sendRequest{
		Text:    in.Text,
		Trimmed: strings.TrimSpace(in.Text),
		File:    in.File,
	}
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "input", Err: err}
	}
	switch fieldErrs[0].Tag() {
	case "max":
		return &ValidationError{Field: "text", Err: ErrTooLong}
	default:
		return &ValidationError{Field: "text", Err: ErrEmptyInput}
	}
}
