package errors

import (
	"errors"
	"fmt"
	"strings"
)

/*
Error collects several failures into one value. Batch operations use it to
keep going past individual failures and still report all of them at the end.
*/
type Error struct {
	Errs []error
	Msgs []any
}

func NewError(errs ...any) *Error {
	err := &Error{}

	for _, msg := range errs {
		err.Add(msg)
	}

	return err
}

// Add records an error or a message. Nil errors are ignored.
func (err *Error) Add(msg any) {
	switch v := msg.(type) {
	case error:
		if v != nil {
			err.Errs = append(err.Errs, v)
		}
	case string:
		err.Msgs = append(err.Msgs, v)
	}
}

// Len reports the number of recorded errors.
func (err *Error) Len() int {
	return len(err.Errs)
}

/*
ErrOrNil returns nil when no errors were recorded, so the aggregate can be
returned directly as an error value.
*/
func (err *Error) ErrOrNil() error {
	if err == nil || len(err.Errs) == 0 {
		return nil
	}

	return err
}

func (err *Error) Error() string {
	builder := &strings.Builder{}

	for _, msg := range err.Msgs {
		builder.WriteString(fmt.Sprintf("%v\n", msg))
	}

	for _, err := range err.Errs {
		builder.WriteString(err.Error())
		builder.WriteString("\n")
	}

	return strings.TrimSuffix(builder.String(), "\n")
}

// Unwrap exposes the recorded errors to errors.Is and errors.As.
func (err *Error) Unwrap() []error {
	return err.Errs
}

// Is and As re-export the standard library helpers alongside the aggregate.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)
