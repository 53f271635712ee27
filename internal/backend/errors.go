package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProcedure is returned by Callers for procedures they do not serve.
	ErrUnknownProcedure = errors.New("unknown procedure")
	// ErrNotFound is returned when a procedure targets a row that does not exist.
	ErrNotFound = errors.New("not found")
)

// ParamError reports a procedure called with missing or mistyped arguments.
type ParamError struct {
	Procedure string
	Params    Params
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameters for %s: %v", e.Procedure, e.Params)
}
