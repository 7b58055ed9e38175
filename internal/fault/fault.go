// Package fault classifies failures into the process exit codes the CLI
// distinguishes: user-actionable problems, network problems, and everything
// else.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
)

const (
	ExitOK         = 0
	ExitUserError  = 2
	ExitNetwork    = 3
	ExitUnexpected = 4
)

// UserFacer marks errors whose message is safe and useful to surface verbatim
// to the operator. Domain packages implement it on their typed errors.
type UserFacer interface {
	error
	UserFacing()
}

type userError struct {
	msg   string
	cause error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.cause }
func (e *userError) UserFacing()   {}

// Userf builds a user-actionable error (exit code 2).
func Userf(format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...)}
}

// UserWrap attaches a user-facing message to an underlying cause.
func UserWrap(cause error, format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...), cause: cause}
}

// ExitCode maps an error to the CLI's exit code contract.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var uf UserFacer
	if errors.As(err, &uf) {
		return ExitUserError
	}
	var nerr net.Error
	if errors.As(err, &nerr) || errors.Is(err, context.DeadlineExceeded) {
		return ExitNetwork
	}
	return ExitUnexpected
}
