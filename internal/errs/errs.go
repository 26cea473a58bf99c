// Package errs declares the error kinds shared by every Medusa subsystem.
//
// Data-layer operations return an explicit error kind, never a panic or a
// language-level exception; the Analyzer absorbs a failure to decode at one
// address and degrades only that trace instead of aborting the driver.
package errs

import (
	"errors"
	"fmt"
)

// Kind sentinels. Test with errors.Is, e.g. errors.Is(err, errs.NotFound).
var (
	NotFound        = errors.New("not found")         // no cell / label / xref at address
	Conflict        = errors.New("conflict")           // invariant violated, force=false
	Overlap         = errors.New("overlap")             // memory area or allocation intersects
	Decode          = errors.New("decode error")        // architecture failed to disassemble
	Translate       = errors.New("translate error")     // logical to linear mapping absent
	Truncated       = errors.New("truncated")           // short read
	DivisionByZero  = errors.New("division by zero")    // IR evaluation error
	WidthMismatch   = errors.New("width mismatch")      // IR evaluation error
	Canceled        = errors.New("canceled")            // task interrupted
	IO              = errors.New("io error")            // backing stream error
)

// Error wraps a Kind with the operation and address that produced it, in the
// shape of the teacher's MemoryError: a small struct with an Is method so
// callers can still match on the sentinel with errors.Is.
type Error struct {
	Kind error
	Op   string
	Addr fmt.Stringer
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	switch {
	case e.Addr != nil && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %s", e.Op, e.Kind, e.Addr, e.Err)
	case e.Addr != nil:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Addr)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}

	return e.Kind
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// New builds an *Error for op failing at addr with kind.
func New(op string, kind error, addr fmt.Stringer) *Error {
	return &Error{Op: op, Kind: kind, Addr: addr}
}

// Wrap builds an *Error for op failing at addr with kind, wrapping cause.
func Wrap(op string, kind error, addr fmt.Stringer, cause error) *Error {
	return &Error{Op: op, Kind: kind, Addr: addr, Err: cause}
}
