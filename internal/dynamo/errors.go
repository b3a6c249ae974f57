package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrSizeMismatch indicates a legacy state whose atom count disagrees with
	// the local atom count of the state buffer.
	ErrSizeMismatch = errors.New("dynamo: atom count mismatch between legacy state and state buffer")

	// ErrNoBackup indicates a trajectory write for a step without a held backup.
	ErrNoBackup = errors.New("dynamo: no state backup held for write step")

	// ErrInvalidConfig indicates run parameters that cannot drive a simulation.
	ErrInvalidConfig = errors.New("dynamo: invalid simulation config")

	// ErrInvalidState indicates NaN or Inf in a state vector.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// SizeMismatchError reports the two disagreeing atom counts.
type SizeMismatchError struct {
	Want int
	Got  int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: buffer has %d local atoms, legacy state has %d", ErrSizeMismatch, e.Want, e.Got)
}

func (e *SizeMismatchError) Is(target error) bool { return target == ErrSizeMismatch }

// ViolationCode categorizes contract violations.
type ViolationCode string

const (
	// ViolationReentrantBackup: a backup was requested while one is held.
	ViolationReentrantBackup ViolationCode = "REENTRANT_BACKUP"

	// ViolationUnscopedAccess: overlapping mutable views, or a view released
	// with an unjoined device operation.
	ViolationUnscopedAccess ViolationCode = "UNSCOPED_ACCESS"

	// ViolationInvalidPartition: state accessed while a partitioning event is
	// unacknowledged, or a partition attempted while a backup is held.
	ViolationInvalidPartition ViolationCode = "INVALID_PARTITION_STATE"

	// ViolationDoubleAdvance: the state was advanced twice for one step.
	ViolationDoubleAdvance ViolationCode = "DOUBLE_ADVANCE"
)

// ContractViolation is the panic value for broken element-integration
// invariants. The loop cannot continue from one.
type ContractViolation struct {
	Code    ViolationCode
	Message string
}

func (v *ContractViolation) Error() string {
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// Violate panics with a *ContractViolation.
func Violate(code ViolationCode, format string, args ...any) {
	panic(&ContractViolation{Code: code, Message: fmt.Sprintf(format, args...)})
}

// IsViolation reports whether a recovered panic value is a contract violation
// with the given code.
func IsViolation(r any, code ViolationCode) bool {
	v, ok := r.(*ContractViolation)
	return ok && v.Code == code
}

// StepError wraps an error with the step it occurred in.
type StepError struct {
	Step    Step
	Time    Time
	Element string
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f) %s: %v", e.Step, float64(e.Time), e.Element, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
