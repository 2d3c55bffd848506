package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-ffsp/internal/classify"
	"github.com/deploymenttheory/go-ffsp/internal/dump"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
	"github.com/deploymenttheory/go-ffsp/internal/runner"
)

// Target represents the drill-down selection requested on the command line
type Target struct {
	Eraseblock    uint64
	HasEraseblock bool
	Cluster       uint64
	HasCluster    bool
}

// Validate ensures the target is reachable from the top of the hierarchy
func (t *Target) Validate() error {
	if t.HasCluster && !t.HasEraseblock {
		return errors.New("a cluster can only be selected within an eraseblock")
	}
	return nil
}

// IsEmpty returns true if no target is specified
func (t *Target) IsEmpty() bool {
	return !t.HasEraseblock && !t.HasCluster
}

// String returns a string representation of the target
func (t *Target) String() string {
	switch {
	case t.HasCluster:
		return fmt.Sprintf("Eraseblock %d / Cluster %d", t.Eraseblock, t.Cluster)
	case t.HasEraseblock:
		return fmt.Sprintf("Eraseblock %d", t.Eraseblock)
	default:
		return "Superblock"
	}
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeDebugDirAccess   = "DEBUG_DIR_ACCESS"
	ErrCodeNotMounted       = "NOT_MOUNTED"
	ErrCodePermission       = "PERMISSION_DENIED"
	ErrCodeInvalidSelection = "INVALID_SELECTION"
	ErrCodeUnknownType      = "UNKNOWN_ERASEBLOCK_TYPE"
	ErrCodeCommandFailed    = "COMMAND_FAILED"
	ErrCodeTimeout          = "TIMEOUT"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// FromCore maps an error from the inspector core onto a CommonError code.
// Errors that already are CommonErrors pass through.
func FromCore(message string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CommonError
	if errors.As(err, &ce) {
		return err
	}

	code := ErrCodeDebugDirAccess
	switch {
	case errors.Is(err, dump.ErrAccessDenied):
		code = ErrCodePermission
	case errors.Is(err, dump.ErrNotFound):
		code = ErrCodeNotMounted
	case errors.Is(err, navigator.ErrInvalidSelection):
		code = ErrCodeInvalidSelection
	case errors.Is(err, classify.ErrUnknownEraseblockType):
		code = ErrCodeUnknownType
	case errors.Is(err, runner.ErrPrecondition):
		code = ErrCodeInvalidInput
	case errors.Is(err, runner.ErrCommandFailed):
		code = ErrCodeCommandFailed
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	}
	return NewError(code, message, err)
}
