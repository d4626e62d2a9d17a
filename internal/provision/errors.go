// Package provision executes single resource creation and deletion steps
// against the EC2 API and classifies their failures. It holds no state
// between calls; sequencing, retries and persistence belong to the
// orchestrator.
package provision

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/aws/smithy-go"
)

// FailureClass tells the orchestrator how to react to a failed remote call.
type FailureClass string

const (
	// ClassTransient covers timeouts, throttling and network failures.
	// The caller may retry with backoff.
	ClassTransient FailureClass = "transient"

	// ClassConflict covers duplicate names, CIDR overlaps and in-use
	// dependencies reported by the remote side. Not retryable: it signals
	// a topology defect or debris from a prior run.
	ClassConflict FailureClass = "conflict"

	// ClassPermission covers authorization failures. Fatal, never retried.
	ClassPermission FailureClass = "permission"

	// ClassNotFound means the resource is already absent. Success for a
	// delete, an error for anything else.
	ClassNotFound FailureClass = "not_found"
)

// Error is a classified provisioning failure.
type Error struct {
	Class    FailureClass
	Op       string // remote operation, e.g. "CreateSubnet"
	Resource string // logical name of the affected resource
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s %s: %v", e.Class, e.Op, e.Resource, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is classified transient.
func IsTransient(err error) bool { return hasClass(err, ClassTransient) }

// IsConflict reports whether err is classified as a remote-side conflict.
func IsConflict(err error) bool { return hasClass(err, ClassConflict) }

// IsPermission reports whether err is an authorization failure.
func IsPermission(err error) bool { return hasClass(err, ClassPermission) }

// IsNotFound reports whether err means the resource is already absent.
func IsNotFound(err error) bool { return hasClass(err, ClassNotFound) }

func hasClass(err error, class FailureClass) bool {
	var e *Error
	return errors.As(err, &e) && e.Class == class
}

// Classify wraps a raw remote error with its failure class and operation
// context. Already-classified errors pass through unchanged.
func Classify(op, resource string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Class: classify(err), Op: op, Resource: resource, Err: err}
}

func classify(err error) FailureClass {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassTransient
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return classifyCode(apiErr.ErrorCode())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	// Unknown failures get bounded retries before escalation.
	return ClassTransient
}

// classifyCode maps EC2/STS error codes onto the failure taxonomy.
func classifyCode(code string) FailureClass {
	switch code {
	case "UnauthorizedOperation", "AuthFailure", "AccessDenied",
		"AccessDeniedException", "OptInRequired", "UnrecognizedClientException":
		return ClassPermission
	case "RequestLimitExceeded", "Throttling", "ThrottlingException",
		"RequestThrottled", "ServiceUnavailable", "Unavailable",
		"InternalError", "RequestTimeout", "RequestExpired":
		return ClassTransient
	case "DependencyViolation", "Resource.AlreadyAssociated", "RouteAlreadyExists":
		return ClassConflict
	}

	switch {
	case strings.Contains(code, "NotFound"):
		return ClassNotFound
	case strings.HasSuffix(code, ".Duplicate"),
		strings.HasSuffix(code, ".Conflict"),
		strings.HasSuffix(code, ".InUse"),
		strings.HasSuffix(code, ".Overlap"),
		strings.Contains(code, "AlreadyExists"),
		strings.Contains(code, "LimitExceeded"),
		code == "InvalidVpc.Range":
		return ClassConflict
	}

	return ClassTransient
}

// errorCodeIs reports whether err carries the given remote error code.
func errorCodeIs(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
