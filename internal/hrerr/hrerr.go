// Package hrerr defines the error taxonomy shared by the HR domain layers.
//
// The taxonomy has five kinds, each represented by a sentinel so callers
// classify with errors.Is:
//
//   - ErrValidation: malformed input, insufficient balance, or an illegal
//     state transition. Surfaced to the user verbatim, never retried.
//   - ErrNotFound: unknown session, request, or employee id.
//   - ErrExternal: an HRMS or policy-search collaborator is unavailable.
//     The orchestrator degrades the turn instead of failing it.
//   - ErrAgentExecution: the reasoning loop exhausted its iteration cap or
//     could not parse a model decision. Contained inside the agent; the
//     result is tagged degraded rather than failed.
//   - ErrConflict: a balance check failed at commit time because a
//     concurrent transition won the row. The caller may retry.
//
// Constructors wrap a formatted message so the default rendering stays
// human-readable: "validation: start date 2024-01-05 is after end date ...".
package hrerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Use with errors.Is.
var (
	ErrValidation     = errors.New("validation")
	ErrNotFound       = errors.New("not found")
	ErrExternal       = errors.New("external service")
	ErrAgentExecution = errors.New("agent execution")
	ErrConflict       = errors.New("conflict")
)

// Validationf returns a validation error with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns a not-found error with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Externalf returns an external-service error with a formatted message.
func Externalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExternal, fmt.Sprintf(format, args...))
}

// AgentExecutionf returns an agent-execution error with a formatted message.
func AgentExecutionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAgentExecution, fmt.Sprintf(format, args...))
}

// Conflictf returns a conflict error with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Kind predicates, shorthand for errors.Is against the sentinels.

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsExternal(err error) bool { return errors.Is(err, ErrExternal) }

func IsAgentExecution(err error) bool { return errors.Is(err, ErrAgentExecution) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
