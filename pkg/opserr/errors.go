// Package opserr provides the error taxonomy shared by the flying operations workflow.
package opserr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind groups error codes by how the caller should react.
type Kind string

const (
	KindValidation Kind = "validation" // missing or malformed input
	KindAuth       Kind = "auth"       // identity or PIN rejected
	KindState      Kind = "state"      // workflow precondition not met
	KindNotFound   Kind = "not_found"  // referenced entity does not exist
	KindUncertain  Kind = "uncertain"  // outcome of a write is unknown, re-fetch before retrying
)

// Code identifies a specific failure.
type Code string

// Validation codes.
const (
	CodeMissingReading      Code = "MISSING_READING"
	CodeChecklistIncomplete Code = "CHECKLIST_INCOMPLETE"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeEmptyPIN            Code = "EMPTY_PIN"
	CodeDuplicate           Code = "DUPLICATE"
)

// Auth codes.
const (
	CodeInvalidPIN      Code = "INVALID_PIN"
	CodeTradeMismatch   Code = "TRADE_MISMATCH"
	CodeAlreadySigned   Code = "ALREADY_SIGNED"
	CodeTooManyAttempts Code = "TOO_MANY_ATTEMPTS"
)

// State codes.
const (
	CodeStageLocked        Code = "STAGE_LOCKED"
	CodePreconditionNotMet Code = "PRECONDITION_NOT_MET"
	CodeUnassignedTrade    Code = "UNASSIGNED_TRADE"
	CodeUnsignedSlots      Code = "UNSIGNED_SLOTS"
	CodeNoSupervisor       Code = "NO_SUPERVISOR"
	CodeNotSupervisorTrade Code = "NOT_SUPERVISOR_TRADE"
	CodeUncertainState     Code = "UNCERTAIN_STATE"
)

// Not-found codes.
const (
	CodePersonnelNotFound  Code = "PERSONNEL_NOT_FOUND"
	CodeNoAircraftSelected Code = "NO_AIRCRAFT_SELECTED"
	CodeRecordNotFound     Code = "RECORD_NOT_FOUND"
)

var kindByCode = map[Code]Kind{
	CodeMissingReading:      KindValidation,
	CodeChecklistIncomplete: KindValidation,
	CodeInvalidInput:        KindValidation,
	CodeEmptyPIN:            KindValidation,
	CodeDuplicate:           KindValidation,
	CodeInvalidPIN:          KindAuth,
	CodeTradeMismatch:       KindAuth,
	CodeAlreadySigned:       KindAuth,
	CodeTooManyAttempts:     KindAuth,
	CodeStageLocked:         KindState,
	CodePreconditionNotMet:  KindState,
	CodeUnassignedTrade:     KindState,
	CodeUnsignedSlots:       KindState,
	CodeNoSupervisor:        KindState,
	CodeNotSupervisorTrade:  KindState,
	CodeUncertainState:      KindUncertain,
	CodePersonnelNotFound:   KindNotFound,
	CodeNoAircraftSelected:  KindNotFound,
	CodeRecordNotFound:      KindNotFound,
}

// KindOf returns the kind a code belongs to.
func KindOf(code Code) Kind {
	if kind, ok := kindByCode[code]; ok {
		return kind
	}

	return KindValidation
}

// Error is a recoverable, per-action workflow error.
type Error struct {
	Op      string   // Operation name
	Kind    Kind     // Reaction class
	Code    Code     // Machine readable code
	Message string   // Human-readable message
	Missing []string // Slots, trades or fields that caused the failure
	Err     error    // Underlying error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if msg == "" {
		msg = string(e.Code)
	}

	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code so that errors.Is(err, opserr.New(code, "")) works.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}

	return false
}

// New creates an error for code with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Kind:    KindOf(code),
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithMissing creates an error listing every missing item in both the message and Missing.
func WithMissing(code Code, prefix string, missing []string) *Error {
	return &Error{
		Kind:    KindOf(code),
		Code:    code,
		Message: prefix + ": " + strings.Join(missing, ", "),
		Missing: missing,
	}
}

// Wrap attaches an operation name to err. Non-workflow errors are returned wrapped with %w.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		clone := *e
		if clone.Op == "" {
			clone.Op = op
		}

		return &clone
	}

	return fmt.Errorf("%s: %w", op, err)
}

// Uncertain reports that a write of a terminal signature may or may not have landed.
func Uncertain(op string, err error) *Error {
	return &Error{
		Op:      op,
		Kind:    KindUncertain,
		Code:    CodeUncertainState,
		Message: "record state is uncertain, re-fetch before retrying",
		Err:     err,
	}
}

// CodeOf returns the code carried by err, or "" when err is not a workflow error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ""
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsKind reports whether err is a workflow error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}

	return false
}
