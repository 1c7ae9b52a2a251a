// Package errs classifies the error kinds the indexer's workers can raise
// and wraps the underlying cause the way pkg/utils.Wrap does, adding a kind
// tag so callers can branch on failure class without string-matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind names one of the seven error classes the pipeline distinguishes.
type Kind string

const (
	InvalidSmartbridge     Kind = "invalid_smartbridge"
	FieldValidationFailure Kind = "field_validation_failure"
	ContractAssertion      Kind = "contract_assertion_failure"
	IntegrityBreach        Kind = "integrity_breach"
	PeerRPCFailure         Kind = "peer_rpc_failure"
	WebhookAuthFailure     Kind = "webhook_auth_failure"
	Fatal                  Kind = "fatal"
)

// Error pairs a Kind with the assertion or detail that triggered it and an
// optional underlying cause.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a classified error with no underlying cause.
func New(kind Kind, detail string) error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap adds context to err, classified under kind. It returns nil if err is
// nil, mirroring pkg/utils.Wrap.
func Wrap(kind Kind, err error, detail string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Detail: detail, Cause: err}
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
