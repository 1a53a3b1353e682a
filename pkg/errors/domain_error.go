package custom_error

import (
	"errors"
	"fmt"
)

// Kind classifies workflow errors so handlers can map them to transport
// responses without string matching.
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindStageMismatch      Kind = "stage_mismatch"
	KindOutOfScope         Kind = "out_of_scope"
	KindCrossHospitalDeny  Kind = "cross_hospital_denied"
	KindAlreadyClosed      Kind = "already_closed"
	KindAssetConflict      Kind = "asset_conflict"
	KindConcurrentConflict Kind = "concurrent_conflict"
)

type DomainError struct {
	kind    Kind
	message string
}

func (e *DomainError) Error() string {
	return e.message
}

func (e *DomainError) Kind() Kind {
	return e.kind
}

// Is lets errors.Is match two domain errors by kind regardless of message.
func (e *DomainError) Is(target error) bool {
	other, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.kind == other.kind
}

func NewValidationError(format string, args ...any) *DomainError {
	return &DomainError{kind: KindValidation, message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(resource string, id any) *DomainError {
	return &DomainError{kind: KindNotFound, message: fmt.Sprintf("%s %v not found", resource, id)}
}

func NewStageMismatchError(actorStage, currentLevel string) *DomainError {
	return &DomainError{
		kind:    KindStageMismatch,
		message: fmt.Sprintf("actor stage %s does not match request stage %s", actorStage, currentLevel),
	}
}

func NewOutOfScopeError(message string) *DomainError {
	return &DomainError{kind: KindOutOfScope, message: message}
}

func NewCrossHospitalDeniedError(message string) *DomainError {
	return &DomainError{kind: KindCrossHospitalDeny, message: message}
}

func NewAlreadyClosedError(requestID string) *DomainError {
	return &DomainError{kind: KindAlreadyClosed, message: fmt.Sprintf("request %s is already closed", requestID)}
}

func NewAssetConflictError(format string, args ...any) *DomainError {
	return &DomainError{kind: KindAssetConflict, message: fmt.Sprintf(format, args...)}
}

func NewConcurrentConflictError(requestID string) *DomainError {
	return &DomainError{
		kind:    KindConcurrentConflict,
		message: fmt.Sprintf("request %s changed concurrently, retry the operation", requestID),
	}
}

// IsKind reports whether err, or any error it wraps, is a DomainError of
// the given kind.
func IsKind(err error, kind Kind) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.kind == kind
}
