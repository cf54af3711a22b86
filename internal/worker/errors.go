package worker

import (
	"errors"
	"fmt"

	"weave/api/internal/canvas"
	"weave/api/internal/identity"
	"weave/api/internal/store"
)

// DomainError is the typed result upstream transports map to their own
// error representation. Status is an HTTP-equivalent classification.
type DomainError struct {
	Status  int
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Classify maps an operation failure to its DomainError. Not-found carries
// its specific detail string; validation failures carry theirs; anything
// else surfaces as a generic transaction failure so internal state never
// leaks to callers.
func Classify(err error) *DomainError {
	if err == nil {
		return nil
	}

	var nf *canvas.NotFoundError
	if errors.As(err, &nf) {
		return &DomainError{Status: 404, Code: "not_found", Message: nf.Detail}
	}
	if errors.Is(err, store.ErrThreadNotFound) {
		return &DomainError{Status: 404, Code: "not_found", Message: store.ErrThreadNotFound.Error()}
	}

	var verr *identity.ValidationError
	if errors.As(err, &verr) {
		return &DomainError{Status: 400, Code: "validation_error", Message: verr.Detail}
	}
	var uv *canvas.UnsupportedVersionError
	if errors.As(err, &uv) {
		return &DomainError{Status: 400, Code: "validation_error", Message: uv.Error()}
	}
	var bad *BadOperationError
	if errors.As(err, &bad) {
		return &DomainError{Status: 400, Code: "validation_error", Message: bad.Detail}
	}

	if errors.Is(err, store.ErrLockTimeout) {
		return &DomainError{Status: 503, Code: "timeout", Message: "canvas is busy, try again"}
	}

	return &DomainError{Status: 500, Code: "transaction_error", Message: "operation failed"}
}

// BadOperationError reports an operation payload rejected before it reached
// the mutation engine.
type BadOperationError struct {
	Detail string
}

func (e *BadOperationError) Error() string { return e.Detail }
