// Package errs defines the core's error taxonomy as typed, wrappable
// errors rather than string matching, mirroring the fmt.Errorf %w-wrapping
// style used throughout the storage/queue packages.
package errs

import "fmt"

// Kind classifies a core error.
type Kind string

const (
	KindDataModelViolation   Kind = "data_model_violation"
	KindInputEmpty           Kind = "input_empty"
	KindConfigInvalid        Kind = "config_invalid"
	KindTransientSinkFailure Kind = "transient_sink_failure"
	KindCancelled            Kind = "cancelled"
)

// Error is the core's typed error. Use errors.As to recover the Kind and
// Context at the caller.
type Error struct {
	Kind    Kind
	Context string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, errs.New(errs.KindCancelled, "", nil)) style checks work.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func New(kind Kind, context string, err error) *Error {
	return &Error{Kind: kind, Context: context, Err: err}
}

// DataModelViolation wraps a hard data-model error: missing pin, non-finite
// score, branching graph, etc. Fatal to the batch.
func DataModelViolation(context string, err error) *Error {
	return New(KindDataModelViolation, context, err)
}

// ConfigInvalid wraps a startup configuration error. Fatal before any work
// begins.
func ConfigInvalid(context string, err error) *Error {
	return New(KindConfigInvalid, context, err)
}

// TransientSinkFailure wraps an output-repository write failure after
// retries have been exhausted.
func TransientSinkFailure(context string, err error) *Error {
	return New(KindTransientSinkFailure, context, err)
}

// Cancelled signals the caller-provided cancellation was observed.
func Cancelled(context string) *Error {
	return New(KindCancelled, context, nil)
}

// IsKind reports whether err (or any error it wraps) is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == k
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
