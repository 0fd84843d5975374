package errorx

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// CliniaError is an error with a gRPC-like type. Every error returned by a bulk insert session is one.
type CliniaError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`

	OriginalError error   `json:"-"`
	Stack         Callers `json:"-"`
}

var _ error = (*CliniaError)(nil)

func (e *CliniaError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap exposes the original error so errors.Is and errors.As reach the transport cause.
func (e *CliniaError) Unwrap() error {
	return e.OriginalError
}

// Is matches a CliniaError of the same type. A target with a message also needs the same message.
func (e *CliniaError) Is(target error) bool {
	t, ok := target.(*CliniaError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// WithCause attaches the original error and returns the same instance.
func (e *CliniaError) WithCause(err error) *CliniaError {
	e.OriginalError = err
	return e
}

// IsCliniaError returns the first CliniaError found in the chain of e.
// Errors wrapped with pkg/errors as well as with fmt.Errorf("%w") are resolved.
func IsCliniaError(e error) (*CliniaError, bool) {
	if e == nil {
		return nil, false
	}

	var cerr *CliniaError
	if !errors.As(e, &cerr) {
		var ok bool
		if cerr, ok = pkgerrors.Cause(e).(*CliniaError); !ok {
			return nil, false
		}
	}
	if cerr.Type == ErrorTypeUnspecified {
		return nil, false
	}
	return cerr, true
}

func isType(e error, t ErrorType) bool {
	cerr, ok := IsCliniaError(e)
	return ok && cerr.Type == t
}
