package errorx

import "fmt"

// AbortedErrorf reports a bulk insert the server gave up on.
func AbortedErrorf(format string, args ...any) *CliniaError {
	return newf(ErrorTypeAborted, format, args...)
}

// CancelledErrorf reports an operation interrupted by its caller.
func CancelledErrorf(format string, args ...any) *CliniaError {
	return newf(ErrorTypeCancelled, format, args...)
}

func DeadlineExceededErrorf(format string, args ...any) *CliniaError {
	return newf(ErrorTypeDeadlineExceeded, format, args...)
}

// FailedPreconditionErrorf reports a call made in a state that does not allow it, i.e. writing to a closed session.
func FailedPreconditionErrorf(format string, args ...any) *CliniaError {
	return newf(ErrorTypeFailedPrecondition, format, args...)
}

func InternalErrorf(format string, args ...any) *CliniaError {
	return newf(ErrorTypeInternal, format, args...)
}

func InvalidArgumentErrorf(format string, args ...any) *CliniaError {
	return newf(ErrorTypeInvalidArgument, format, args...)
}

func UnauthenticatedErrorf(format string, args ...any) *CliniaError {
	return newf(ErrorTypeUnauthenticated, format, args...)
}

// UnavailableErrorf reports a server that could not be reached or answered with a failure.
func UnavailableErrorf(format string, args ...any) *CliniaError {
	return newf(ErrorTypeUnavailable, format, args...)
}

func IsAbortedError(e error) bool            { return isType(e, ErrorTypeAborted) }
func IsCancelledError(e error) bool          { return isType(e, ErrorTypeCancelled) }
func IsDeadlineExceededError(e error) bool   { return isType(e, ErrorTypeDeadlineExceeded) }
func IsFailedPreconditionError(e error) bool { return isType(e, ErrorTypeFailedPrecondition) }
func IsInternalError(e error) bool           { return isType(e, ErrorTypeInternal) }
func IsInvalidArgumentError(e error) bool    { return isType(e, ErrorTypeInvalidArgument) }
func IsUnauthenticatedError(e error) bool    { return isType(e, ErrorTypeUnauthenticated) }
func IsUnavailableError(e error) bool        { return isType(e, ErrorTypeUnavailable) }

func newf(t ErrorType, format string, args ...any) *CliniaError {
	return &CliniaError{
		Type:    t,
		Message: fmt.Sprintf(format, args...),
		Stack:   callers(2),
	}
}
