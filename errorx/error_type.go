package errorx

// ErrorType follows the gRPC status codes, see https://grpc.github.io/grpc/core/md_doc_statuscodes.html.
type ErrorType string

const (
	// ErrorTypeUnspecified is never attached to an error, IsCliniaError treats it as no CliniaError at all.
	ErrorTypeUnspecified        = ErrorType("")
	ErrorTypeAborted            = ErrorType("ABORTED")
	ErrorTypeCancelled          = ErrorType("CANCELLED")
	ErrorTypeDeadlineExceeded   = ErrorType("DEADLINE_EXCEEDED")
	ErrorTypeFailedPrecondition = ErrorType("FAILED_PRECONDITION")
	ErrorTypeInternal           = ErrorType("INTERNAL")
	ErrorTypeInvalidArgument    = ErrorType("INVALID_ARGUMENT")
	ErrorTypeUnauthenticated    = ErrorType("UNAUTHENTICATED")
	ErrorTypeUnavailable        = ErrorType("UNAVAILABLE")
)

func (e ErrorType) String() string {
	return string(e)
}
