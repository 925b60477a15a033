package errors

const (
	HttpInternalError         = "internal_error"
	HttpInvalidJsonError      = "invalid_json"
	HttpUnrecognizedTypeError = "unrecognized_event_type"
	HttpDuplicateEventError   = "duplicate_event"
	HttpDigestFailedError     = "digest_failed"
	HttpInvalidQueryError     = "invalid_query"
)

// ErrorResponse is the error response body for API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
