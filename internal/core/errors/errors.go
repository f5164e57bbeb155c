package errors

const (
	HttpInternalError        = "internal_error"
	HttpInvalidRequestError  = "invalid_request"
	HttpNotFoundError        = "not_found"
	HttpWriteContentionError = "write_contention"
	HttpUnsupportedTypeError = "unsupported_type"
)

// ErrorResponse is the error response body for projection API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
