package types

type ErrorResponse struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error"`
}

// NewErrorResponse builds a consistent API error payload. Every
// response carries the explicit ok indicator, failures add a
// human-readable error string.
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{
		Ok:    false,
		Error: message,
	}
}
