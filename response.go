package tokengate

import "net/http"

// Response is the envelope returned by every endpoint.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// Success builds a 200 envelope. A nil data value becomes an empty list.
func Success(message string, data any) Response {
	return Response{StatusCode: http.StatusOK, Message: message, Data: orEmpty(data)}
}

// Failure builds an error envelope with an empty data list.
func Failure(status int, message string) Response {
	return Response{StatusCode: status, Message: message, Data: []any{}}
}

// Unauthorized is the uniform denial for token and policy failures.
func Unauthorized() Response {
	return Failure(http.StatusUnauthorized, "Unauthorized")
}

// InternalError is the generic envelope for unexpected failures.
func InternalError() Response {
	return Failure(http.StatusInternalServerError, "Internal server error")
}

func orEmpty(data any) any {
	if data == nil {
		return []any{}
	}
	return data
}
