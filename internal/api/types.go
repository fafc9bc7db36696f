package api

import (
	"encoding/json"
	"net/http"
)

// Request is a single logical call. It is consumed by one Do invocation.
type Request struct {
	Path   string
	Method string
	Body   any
	Header http.Header
}

// Response is the uniform result of a call. Exactly one of Data and Error is
// meaningful: Status below 300 means Data holds the payload.
type Response[T any] struct {
	Data   T
	Error  string
	Status int
}

// OK reports whether the response carries data.
func (r Response[T]) OK() bool {
	return r.Error == "" && r.Status < 300
}

// Raw is the undecoded form returned by the Client methods.
type Raw = Response[json.RawMessage]

func failure[T any](status int, message string) Response[T] {
	if message == "" {
		message = "Request failed"
	}
	return Response[T]{Error: message, Status: status}
}

// ErrorResponse is the error body produced by the backend.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Validator is implemented by payloads that check themselves after decoding.
type Validator interface {
	Validate() error
}

// Paginated is the list envelope used by the backend.
type Paginated[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
