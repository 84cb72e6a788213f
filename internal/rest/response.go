package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
)

// ErrQueued reports that an async request was accepted onto a cooling
// bucket's queue; its result arrives through the request callback once the
// cool-down expires.
var ErrQueued = errors.New("request queued until rate limit expires")

// RateLimitError names the bucket responsible for rejecting a synchronous
// request, either at pre-flight or after a violation response.
type RateLimitError struct {
	Bucket string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited on bucket %s", e.Bucket)
}

// TransportError wraps a fault where no response was obtained. It is never
// conflated with a rate-limit condition.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %s", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Response is a classified HTTP response.
type Response struct {
	Code int
	Body []byte
}

func (r *Response) OK() bool {
	return r.Code >= 200 && r.Code < 300
}

func (r *Response) RateLimited() bool {
	return r.Code == http.StatusTooManyRequests
}

// Object unmarshals the response body into the given struct.
func (r *Response) Object(into interface{}) error {
	if err := sonic.Unmarshal(r.Body, into); err != nil {
		return fmt.Errorf("couldn't decode response body: %w", err)
	}
	return nil
}

// rateLimitBody is the violation response's body: the authoritative bucket
// id plus the cool-down duration in milliseconds.
type rateLimitBody struct {
	Bucket     string `json:"bucket"`
	RetryAfter int64  `json:"retryAfter"`
}
