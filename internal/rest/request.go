package rest

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Request is one prepared outbound call. Buckets carries the caller's
// candidate rate-limit bucket ids for the pre-flight cool-down check; the
// authoritative bucket id is only ever learned from a violation response.
type Request struct {
	Method string
	URL    string
	Body   []byte
	Header http.Header

	// Buckets are candidate bucket ids; BucketFunc optionally remaps the
	// server-reported bucket id for endpoints sharing dynamically-computed
	// buckets.
	Buckets    []string
	BucketFunc func(string) string

	// Async requests are queued instead of rejected when their bucket is
	// cooling down; the eventual result arrives through Callback.
	Async    bool
	Callback func(*Response, error)

	id  uuid.UUID
	ctx context.Context
}

func NewRequest(method, url string, body []byte, buckets ...string) *Request {
	return &Request{
		Method:  method,
		URL:     url,
		Body:    body,
		Buckets: buckets,
		id:      uuid.New(),
		ctx:     context.Background(),
	}
}

// ID tags the request for log correlation while it sits on a bucket queue.
func (r *Request) ID() uuid.UUID { return r.id }

func (r *Request) Context() context.Context { return r.ctx }

// WithContext attaches a cancellation context honored while the request is
// queued awaiting a cool-down expiry.
func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// WithCallback marks the request asynchronous and routes its eventual
// result to fn.
func (r *Request) WithCallback(fn func(*Response, error)) *Request {
	r.Async = true
	r.Callback = fn
	return r
}

// WithBucketFunc sets the remap applied to the server-reported bucket id
// of a violation response before it is recorded.
func (r *Request) WithBucketFunc(fn func(string) string) *Request {
	r.BucketFunc = fn
	return r
}
