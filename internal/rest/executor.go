package rest

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultUserAgent identifies this binding on every outbound call.
const DefaultUserAgent = "ParleyBot (https://pkg.parley.chat/parley, v0.1.0)"

// htmlRetryDelay is the fixed pause before the single retry issued when the
// upstream edge answers with markup instead of JSON.
const htmlRetryDelay = 50 * time.Millisecond

// Config carries the executor's per-session call parameters.
type Config struct {
	// Token is attached as the authorization header to calls whose URL
	// host matches APIHost.
	Token   string
	APIHost string

	// UserAgent falls back to DefaultUserAgent when empty.
	UserAgent string

	// RetryDelay overrides the markup-retry pause; zero keeps the default.
	RetryDelay time.Duration
}

// Executor dispatches prepared requests, consulting the rate-limit
// registry before every call and feeding violation responses back into it.
// Concurrent Execute calls only contend on the registry's bucket table,
// never on the network.
type Executor struct {
	logger     *zap.SugaredLogger
	transport  Transport
	registry   *Registry
	token      string
	apiHost    string
	userAgent  string
	retryDelay time.Duration
}

func NewExecutor(logger *zap.Logger, transport Transport, registry *Registry, cfg Config) *Executor {
	e := &Executor{
		logger:     logger.Sugar(),
		transport:  transport,
		registry:   registry,
		token:      cfg.Token,
		apiHost:    cfg.APIHost,
		userAgent:  cfg.UserAgent,
		retryDelay: cfg.RetryDelay,
	}
	if e.userAgent == "" {
		e.userAgent = DefaultUserAgent
	}
	if e.retryDelay == 0 {
		e.retryDelay = htmlRetryDelay
	}
	registry.SetRedrive(e.redrive)
	return e
}

// Execute performs the request unless one of its candidate buckets is
// cooling down. A synchronous request facing a cool-down fails fast with a
// RateLimitError; an async one is queued and Execute returns ErrQueued,
// with the result delivered through the request callback after redrive.
func (e *Executor) Execute(req *Request) (*Response, error) {
	queued, err := e.registry.Reserve(req)
	if err != nil {
		var rle *RateLimitError
		if errors.As(err, &rle) {
			rateLimitsTotal.Inc()
		}
		return nil, err
	}
	if queued {
		return nil, ErrQueued
	}
	return e.perform(req)
}

func (e *Executor) perform(req *Request) (*Response, error) {
	e.addHeaders(req)

	resp, err := e.transport.Do(req.Context(), req)
	if err != nil {
		requestsTotal.WithLabelValues(req.Method, "error").Inc()
		return nil, &TransportError{Err: err}
	}

	// The upstream edge occasionally answers with an HTML error page;
	// retry exactly once after a brief pause and take the second result
	// as-is.
	if len(resp.Body) > 0 && resp.Body[0] == '<' {
		e.logger.Debugf("Request %s %s returned markup, retrying once.", req.Method, req.URL)
		time.Sleep(e.retryDelay)
		resp, err = e.transport.Do(req.Context(), req)
		if err != nil {
			requestsTotal.WithLabelValues(req.Method, "error").Inc()
			return nil, &TransportError{Err: err}
		}
	}

	requestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.Code)).Inc()

	if resp.RateLimited() {
		return e.handleRateLimit(req, resp)
	}
	return resp, nil
}

// handleRateLimit records the violation under the authoritative bucket id
// from the response body, remapped through the request's transform. The
// candidate list plays no part in where the violation is attributed.
func (e *Executor) handleRateLimit(req *Request, resp *Response) (*Response, error) {
	rateLimitsTotal.Inc()

	var body rateLimitBody
	if err := resp.Object(&body); err != nil || body.Bucket == "" {
		e.logger.Errorf("Couldn't extract bucket from rate limit response for %s %s.", req.Method, req.URL)
		return resp, nil
	}

	bucket := body.Bucket
	if req.BucketFunc != nil {
		bucket = req.BucketFunc(bucket)
	}
	retryAfter := time.Duration(body.RetryAfter) * time.Millisecond

	if req.Async {
		e.registry.Limit(bucket, retryAfter, req)
		return nil, ErrQueued
	}
	e.registry.Limit(bucket, retryAfter, nil)
	return nil, &RateLimitError{Bucket: bucket}
}

// redrive re-dispatches a request drained from an expired bucket queue. A
// request cancelled while queued completes with its context error; a
// request whose bucket was limited again in the meantime is simply
// re-queued by Execute.
func (e *Executor) redrive(req *Request) {
	if err := req.Context().Err(); err != nil {
		e.logger.Debugf("Dropping cancelled queued request %s.", req.ID())
		if req.Callback != nil {
			req.Callback(nil, err)
		}
		return
	}

	resp, err := e.Execute(req)
	if errors.Is(err, ErrQueued) {
		return
	}
	if req.Callback != nil {
		req.Callback(resp, err)
	} else if err != nil {
		e.logger.Errorf("Redriven request %s failed with no callback attached: %s.", req.ID(), err)
	}
}

func (e *Executor) addHeaders(req *Request) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	// The token goes to every call against the platform's hosts, including
	// CDN endpoints sharing the configured host suffix.
	if e.token != "" {
		if u, err := url.Parse(req.URL); err == nil && strings.Contains(u.Host, e.apiHost) {
			req.Header.Set("Authorization", e.token)
		}
	}
	if req.Method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")
}
