package rest

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Transport performs the actual wire call. An error return means no usable
// response was obtained; HTTP-level failures come back as a Response with
// the corresponding status code.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is the default net/http-backed transport. Responses are
// gzip-decoded here because the executor sets Accept-Encoding explicitly,
// which disables the standard library's automatic handling.
type HTTPTransport struct {
	Client *http.Client
}

func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{}}
}

func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	hr, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("couldn't build request: %w", err)
	}
	for k, vs := range req.Header {
		hr.Header[k] = vs
	}

	resp, err := t.Client.Do(hr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("couldn't open gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("couldn't read response body: %w", err)
	}
	return &Response{Code: resp.StatusCode, Body: body}, nil
}
