package transform

import (
	"fmt"
	"io"
	"net/http"
)

// Response is the result of one transform attempt or of the terminal
// fallback. The body is buffered; pass-through streaming is handled by the
// HTTP layer when it writes the response out.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Diagnostics is the per-request side channel, attached by the
	// orchestrator before the response is returned.
	Diagnostics *Diagnostics
}

// NewResponse builds a response with an initialized header map.
func NewResponse(status int, body []byte) *Response {
	return &Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       body,
	}
}

// FromHTTP converts an outbound fetch result into a Response, reading and
// closing the body.
func FromHTTP(resp *http.Response) (*Response, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// ContentType returns the response content type, if any.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}
