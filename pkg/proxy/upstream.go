package proxy

import (
	"bytes"
	"context"
	"net/http"
	"time"
)

// upstreamClient issues the single outbound call to the configured
// chat-completions endpoint. Headers are built from scratch; inbound request
// headers are never forwarded upstream.
type upstreamClient struct {
	url     string
	timeout time.Duration
}

func newUpstreamClient(url string, timeout time.Duration) *upstreamClient {
	return &upstreamClient{url: url, timeout: timeout}
}

// send POSTs the already-filtered body with the caller's bearer token. The
// response body is returned unread so streaming callers can relay it as it
// arrives; the caller owns closing it. Transport failures come back wrapped
// as a networkError, distinct from any status the upstream reports.
func (c *upstreamClient) send(ctx context.Context, body []byte, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	cli := &http.Client{Timeout: c.timeout}
	resp, err := cli.Do(req)
	if err != nil {
		return nil, &networkError{err: err}
	}
	return resp, nil
}
