package common

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClient is a pooled HTTP client shared by all calls of one venue, with a
// request throttle so a tight error loop cannot hammer the venue API. It is
// created once at startup and released on shutdown.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient builds a client allowing rps sustained requests per second
// with the given burst.
func NewHTTPClient(rps float64, burst int) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Do waits for throttle capacity, then performs the request. The wait aborts
// with the request context.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// Close releases pooled connections.
func (c *HTTPClient) Close() {
	c.client.CloseIdleConnections()
}
