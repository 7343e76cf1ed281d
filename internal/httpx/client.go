package httpx

import (
	"net"
	"net/http"
	"time"
)

// DefaultTimeout defines the default request timeout used by helper clients.
const DefaultTimeout = 30 * time.Second

// NewClient returns an HTTP client for this tool's sequential, single-host
// traffic: every request goes to one API endpoint and calls never overlap,
// so a handful of keep-alive connections is all the pool needs.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
