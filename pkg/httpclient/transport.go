package httpclient

import (
	"net"
	"net/http"
	"time"
)

// Config holds transport tuning for outbound connections.
type Config struct {
	DialTimeout     time.Duration
	MaxConnsPerHost int
	IdleConnTimeout time.Duration
}

// DefaultConfig returns sensible defaults for a backend transport.
func DefaultConfig() Config {
	return Config{
		DialTimeout:     10 * time.Second,
		MaxConnsPerHost: 100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// NewTransport builds a pooled *http.Transport. It performs no retries.
func NewTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
