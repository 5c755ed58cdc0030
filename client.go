// Package apollo is a client for the apollo.ai article-intelligence service:
// single-document summarization, batch clustering and continuous clustering.
package apollo

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public service endpoint.
	DefaultBaseURL = "https://api.apollo.ai"
	// DefaultTimeout bounds a single call, sized for large clustering payloads.
	DefaultTimeout = 5 * time.Minute
	// DefaultMaxCharacters is the abstract length used when none is given.
	DefaultMaxCharacters = 400
	// DefaultThreshold is the batch clustering similarity threshold.
	DefaultThreshold = 0.8
)

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the service. It holds only immutable configuration and is safe
// for concurrent use.
type Client struct {
	httpClient Doer
	baseURL    string
	apiKey     string
	debug      bool
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the transport used for requests.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.httpClient = d
	}
}

// WithTimeout sets the per-call timeout when the transport is an *http.Client.
// The client given to WithHTTPClient is copied, not modified. Other Doer
// implementations are left as they are and must bound calls themselves.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc, ok := c.httpClient.(*http.Client)
		if !ok {
			return
		}
		withTimeout := *hc
		withTimeout.Timeout = d
		c.httpClient = &withTimeout
	}
}

// WithDebug logs every failed call before it is returned.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithLogger sets the logger used in debug mode.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a client authenticating with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("apollo API key is required")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}
