package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ForwarderConfig contains configuration for the upstream forwarder.
type ForwarderConfig struct {
	// Name is the provider name, used in logs and errors.
	Name string

	// BaseURL is the provider base URL, e.g. "https://api.openai.com".
	BaseURL string

	// Timeout is the per-request timeout. Streaming responses are exempt;
	// they are bounded by the client connection instead.
	// Default: 120 seconds
	Timeout time.Duration

	// MaxIdleConns is the connection pool size.
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost limits idle connections per provider host.
	// Default: 10
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept.
	// Default: 90 seconds
	IdleConnTimeout time.Duration
}

// DefaultForwarderConfig returns a forwarder configuration with defaults
// applied.
func DefaultForwarderConfig() *ForwarderConfig {
	return &ForwarderConfig{
		Timeout:             120 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// hopByHopHeaders are stripped when replaying a request upstream, per the
// HTTP/1.1 connection-header rules.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forwarder replays client requests against a provider base URL without
// modifying them. The client's auth header passes through untouched; the
// gateway holds no provider credentials of its own.
type Forwarder struct {
	config  *ForwarderConfig
	baseURL *url.URL
	client  *http.Client
}

// NewForwarder creates a forwarder for one provider endpoint.
func NewForwarder(config *ForwarderConfig) (*Forwarder, error) {
	if config == nil || config.BaseURL == "" {
		return nil, errors.New("forwarder base URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost <= 0 {
		config.MaxIdleConnsPerHost = 10
	}
	if config.IdleConnTimeout <= 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, &ForwardError{Provider: config.Name, Message: "invalid base URL", Cause: err}
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Forwarder{
		config:  config,
		baseURL: base,
		client: &http.Client{
			Transport: transport,
			// No client-level Timeout: callers bound unary calls with a
			// deadline context so streaming bodies can outlive the
			// header exchange.
		},
	}, nil
}

// Name returns the provider name.
func (f *Forwarder) Name() string {
	return f.config.Name
}

// Forward replays the request against the provider. The caller owns the
// returned response body. Timeouts are applied through the context so
// streaming bodies stay open as long as the client reads.
func (f *Forwarder) Forward(ctx context.Context, method, path string, headers http.Header, body io.Reader) (*http.Response, error) {
	target := *f.baseURL
	target.Path = singleJoin(f.baseURL.Path, path)

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, &ForwardError{Provider: f.config.Name, Message: "failed to build request", Cause: err}
	}

	for name, values := range headers {
		if isHopByHop(name) {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Host = target.Host

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{Provider: f.config.Name, Timeout: f.config.Timeout}
		}
		return nil, &ForwardError{Provider: f.config.Name, Message: "request failed", Cause: err}
	}
	return resp, nil
}

// Timeout returns the configured per-request timeout.
func (f *Forwarder) Timeout() time.Duration {
	return f.config.Timeout
}

// Close releases idle connections.
func (f *Forwarder) Close() {
	f.client.CloseIdleConnections()
}

func isHopByHop(name string) bool {
	for _, h := range hopByHopHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

func singleJoin(a, b string) string {
	switch {
	case a == "":
		return b
	case strings.HasSuffix(a, "/") && strings.HasPrefix(b, "/"):
		return a + b[1:]
	case !strings.HasSuffix(a, "/") && !strings.HasPrefix(b, "/"):
		return a + "/" + b
	default:
		return a + b
	}
}
