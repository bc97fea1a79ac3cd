package transport

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds one outbound call.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBodyBytes caps how much of a live response body is kept.
const DefaultMaxBodyBytes int64 = 32 << 20

// Proxy routes outbound calls through an HTTP(S) proxy.
type Proxy struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
}

// URL returns the proxy as a URL. Protocol defaults to http.
func (p Proxy) URL() *url.URL {
	scheme := strings.TrimSuffix(p.Protocol, ":")
	if scheme == "" {
		scheme = "http"
	}
	host := p.Host
	if p.Port > 0 {
		host = fmt.Sprintf("%s:%d", p.Host, p.Port)
	}
	return &url.URL{Scheme: scheme, Host: host}
}

// ParseProxy parses "scheme://host:port" into a Proxy.
func ParseProxy(raw string) (Proxy, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Proxy{}, fmt.Errorf("parsing proxy URL: %w", err)
	}
	if u.Host == "" {
		return Proxy{}, fmt.Errorf("parsing proxy URL %q: missing host", raw)
	}
	p := Proxy{Host: u.Hostname(), Protocol: u.Scheme}
	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return Proxy{}, fmt.Errorf("parsing proxy port %q: %w", port, err)
		}
		p.Port = n
	}
	return p, nil
}

// Options configures a Sender. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	Timeout            time.Duration
	Proxy              *Proxy
	InsecureSkipVerify bool
	MaintainSession    bool
	FollowRedirects    bool
	MaxBodyBytes       int64
	// HTTPClient, when set, is used as is and the transport related
	// options above are ignored.
	HTTPClient *http.Client
}

// DefaultOptions returns verify-TLS, no proxy, no redirects, 30s timeout.
func DefaultOptions() Options {
	return Options{
		Timeout:      DefaultTimeout,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Option is a functional option for configuring the Sender.
type Option func(*Options)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithProxy routes calls through p.
func WithProxy(p Proxy) Option {
	return func(o *Options) {
		o.Proxy = &p
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(skip bool) Option {
	return func(o *Options) {
		o.InsecureSkipVerify = skip
	}
}

// WithSession shares a cookie jar across calls.
func WithSession(enabled bool) Option {
	return func(o *Options) {
		o.MaintainSession = enabled
	}
}

// WithFollowRedirects makes the sender follow 3xx responses.
func WithFollowRedirects(follow bool) Option {
	return func(o *Options) {
		o.FollowRedirects = follow
	}
}

// WithMaxBodyBytes caps the live response body size.
func WithMaxBodyBytes(n int64) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxBodyBytes = n
		}
	}
}

// WithHTTPClient reuses an existing client and its connection pool.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = c
	}
}
