package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/publicsuffix"

	"github.com/usestring/harreplay/pkg/har"
)

// LiveResponse is the response observed when replaying a request.
type LiveResponse struct {
	Status          int           `json:"status"`
	StatusText      string        `json:"statusText"`
	Proto           string        `json:"httpVersion"`
	Header          http.Header   `json:"headers"`
	ContentType     string        `json:"contentType"`
	ContentEncoding string        `json:"contentEncoding,omitempty"`
	Body            []byte        `json:"-"`
	Truncated       bool          `json:"truncated,omitempty"`
	URL             string        `json:"url"`
	Elapsed         time.Duration `json:"-"`
}

// Text returns the decoded body as a string.
func (r *LiveResponse) Text() string {
	return string(r.Body)
}

// JSON parses the body. ok is false when the body is not valid JSON.
func (r *LiveResponse) JSON() (v any, ok bool) {
	if len(r.Body) == 0 {
		return nil, false
	}
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil, false
	}
	return v, true
}

// Sender turns captured requests into outbound HTTP calls.
type Sender struct {
	client  *http.Client
	opts    Options
	maxBody int64
}

// New creates a Sender. Without WithHTTPClient it builds its own pooled
// transport honoring the proxy and TLS options.
func New(opts ...Option) (*Sender, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	client := o.HTTPClient
	if client == nil {
		var err error
		client, err = newClient(o)
		if err != nil {
			return nil, err
		}
	}

	return &Sender{client: client, opts: o, maxBody: o.MaxBodyBytes}, nil
}

// Options returns the options the sender was built with.
func (s *Sender) Options() Options {
	return s.opts
}

// Client returns the underlying HTTP client.
func (s *Sender) Client() *http.Client {
	return s.client
}

func newClient(o Options) (*http.Client, error) {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// Captured Accept-Encoding headers are replayed as is; bodies are
		// decoded in decodeContent.
		DisableCompression: true,
	}
	if o.Proxy != nil {
		tr.Proxy = http.ProxyURL(o.Proxy.URL())
	}
	if o.InsecureSkipVerify {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("configuring http2: %w", err)
	}

	client := &http.Client{Transport: tr, Timeout: o.Timeout}
	if !o.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	if o.MaintainSession {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		client.Jar = jar
	}
	return client, nil
}

// skipHeaders are recomputed by the transport or are hop-by-hop.
var skipHeaders = map[string]bool{
	"content-length":      true,
	"host":                true,
	"connection":          true,
	"proxy-connection":    true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

// OutboundHeaders returns the headers that will be sent for req. Pseudo
// headers (":authority" and friends) and transport-computed headers are
// dropped. Duplicate names are preserved in order.
func OutboundHeaders(req har.Request) http.Header {
	h := make(http.Header, len(req.Headers))
	for _, nv := range req.Headers {
		if strings.HasPrefix(nv.Name, ":") || skipHeaders[strings.ToLower(nv.Name)] {
			continue
		}
		h.Add(nv.Name, nv.Value)
	}
	if h.Get("Cookie") == "" && len(req.Cookies) > 0 {
		pairs := make([]string, 0, len(req.Cookies))
		for _, c := range req.Cookies {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
		h.Set("Cookie", strings.Join(pairs, "; "))
	}
	return h
}

// OutboundURL merges the captured query parameters into the request URL.
// Later duplicates overwrite earlier ones. Segments of the raw query that
// no parameter changes are kept byte for byte.
func OutboundURL(req har.Request) (*url.URL, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("not an absolute URL")
	}
	if len(req.QueryString) == 0 {
		return u, nil
	}

	want := make(map[string]string, len(req.QueryString))
	var order []string
	for _, p := range req.QueryString {
		if _, ok := want[p.Name]; !ok {
			order = append(order, p.Name)
		}
		want[p.Name] = p.Value
	}

	q := u.Query()
	changed := make(map[string]bool)
	for name, value := range want {
		if vs := q[name]; len(vs) != 1 || vs[0] != value {
			changed[name] = true
		}
	}
	if len(changed) == 0 {
		return u, nil
	}

	var segments []string
	written := make(map[string]bool, len(changed))
	for _, seg := range strings.Split(u.RawQuery, "&") {
		if seg == "" {
			continue
		}
		rawName, _, _ := strings.Cut(seg, "=")
		name, err := url.QueryUnescape(rawName)
		if err != nil || !changed[name] {
			segments = append(segments, seg)
			continue
		}
		if !written[name] {
			segments = append(segments, encodePair(name, want[name]))
			written[name] = true
		}
	}
	for _, name := range order {
		if changed[name] && !written[name] {
			segments = append(segments, encodePair(name, want[name]))
		}
	}
	u.RawQuery = strings.Join(segments, "&")
	return u, nil
}

func encodePair(name, value string) string {
	return url.QueryEscape(name) + "=" + url.QueryEscape(value)
}

// Build converts a captured request into an *http.Request.
func Build(ctx context.Context, req har.Request) (*http.Request, Body, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	u, err := OutboundURL(req)
	if err != nil {
		return nil, Body{}, invalidRequest(method, req.URL, err)
	}

	body := DecodeBody(req.PostData)
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body.Reader())
	if err != nil {
		return nil, Body{}, invalidRequest(method, req.URL, err)
	}
	httpReq.Header = OutboundHeaders(req)
	if body.Kind != BodyNone && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", body.ContentType())
	}
	return httpReq, body, nil
}

// Send issues req and returns the live response. HTTP error statuses are
// returned as ordinary responses; only network and protocol failures yield
// an *Error.
func (s *Sender) Send(ctx context.Context, req har.Request) (*LiveResponse, error) {
	start := time.Now()

	httpReq, body, err := Build(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		terr := classify(httpReq.Method, req.URL, err)
		slog.Debug("replay request failed",
			slog.String("method", httpReq.Method),
			slog.String("url", req.URL),
			slog.String("code", string(terr.Code)),
			slog.String("error", terr.Message),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, terr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		terr := classify(httpReq.Method, req.URL, err)
		terr.Status = resp.StatusCode
		return nil, terr
	}
	truncated := int64(len(raw)) > s.maxBody
	if truncated {
		raw = raw[:s.maxBody]
	}

	encoding := resp.Header.Get("Content-Encoding")
	decoded, ok := raw, true
	if !truncated {
		decoded, ok = decodeContent(raw, encoding, s.maxBody)
	}
	if !ok {
		slog.Debug("could not decode response body",
			slog.String("url", req.URL),
			slog.String("encoding", encoding),
		)
	}

	live := &LiveResponse{
		Status:          resp.StatusCode,
		StatusText:      statusText(resp),
		Proto:           resp.Proto,
		Header:          resp.Header,
		ContentType:     resp.Header.Get("Content-Type"),
		ContentEncoding: encoding,
		Body:            decoded,
		Truncated:       truncated,
		URL:             resp.Request.URL.String(),
		Elapsed:         time.Since(start),
	}

	slog.Debug("replay request completed",
		slog.String("method", httpReq.Method),
		slog.String("url", req.URL),
		slog.String("body_kind", body.Kind.String()),
		slog.Int("status", live.Status),
		slog.Int("bytes", len(live.Body)),
		slog.Int64("duration_ms", live.Elapsed.Milliseconds()),
	)
	return live, nil
}

// statusText strips the numeric code from resp.Status, falling back to the
// canonical text.
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
