package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http/httpguts"

	"github.com/torosent/webreplay/internal/tracing"
)

const defaultIdlePerHost = 32

// ClientOptions configure the shared transport.
type ClientOptions struct {
	Timeout        time.Duration // per-request timeout, 0 disables it
	MaxIdlePerHost int           // idle connections kept per host, usually the concurrency level
}

// NewClient builds the client shared by all concurrent requests of a run.
// Redirects are followed, compression is never negotiated, proxies come from
// the environment and cookies are left to the replay headers.
func NewClient(opts ClientOptions) *http.Client {
	timeout := opts.Timeout
	if timeout < 0 {
		timeout = 0
	}
	idle := opts.MaxIdlePerHost
	if idle <= 0 {
		idle = defaultIdlePerHost
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		DisableCompression:    true,
		MaxIdleConns:          idle * 4,
		MaxIdleConnsPerHost:   idle,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// RequestBuilder turns replay targets into GET requests against a base URI.
type RequestBuilder struct {
	base      *url.URL
	headers   http.Header
	host      string
	propagate bool
}

// NewRequestBuilder validates the base URI and default headers. Invalid header
// entries are reported to logger and dropped rather than failing the run.
func NewRequestBuilder(baseURI string, headers map[string]string, logger logrus.FieldLogger) (*RequestBuilder, error) {
	trimmed := strings.TrimSpace(baseURI)
	if trimmed == "" {
		return nil, errors.New("base URI is required")
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, errors.Wrapf(err, "parse base URI %q", trimmed)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("base URI %q must use http or https", trimmed)
	}
	if base.Host == "" {
		return nil, errors.Errorf("base URI %q has no host", trimmed)
	}

	b := &RequestBuilder{
		base:    base,
		headers: http.Header{},
	}

	for key, value := range headers {
		name := strings.TrimSpace(key)
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			if logger != nil {
				logger.WithFields(logrus.Fields{"header": key, "value": value}).Warn("failed to add header")
			}
			continue
		}
		canonical := http.CanonicalHeaderKey(name)
		if canonical == "Host" {
			b.host = value
			continue
		}
		b.headers.Set(canonical, value)
	}

	return b, nil
}

// WithTracePropagation makes Build inject W3C trace context headers.
func (b *RequestBuilder) WithTracePropagation(enabled bool) *RequestBuilder {
	b.propagate = enabled
	return b
}

// BaseURI returns the base URI requests are resolved against.
func (b *RequestBuilder) BaseURI() string {
	if b == nil || b.base == nil {
		return ""
	}
	return b.base.String()
}

// Header returns a copy of the default headers.
func (b *RequestBuilder) Header() http.Header {
	return b.headers.Clone()
}

// Resolve returns the absolute URL for a target. Absolute targets are kept as is.
func (b *RequestBuilder) Resolve(target string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return nil, errors.Wrapf(err, "parse target %q", target)
	}
	return b.base.ResolveReference(ref), nil
}

// Build creates a GET request for target carrying the default headers.
func (b *RequestBuilder) Build(ctx context.Context, target string) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	u, err := b.Resolve(target)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header = b.headers.Clone()
	if b.host != "" {
		req.Host = b.host
	}
	if b.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}
	return req, nil
}
