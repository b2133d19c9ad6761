package httpclient

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestBuildRequestWithHeaders(t *testing.T) {
	builder, err := NewRequestBuilder("http://example.com/api/", map[string]string{
		"content-type": "application/json",
		"X-Trace-Id":   "12345",
	}, nil)
	if err != nil {
		t.Fatalf("expected builder, got error: %v", err)
	}

	req, err := builder.Build(context.Background(), "users?page=2")
	if err != nil {
		t.Fatalf("expected request, got error: %v", err)
	}

	if req.Method != http.MethodGet {
		t.Fatalf("expected method GET, got %s", req.Method)
	}
	if got, want := req.URL.String(), "http://example.com/api/users?page=2"; got != want {
		t.Fatalf("expected URL %s, got %s", want, got)
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected canonical Content-Type header, got %q", req.Header.Get("Content-Type"))
	}
	if req.Header.Get("X-Trace-Id") != "12345" {
		t.Fatalf("expected X-Trace-Id header, got %q", req.Header.Get("X-Trace-Id"))
	}
	if req.Body != nil && req.Body != http.NoBody {
		t.Fatalf("expected no request body")
	}
}

func TestRequestBuilderResolve(t *testing.T) {
	builder, err := NewRequestBuilder("https://example.com/app/", nil, nil)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}

	tests := []struct {
		target string
		want   string
	}{
		{"", "https://example.com/app/"},
		{"index.html", "https://example.com/app/index.html"},
		{"/root.html", "https://example.com/root.html"},
		{"../up", "https://example.com/up"},
		{"https://other.example.com/x", "https://other.example.com/x"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			u, err := builder.Resolve(tt.target)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.target, err)
			}
			if u.String() != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.target, u, tt.want)
			}
		})
	}
}

func TestNewRequestBuilderRejectsBadBaseURI(t *testing.T) {
	for _, base := range []string{"", "   ", "ftp://example.com", "example.com/path", "http://"} {
		t.Run(base, func(t *testing.T) {
			if _, err := NewRequestBuilder(base, nil, nil); err == nil {
				t.Fatalf("expected error for base URI %q", base)
			}
		})
	}
}

func TestRequestBuilder_InvalidHeadersAreLoggedAndSkipped(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	builder, err := NewRequestBuilder("http://example.com", map[string]string{
		"Bad Header": "x",
		"X-Newline":  "a\nb",
		"X-Good":     "ok",
		"X-Empty":    "",
		"X-Long":     strings.Repeat("v", 4096),
	}, logger)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}

	h := builder.Header()
	if h.Get("X-Good") != "ok" {
		t.Errorf("X-Good = %q, want ok", h.Get("X-Good"))
	}
	if _, ok := h["X-Empty"]; !ok {
		t.Error("empty header value should be kept")
	}
	if len(h.Get("X-Long")) != 4096 {
		t.Errorf("X-Long length = %d, want 4096", len(h.Get("X-Long")))
	}
	if _, ok := h["X-Newline"]; ok {
		t.Error("header with newline should be skipped")
	}
	if strings.Count(buf.String(), "failed to add header") != 2 {
		t.Errorf("expected two warnings, got log %q", buf.String())
	}
}

func TestRequestBuilderHostHeader(t *testing.T) {
	builder, err := NewRequestBuilder("http://127.0.0.1:8080", map[string]string{"host": "site.example.com"}, nil)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	req, err := builder.Build(context.Background(), "/")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if req.Host != "site.example.com" {
		t.Errorf("Host = %q, want site.example.com", req.Host)
	}
	if req.URL.Host != "127.0.0.1:8080" {
		t.Errorf("URL.Host = %q, want 127.0.0.1:8080", req.URL.Host)
	}
}

func TestBuildDoesNotShareHeaders(t *testing.T) {
	builder, err := NewRequestBuilder("http://example.com", map[string]string{"X-A": "1"}, nil)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	first, _ := builder.Build(context.Background(), "a")
	first.Header.Set("X-A", "changed")
	second, _ := builder.Build(context.Background(), "b")
	if second.Header.Get("X-A") != "1" {
		t.Fatalf("headers leaked between requests: %q", second.Header.Get("X-A"))
	}
}

func TestBuildInjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	builder, err := NewRequestBuilder("http://example.com", nil, nil)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}

	plain, _ := builder.Build(ctx, "x")
	if plain.Header.Get("Traceparent") != "" {
		t.Fatal("traceparent injected without propagation enabled")
	}

	traced, _ := builder.WithTracePropagation(true).Build(ctx, "x")
	if traced.Header.Get("Traceparent") == "" {
		t.Fatal("expected traceparent header")
	}
}

func TestClientTimeoutApplied(t *testing.T) {
	timeout := 50 * time.Millisecond
	client := NewClient(ClientOptions{Timeout: timeout, MaxIdlePerHost: 4})
	defer client.CloseIdleConnections()

	if client.Timeout != timeout {
		t.Fatalf("expected client timeout %s, got %s", timeout, client.Timeout)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(timeout * 3)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}

	elapsed := time.Since(start)
	if elapsed < timeout {
		t.Fatalf("request returned too quickly: %s < %s", elapsed, timeout)
	}
	if elapsed > timeout*5 {
		t.Fatalf("request took too long: %s", elapsed)
	}

	if !errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			t.Fatalf("expected timeout error, got %v", err)
		}
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.MaxIdleConnsPerHost != 4 {
		t.Fatalf("MaxIdleConnsPerHost = %d, want 4", transport.MaxIdleConnsPerHost)
	}
	if !transport.DisableCompression {
		t.Fatal("expected compression to be disabled")
	}
	if transport.Proxy == nil {
		t.Fatal("expected proxy support")
	}
}

func TestClientFollowsRedirectsWithoutCookies(t *testing.T) {
	var sawCookie bool
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err == nil {
			sawCookie = true
		}
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(ClientOptions{Timeout: time.Second})
	if client.Jar != nil {
		t.Fatal("client must not manage cookies")
	}
	resp, err := client.Get(server.URL + "/start")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204 after redirect", resp.StatusCode)
	}
	if sawCookie {
		t.Error("cookie from the redirect response was replayed")
	}
}
