package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

// recorded is what a test server saw of a single request.
type recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type recorder struct {
	mu   sync.Mutex
	reqs []recorded
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.reqs...)
}

// newTestClient starts a server answering every request with status and payload and
// returns a client pointed at it together with the requests it received.
func newTestClient(t *testing.T, status int, payload string, opts ...Option) (*Client, *recorder) {
	t.Helper()

	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBaseURL(srv.URL), WithHTTPClient(srv.Client())}, opts...)
	c, err := New("test-key", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, rec
}

// countingDoer counts calls and fails each one with err.
type countingDoer struct {
	calls atomic.Int32
	err   error
}

func (d *countingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return nil, d.err
}

// rewriteTransport redirects all requests to a fixed base URL (test server).
type rewriteTransport struct {
	base  string
	inner http.RoundTripper
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	parsed, _ := http.NewRequest("GET", rt.base, nil)
	req2.URL.Host = parsed.URL.Host
	req2.URL.Scheme = parsed.URL.Scheme
	return rt.inner.RoundTrip(req2)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("   ")
	assert.NotEqual(t, nil, err)

	c, err := New("key")
	assert.Equal(t, nil, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}

func TestDefaultBaseURL(t *testing.T) {
	seen := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Host
		seen <- r.URL.Path
		io.WriteString(w, `{"sentences":["a"],"type":"text","url":""}`)
	}))
	defer srv.Close()

	httpClient := srv.Client()
	httpClient.Transport = &rewriteTransport{base: srv.URL, inner: http.DefaultTransport}

	c, err := New("test-key", WithHTTPClient(httpClient))
	assert.Equal(t, nil, err)

	_, err = c.Autoabstract(context.Background(), "Headline", "Body text", AbstractOptions{})
	assert.Equal(t, nil, err)
	assert.Equal(t, "api.apollo.ai", <-seen)
	assert.Equal(t, "/autoabstract", <-seen)
}

func TestWithTimeoutKeepsCustomDoer(t *testing.T) {
	doer := &countingDoer{err: errors.New("offline")}
	c, err := New("test-key", WithHTTPClient(doer), WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Autoabstract(context.Background(), "Headline", "Body text", AbstractOptions{})

	var transportErr *TransportError
	assert.Equal(t, true, errors.As(err, &transportErr))
	assert.Equal(t, int32(1), doer.calls.Load())
}

func TestWithTimeoutCopiesHTTPClient(t *testing.T) {
	base := &http.Client{Transport: http.DefaultTransport}
	c, err := New("test-key", WithHTTPClient(base), WithTimeout(3*time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	hc, ok := c.httpClient.(*http.Client)
	if !ok {
		t.Fatalf("httpClient = %T, want *http.Client", c.httpClient)
	}
	assert.Equal(t, 3*time.Second, hc.Timeout)
	assert.Equal(t, http.DefaultTransport, hc.Transport)
	assert.Equal(t, time.Duration(0), base.Timeout)
}

func TestRequestHeaders(t *testing.T) {
	c, reqs := newTestClient(t, http.StatusOK, `{"sentences":[],"type":"text","url":""}`)

	_, err := c.Autoabstract(context.Background(), "Headline", "Body text", AbstractOptions{})
	assert.Equal(t, nil, err)
	got := reqs.all()
	assert.Equal(t, 1, len(got))
	req := got[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	doer := &countingDoer{err: cause}
	c, err := New("test-key", WithHTTPClient(doer))
	assert.Equal(t, nil, err)

	_, err = c.Clustering(context.Background(), []ClusteringArticle{
		{Identifier: "a1", Title: "Title", Content: "Content"},
	}, ClusteringOptions{})

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
	assert.Equal(t, opClustering, transportErr.Op)
	assert.Equal(t, true, errors.Is(err, cause))
	assert.Equal(t, int32(1), doer.calls.Load())
}

func TestTransportErrorOnTimeout(t *testing.T) {
	doer := &countingDoer{err: context.DeadlineExceeded}
	c, _ := New("test-key", WithHTTPClient(doer))

	_, err := c.AutoabstractFromURL(context.Background(), "https://example.com/a", AbstractOptions{})

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
	assert.Equal(t, true, errors.Is(err, context.DeadlineExceeded))
}

func TestRemoteErrorCarriesStatusAndBody(t *testing.T) {
	c, _ := newTestClient(t, http.StatusUnauthorized, `{"error":"invalid token"}`)

	_, err := c.Autoabstract(context.Background(), "Headline", "Body text", AbstractOptions{})

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected *RemoteError, got %T: %v", err, err)
	}
	assert.Equal(t, http.StatusUnauthorized, remoteErr.StatusCode)
	assert.Equal(t, `{"error":"invalid token"}`, remoteErr.Body)
	assert.Equal(t, opAutoabstract, remoteErr.Op)
}

func TestNonOKSuccessStatusIsRemoteError(t *testing.T) {
	c, _ := newTestClient(t, http.StatusCreated, `{"sentences":[],"type":"text","url":""}`)

	_, err := c.Autoabstract(context.Background(), "Headline", "Body text", AbstractOptions{})

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected *RemoteError, got %T: %v", err, err)
	}
	assert.Equal(t, http.StatusCreated, remoteErr.StatusCode)
}

func TestDecodeError(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `<html>maintenance</html>`)

	_, err := c.Autoabstract(context.Background(), "Headline", "Body text", AbstractOptions{})

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}

	var syntaxErr *json.SyntaxError
	assert.Equal(t, true, errors.As(err, &syntaxErr))
}

func TestDecodeErrorOnNullBody(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, " null\n")

	resp, err := c.Clustering(context.Background(), []ClusteringArticle{
		{Identifier: "1", Title: "Title", Content: "Body"},
	}, ClusteringOptions{})

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T: %v (resp %+v)", err, err, resp)
	}
	assert.Equal(t, "clustering", decodeErr.Op)
	if resp != nil {
		t.Errorf("resp = %+v, want nil", resp)
	}
}

func TestDebugLogsFailureWithoutChangingIt(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c, _ := newTestClient(t, http.StatusInternalServerError, "boom", WithDebug(true), WithLogger(logger))
	_, debugErr := c.Autoabstract(context.Background(), "Headline", "Body text", AbstractOptions{})

	quiet, _ := newTestClient(t, http.StatusInternalServerError, "boom")
	_, quietErr := quiet.Autoabstract(context.Background(), "Headline", "Body text", AbstractOptions{})

	assert.Equal(t, quietErr.Error(), debugErr.Error())
	assert.Equal(t, true, strings.Contains(buf.String(), "Apollo request failed"))
	assert.Equal(t, true, strings.Contains(buf.String(), "status=500"))
}

func TestQuietClientDoesNotLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c, _ := newTestClient(t, http.StatusInternalServerError, "boom", WithLogger(logger))
	_, err := c.Autoabstract(context.Background(), "Headline", "Body text", AbstractOptions{})

	assert.NotEqual(t, nil, err)
	assert.Equal(t, "", buf.String())
}
