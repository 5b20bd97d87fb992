package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	token string
	err   error
	delay time.Duration
}

func (f *fakeSource) Resolve(ctx context.Context) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.token, f.err
}

func newTestClient(baseURL string, source CredentialSource, fallback func() string) *Client {
	return NewClient(Config{
		BaseURL:        baseURL,
		RequestTimeout: 2 * time.Second,
		UploadTimeout:  2 * time.Second,
		LookupTimeout:  100 * time.Millisecond,
	}, source, fallback, nil)
}

func TestGetJSONAttachesResolvedBearer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL, &fakeSource{token: "tok-123"}, nil)
	var out map[string]bool
	require.NoError(t, c.GetJSON(context.Background(), "/ping", &out))
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.True(t, out["ok"])
}

func TestSlowLookupFallsBackToCachedToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	source := &fakeSource{token: "never-used", delay: time.Second}
	c := newTestClient(server.URL, source, func() string { return "cached-tok" })

	start := time.Now()
	require.NoError(t, c.GetJSON(context.Background(), "/ping", nil))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "slow lookup must not hang the request")
	assert.Equal(t, "Bearer cached-tok", gotAuth)
}

func TestSlowLookupWithEmptyStoreProceedsUnauthenticated(t *testing.T) {
	var gotAuth string
	var hadHeader bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, hadHeader = r.Header["Authorization"]
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL, &fakeSource{token: "x", delay: time.Second}, nil)
	require.NoError(t, c.GetJSON(context.Background(), "/ping", nil))
	assert.Empty(t, gotAuth)
	assert.False(t, hadHeader)
}

func TestFailedLookupFallsBackToCachedToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL, &fakeSource{err: errors.New("provider down")}, func() string { return "stale" })
	require.NoError(t, c.GetJSON(context.Background(), "/ping", nil))
	assert.Equal(t, "Bearer stale", gotAuth)
}

func TestServerErrorCarriesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"detail":"file is encrypted"}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL, nil, nil)
	err := c.PostJSON(context.Background(), "/upload", map[string]string{}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "file is encrypted", apiErr.Detail)
	assert.Equal(t, "file is encrypted", Detail(err))
}

func TestTransportFailureIsDistinctFromServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := newTestClient(server.URL, nil, nil)
	err := c.GetJSON(context.Background(), "/ping", nil)
	require.Error(t, err)

	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestPostJSONSendsJSONBody(t *testing.T) {
	var gotContentType string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL, nil, nil)
	require.NoError(t, c.PostJSON(context.Background(), "/q", map[string]string{"query": "hello"}, nil))
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "hello", gotBody["query"])
}

func TestUploadStreamsMultipartWithProgress(t *testing.T) {
	payload := strings.Repeat("x", 64*1024)
	var gotFilename, gotContent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		gotContent = string(content)
		fmt.Fprint(w, `{"id":"doc-1"}`)
	}))
	defer server.Close()

	var mu sync.Mutex
	var percents []int
	c := newTestClient(server.URL, nil, nil)
	var out map[string]string
	err := c.Upload(context.Background(), UploadRequest{
		Path:        "/upload",
		FileName:    "report.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(payload)),
		Body:        strings.NewReader(payload),
		OnProgress: func(p int) {
			mu.Lock()
			percents = append(percents, p)
			mu.Unlock()
		},
	}, &out)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, "report.pdf", gotFilename)
	assert.Equal(t, payload, gotContent)
	assert.Equal(t, "doc-1", out["id"])
	require.NotEmpty(t, percents)
	assert.Equal(t, 100, percents[len(percents)-1])
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
}

func TestUploadOmitsProgressWhenSizeUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	called := false
	c := newTestClient(server.URL, nil, nil)
	err := c.Upload(context.Background(), UploadRequest{
		Path:        "/upload",
		FileName:    "a.pdf",
		ContentType: "application/pdf",
		Size:        0,
		Body:        strings.NewReader("data"),
		OnProgress:  func(int) { called = true },
	}, nil)
	require.NoError(t, err)
	assert.False(t, called, "percentage must be omitted, not guessed, when total size is unknown")
}
