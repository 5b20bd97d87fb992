// Package transport is the request dispatcher: one configured HTTP client
// that resolves the current bearer credential before every outgoing call and
// classifies failures for callers.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CredentialSource performs a live session lookup and returns the current
// bearer token. An empty token with nil error means "no active session".
type CredentialSource interface {
	Resolve(ctx context.Context) (string, error)
}

// Config holds the dispatcher's shared configuration.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration // ordinary calls, default 60s
	UploadTimeout  time.Duration // multipart uploads, default 120s
	LookupTimeout  time.Duration // credential resolution race bound, default 5s
}

// Client is the single shared dispatcher for all backend calls.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	uploadClient  *http.Client
	source        CredentialSource
	fallbackToken func() string
	lookupTimeout time.Duration
	group         singleflight.Group
	log           *zap.Logger
}

// NewClient builds a dispatcher. source may be nil (requests then rely on
// fallbackToken alone); fallbackToken may be nil (no cached credential).
func NewClient(cfg Config, source CredentialSource, fallbackToken func() string, log *zap.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 120 * time.Second
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		uploadClient:  &http.Client{Timeout: cfg.UploadTimeout},
		source:        source,
		fallbackToken: fallbackToken,
		lookupTimeout: cfg.LookupTimeout,
		log:           log,
	}
}

// credOutcome is the tagged result of the credential race: either the live
// lookup resolved, or it timed out / failed and the cached token (possibly
// empty) is used instead.
type credOutcome struct {
	token    string
	timedOut bool
}

func (c *Client) cachedToken() string {
	if c.fallbackToken == nil {
		return ""
	}
	return c.fallbackToken()
}

// resolveCredential races the live session lookup against the lookup bound.
// A missing or slow identity check must never hang a request: on timeout or
// lookup failure the request proceeds with the last-known token, or
// unauthenticated when there is none.
func (c *Client) resolveCredential(ctx context.Context) credOutcome {
	if c.source == nil {
		return credOutcome{token: c.cachedToken()}
	}

	// Concurrent requests share one in-flight lookup. The lookup runs on its
	// own context so a single caller going away cannot fail it for the rest.
	ch := c.group.DoChan("credential", func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.Background(), c.lookupTimeout)
		defer cancel()
		return c.source.Resolve(lookupCtx)
	})

	timer := time.NewTimer(c.lookupTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			c.log.Warn("session lookup failed, using cached credential", zap.Error(res.Err))
			return credOutcome{token: c.cachedToken()}
		}
		return credOutcome{token: res.Val.(string)}
	case <-timer.C:
		c.log.Warn("session lookup timed out, using cached credential")
		return credOutcome{token: c.cachedToken(), timedOut: true}
	case <-ctx.Done():
		return credOutcome{token: c.cachedToken(), timedOut: true}
	}
}

// GetJSON issues an authenticated GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &RequestError{Err: err}
	}
	return c.do(c.httpClient, req, out)
}

// PostJSON issues an authenticated POST with a JSON body and decodes the
// response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &RequestError{Err: fmt.Errorf("encode body: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &RequestError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(c.httpClient, req, out)
}

// UploadRequest describes one multipart file upload.
type UploadRequest struct {
	Path        string
	FieldName   string // form field, "file" when empty
	FileName    string
	ContentType string
	Size        int64 // declared size in bytes; <= 0 means unknown
	Body        io.Reader

	// OnProgress receives the percentage of declared size sent so far.
	// Never invoked when Size is unknown: the percentage is omitted, not
	// guessed.
	OnProgress func(percent int)
}

// Upload streams a multipart body through the dispatcher using the extended
// upload timeout and decodes the response into out.
func (c *Client) Upload(ctx context.Context, up UploadRequest, out any) error {
	field := up.FieldName
	if field == "" {
		field = "file"
	}

	var progress func(int)
	if up.OnProgress != nil && up.Size > 0 {
		progress = up.OnProgress
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreatePart(fileHeader(field, up.FileName, up.ContentType))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		src := io.Reader(up.Body)
		if progress != nil {
			src = &progressReader{r: up.Body, total: up.Size, onProgress: progress}
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+up.Path, pr)
	if err != nil {
		pr.Close()
		return &RequestError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(c.uploadClient, req, out)
}

// do resolves the credential, attaches it when present, executes the request
// and maps the outcome onto the error taxonomy.
func (c *Client) do(hc *http.Client, req *http.Request, out any) error {
	cred := c.resolveCredential(req.Context())
	if cred.token != "" {
		req.Header.Set("Authorization", "Bearer "+cred.token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &TransportError{Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func fileHeader(field, filename, contentType string) textproto.MIMEHeader {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	return h
}

// progressReader reports bytes read through it as a percentage of total.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	lastPct    int
	onProgress func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct != p.lastPct {
			p.lastPct = pct
			p.onProgress(pct)
		}
	}
	return n, err
}
