package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"autoupdater/internal/debug"
)

// Default transport settings.
const (
	DefaultUserAgent = "autoupdater/1.0"
	DefaultChunkSize = 8192
	maxManifestBytes = 1 << 20
)

// Transport fetches the manifest and payload over the network.
type Transport interface {
	// FetchText returns the response body, or "" on any failure.
	FetchText(ctx context.Context, url string) string
	// FetchBinary streams url into dst, reporting percentages when the
	// content length is known. The partial file is left behind on error.
	FetchBinary(ctx context.Context, url, dst string, onProgress func(percent int)) error
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	httpClient  *http.Client
	userAgent   string
	chunkSize   int
	textTimeout time.Duration
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithHTTPClient sets a custom HTTP client for the transport.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) TransportOption {
	return func(t *HTTPTransport) {
		if ua != "" {
			t.userAgent = ua
		}
	}
}

// WithChunkSize sets the read buffer size used while downloading payloads.
func WithChunkSize(n int) TransportOption {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.chunkSize = n
		}
	}
}

// WithTextTimeout bounds manifest fetches. Zero leaves transport defaults in place.
func WithTextTimeout(d time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		t.textTimeout = d
	}
}

// NewHTTPTransport creates a transport. Payload downloads carry no client
// timeout; they are bounded only by the caller's context.
func NewHTTPTransport(opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		httpClient: &http.Client{
			Timeout: 0,
		},
		userAgent: DefaultUserAgent,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FetchText performs a blocking GET and returns the body.
// Every failure (DNS, connect, timeout, non-2xx status, read error) yields "".
func (t *HTTPTransport) FetchText(ctx context.Context, url string) string {
	if t.textTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.textTimeout)
		defer cancel()
	}

	resp, err := t.get(ctx, url, "text/plain")
	if err != nil {
		debug.Logf("transport: fetch %s: %v", url, err)
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		debug.Logf("transport: read %s: %v", url, err)
		return ""
	}
	return string(body)
}

// FetchBinary downloads url into a newly created file at dst.
// When the server reports Content-Length, onProgress receives
// floor(bytesSoFar*100/total) after every chunk; otherwise it is never called.
func (t *HTTPTransport) FetchBinary(ctx context.Context, url, dst string, onProgress func(percent int)) error {
	resp, err := t.get(ctx, url, "application/octet-stream")
	if err != nil {
		return transportError("download update", err)
	}
	defer func() { _ = resp.Body.Close() }()

	//nolint:gosec // G302/G304: destination is an engine-chosen temp path; payload must be executable
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return transportError("create download file", err)
	}

	written, copyErr := copyWithProgress(ctx, out, resp.Body, resp.ContentLength, t.chunkSize, onProgress)
	closeErr := out.Close()
	if copyErr != nil {
		debug.Logf("transport: download %s aborted after %d bytes: %v", url, written, copyErr)
		return transportError("download update", copyErr)
	}
	if closeErr != nil {
		return transportError("write download file", closeErr)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return transportError("download update", fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength))
	}
	debug.Logf("transport: downloaded %d bytes from %s to %s", written, url, dst)
	return nil
}

func (t *HTTPTransport) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

// copyWithProgress copies src to dst chunk by chunk. total <= 0 means the
// length is unknown and no progress is reported.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, chunkSize int, onProgress func(int)) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if total > 0 && onProgress != nil {
				onProgress(percentOf(written, total))
			}
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return written, ctxErr
			}
			return written, readErr
		}
	}
}

func percentOf(done, total int64) int {
	p := done * 100 / total
	if p > 100 {
		p = 100
	}
	return int(p)
}
