package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/datakiln/datakiln/pkg/debug"
)

// HTTPBackend creates sandboxes as sessions on a sandbox server
// reached through an Acquirer.
type HTTPBackend struct {
	acquirer   Acquirer
	httpClient *http.Client
}

var _ Backend = (*HTTPBackend)(nil)

// NewHTTPBackend creates a backend over the given acquirer. The HTTP
// client carries no overall timeout; per-run timeouts are enforced by
// the sandbox server and by the request context.
func NewHTTPBackend(acquirer Acquirer) *HTTPBackend {
	return &HTTPBackend{
		acquirer:   acquirer,
		httpClient: &http.Client{},
	}
}

// Create acquires a sandbox server and opens a fresh session on it.
func (b *HTTPBackend) Create(ctx context.Context) (Sandbox, error) {
	baseURL, release, err := b.acquirer.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring sandbox: %w", err)
	}

	resp, err := b.doJSON(ctx, http.MethodPost, baseURL+"/sessions", nil)
	if err != nil {
		release()
		return nil, fmt.Errorf("creating sandbox session: %w", err)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &created); err != nil || created.ID == "" {
		release()
		return nil, fmt.Errorf("decoding session response: %w", err)
	}

	return &httpSandbox{
		client:  b.httpClient,
		baseURL: baseURL + "/sessions/" + created.ID,
		release: release,
	}, nil
}

func (b *HTTPBackend) doJSON(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("sandbox at capacity (HTTP 429)")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// httpSandbox is one session on a sandbox server.
type httpSandbox struct {
	client  *http.Client
	baseURL string // .../sessions/<id>
	release func()
}

var _ Sandbox = (*httpSandbox)(nil)

func (s *httpSandbox) WriteFile(ctx context.Context, name string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.fileURL(name), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %q: %w", name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("uploading %q: sandbox returned HTTP %d", name, resp.StatusCode)
	}
	return nil
}

func (s *httpSandbox) ReadFile(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.fileURL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, ErrFileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reading %q: sandbox returned HTTP %d", name, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *httpSandbox) ListFiles(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/files", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing files: sandbox returned HTTP %d", resp.StatusCode)
	}

	var listing struct {
		Files []string `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decoding file listing: %w", err)
	}
	return listing.Files, nil
}

// execRequest is the body for POST /sessions/{id}/exec.
type execRequest struct {
	Code           string   `json:"code"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
	Requirements   []string `json:"requirements,omitempty"`
}

func (s *httpSandbox) Run(ctx context.Context, code string, opts RunOptions) (*RunResult, error) {
	body, err := json.Marshal(execRequest{
		Code:           code,
		TimeoutSeconds: int(opts.Timeout / time.Second),
		Requirements:   opts.Requirements,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling exec request: %w", err)
	}

	debug.Log("sandbox", "exec request", "url", s.baseURL+"/exec",
		"code_len", len(code), "timeout_s", int(opts.Timeout/time.Second))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/exec", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("sandbox at capacity (HTTP 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return decodeRunResult(respBody), nil
}

// Close deletes the session and releases the underlying server.
func (s *httpSandbox) Close(ctx context.Context) error {
	defer s.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *httpSandbox) fileURL(name string) string {
	return s.baseURL + "/files/" + url.PathEscape(name)
}
