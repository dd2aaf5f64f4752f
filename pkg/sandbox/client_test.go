package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeServer implements the sandbox server session API in memory.
type fakeServer struct {
	mu       sync.Mutex
	sessions map[string]map[string][]byte
	nextID   int
	lastExec execRequest
	execResp string
	deleted  []string
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		sessions: make(map[string]map[string][]byte),
		execResp: `{"status":"success","stdout":"ran","stderr":"","exit_code":0,"execution_time_ms":10}`,
	}
}

func (s *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.nextID++
		id := "sess-1"
		if s.nextID > 1 {
			id = "sess-more"
		}
		s.sessions[id] = make(map[string][]byte)
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"id": id})
	})
	mux.HandleFunc("PUT /sessions/{id}/files/{name}", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.sessions[r.PathValue("id")][r.PathValue("name")] = data
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /sessions/{id}/files/{name}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		data, ok := s.sessions[r.PathValue("id")][r.PathValue("name")]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	})
	mux.HandleFunc("GET /sessions/{id}/files", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		names := make([]string, 0)
		for name := range s.sessions[r.PathValue("id")] {
			names = append(names, name)
		}
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string][]string{"files": names})
	})
	mux.HandleFunc("POST /sessions/{id}/exec", func(w http.ResponseWriter, r *http.Request) {
		var req execRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.lastExec = req
		resp := s.execResp
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, resp)
	})
	mux.HandleFunc("DELETE /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		delete(s.sessions, r.PathValue("id"))
		s.deleted = append(s.deleted, r.PathValue("id"))
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTestSandbox(t *testing.T) (*fakeServer, Sandbox) {
	t.Helper()
	fake := newFakeServer()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	backend := NewHTTPBackend(&StaticAcquirer{URL: srv.URL})
	sb, err := backend.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return fake, sb
}

func TestHTTPSandboxFileRoundTrip(t *testing.T) {
	_, sb := newTestSandbox(t)
	ctx := context.Background()

	if err := sb.WriteFile(ctx, "uploaded_data.csv", []byte("a,b\n1,2\n")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := sb.ReadFile(ctx, "uploaded_data.csv")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("got %q", data)
	}

	files, err := sb.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || files[0] != "uploaded_data.csv" {
		t.Errorf("files = %v", files)
	}

	if _, err := sb.ReadFile(ctx, "missing.csv"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("missing file: got %v, want ErrFileNotFound", err)
	}
}

func TestHTTPSandboxRun(t *testing.T) {
	fake, sb := newTestSandbox(t)

	result, err := sb.Run(context.Background(), "print('hi')", RunOptions{
		Timeout:      30 * time.Second,
		Requirements: []string{"pandas"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Stdout != "ran" {
		t.Errorf("stdout = %q", result.Stdout)
	}
	if result.Duration != 10*time.Millisecond {
		t.Errorf("duration = %s", result.Duration)
	}

	if fake.lastExec.Code != "print('hi')" {
		t.Errorf("sent code = %q", fake.lastExec.Code)
	}
	if fake.lastExec.TimeoutSeconds != 30 {
		t.Errorf("sent timeout = %d, want 30", fake.lastExec.TimeoutSeconds)
	}
	if len(fake.lastExec.Requirements) != 1 {
		t.Errorf("sent requirements = %v", fake.lastExec.Requirements)
	}
}

func TestHTTPSandboxRunUnstableShape(t *testing.T) {
	fake, sb := newTestSandbox(t)
	fake.execResp = `{"logs":{"stdout":["a","b"],"stderr":[]}}`

	result, err := sb.Run(context.Background(), "print('x')", RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stdout != "a\nb" {
		t.Errorf("stdout = %q, want extraction through the fallback chain", result.Stdout)
	}
}

func TestHTTPSandboxClose(t *testing.T) {
	fake, sb := newTestSandbox(t)

	released := false
	hs := sb.(*httpSandbox)
	orig := hs.release
	hs.release = func() { released = true; orig() }

	if err := sb.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(fake.deleted) != 1 {
		t.Errorf("deleted sessions = %v, want one", fake.deleted)
	}
	if !released {
		t.Error("acquirer release not called on Close")
	}
}

func TestHTTPBackendCapacityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	backend := NewHTTPBackend(&StaticAcquirer{URL: srv.URL})
	if _, err := backend.Create(context.Background()); err == nil {
		t.Fatal("expected error when the server is at capacity")
	}
}
