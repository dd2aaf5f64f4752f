// Command sandbox-server runs the HTTP server inside sandbox pods that
// executes Python code in isolated sessions. Each session owns a
// working directory; files written before a run and files produced by
// it are read back through the same session.
//
// Configuration:
//
//	SANDBOX_PORT           - Listen port (default: 8080)
//	SANDBOX_MAX_CONCURRENT - Max concurrent executions (default: 3)
//	SANDBOX_MAX_SESSIONS   - Max open sessions (default: 20)
//	SANDBOX_PYTHON_INDEX   - Python package index URL (default: https://pypi.org/simple/)
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

func main() {
	port := envOr("SANDBOX_PORT", "8080")
	maxConcurrent := envOrInt("SANDBOX_MAX_CONCURRENT", 3)
	maxSessions := envOrInt("SANDBOX_MAX_SESSIONS", 20)
	pythonIndex := envOr("SANDBOX_PYTHON_INDEX", "https://pypi.org/simple/")

	if _, err := exec.LookPath("python3"); err != nil {
		slog.Error("python3 not found in PATH")
		os.Exit(1)
	}

	srv := &sandboxServer{
		maxConcurrent: int32(maxConcurrent),
		maxSessions:   maxSessions,
		pythonIndex:   pythonIndex,
		sessions:      make(map[string]*session),
		startTime:     time.Now(),
	}
	defer srv.closeAll()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", srv.handleCreateSession)
	mux.HandleFunc("DELETE /sessions/{id}", srv.handleDeleteSession)
	mux.HandleFunc("GET /sessions/{id}/files", srv.handleListFiles)
	mux.HandleFunc("PUT /sessions/{id}/files/{name}", srv.handlePutFile)
	mux.HandleFunc("GET /sessions/{id}/files/{name}", srv.handleGetFile)
	mux.HandleFunc("POST /sessions/{id}/exec", srv.handleExec)
	mux.HandleFunc("GET /health", srv.handleHealth)

	httpSrv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 660 * time.Second, // Longer than the largest run timeout.
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("sandbox server starting",
			"port", port,
			"python", detectPythonVersion(),
			"max_concurrent", maxConcurrent,
			"max_sessions", maxSessions,
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)
}

// --- Server ---

type sandboxServer struct {
	maxConcurrent int32
	currentLoad   atomic.Int32
	maxSessions   int
	pythonIndex   string
	startTime     time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// session is one isolated working directory. Packages installed by a
// run persist in .pylibs for the session's lifetime.
type session struct {
	id      string
	workDir string
	created time.Time
}

func (s *sandboxServer) lookup(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *sandboxServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		os.RemoveAll(sess.workDir)
	}
	s.sessions = make(map[string]*session)
}

// --- Session handlers ---

func (s *sandboxServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		writeError(w, http.StatusTooManyRequests, fmt.Sprintf("at capacity (%d sessions)", s.maxSessions))
		return
	}
	s.mu.Unlock()

	workDir, err := os.MkdirTemp("", "sandbox-session-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session dir: "+err.Error())
		return
	}

	sess := &session{
		id:      newSessionID(),
		workDir: workDir,
		created: time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	slog.Info("session created", "session", sess.id)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": sess.id})
}

func (s *sandboxServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	sess := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	os.RemoveAll(sess.workDir)
	slog.Info("session deleted", "session", id, "age", time.Since(sess.created).Round(time.Second).String())
	w.WriteHeader(http.StatusNoContent)
}

// --- File handlers ---

func (s *sandboxServer) handlePutFile(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	name := filepath.Base(r.PathValue("name")) // Prevent path traversal.
	if name == "." || name == ".." || name == "/" {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 128*1024*1024))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}

	if err := os.WriteFile(filepath.Join(sess.workDir, name), data, 0644); err != nil {
		writeError(w, http.StatusInternalServerError, "writing file: "+err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *sandboxServer) handleGetFile(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	name := filepath.Base(r.PathValue("name"))
	data, err := os.ReadFile(filepath.Join(sess.workDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "reading file: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (s *sandboxServer) handleListFiles(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	entries, err := os.ReadDir(sess.workDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing files: "+err.Error())
		return
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, entry.Name())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"files": files})
}

// --- Exec handler ---

type execRequest struct {
	Code           string   `json:"code"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	Requirements   []string `json:"requirements,omitempty"`
}

type execResponse struct {
	Status          string `json:"status"`
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExitCode        int    `json:"exit_code"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

func (s *sandboxServer) handleExec(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	// Check capacity.
	current := s.currentLoad.Add(1)
	defer s.currentLoad.Add(-1)

	if current > s.maxConcurrent {
		writeError(w, http.StatusTooManyRequests,
			fmt.Sprintf("at capacity (%d/%d concurrent executions)", current, s.maxConcurrent))
		return
	}

	var req execRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10*1024*1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	if req.TimeoutSeconds <= 0 {
		req.TimeoutSeconds = 30 // Default timeout.
	}

	codePreview := req.Code
	if len(codePreview) > 120 {
		codePreview = codePreview[:120] + "..."
	}
	slog.Info("exec request",
		"session", sess.id,
		"code", codePreview,
		"timeout", req.TimeoutSeconds,
		"requirements", len(req.Requirements),
	)

	// Install requirements if specified. Installed packages land in the
	// session's .pylibs and survive across runs.
	if len(req.Requirements) > 0 {
		if err := s.installRequirements(r.Context(), sess.workDir, req.Requirements, req.TimeoutSeconds); err != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(execResponse{
				Status:   "error",
				Stderr:   "package installation failed: " + err.Error(),
				ExitCode: -1,
			})
			return
		}
	}

	// Write the code to a file.
	codePath := filepath.Join(sess.workDir, "script.py")
	if err := os.WriteFile(codePath, []byte(req.Code), 0644); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write code: "+err.Error())
		return
	}

	// Execute with timeout.
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(req.TimeoutSeconds)*time.Second)
	defer cancel()

	startTime := time.Now()
	cmd := exec.CommandContext(ctx, "python3", codePath)
	cmd.Dir = sess.workDir
	cmd.Env = append(os.Environ(), "PYTHONPATH="+filepath.Join(sess.workDir, ".pylibs"))

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	execErr := cmd.Run()
	duration := time.Since(startTime)

	exitCode := 0
	status := "success"
	if execErr != nil {
		status = "error"
		// Check timeout first (context deadline takes precedence over exit error).
		if ctx.Err() == context.DeadlineExceeded {
			exitCode = -1
			if stderrBuf.Len() == 0 {
				stderrBuf.WriteString(fmt.Sprintf("execution timed out after %d seconds", req.TimeoutSeconds))
			}
		} else if exitErr, ok := execErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	stdoutPreview := stdoutBuf.String()
	if len(stdoutPreview) > 200 {
		stdoutPreview = stdoutPreview[:200] + "..."
	}
	slog.Info("exec complete",
		"session", sess.id,
		"status", status,
		"exit_code", exitCode,
		"duration_ms", duration.Milliseconds(),
		"stdout_len", stdoutBuf.Len(),
		"stdout", stdoutPreview,
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(execResponse{
		Status:          status,
		Stdout:          stdoutBuf.String(),
		Stderr:          stderrBuf.String(),
		ExitCode:        exitCode,
		ExecutionTimeMs: duration.Milliseconds(),
	})
}

// installRequirements installs packages into the session's .pylibs via
// uv, falling back to pip when uv is absent.
func (s *sandboxServer) installRequirements(ctx context.Context, workDir string, requirements []string, timeoutSecs int) error {
	installCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	targetDir := filepath.Join(workDir, ".pylibs")

	var cmd *exec.Cmd
	if _, err := exec.LookPath("uv"); err == nil {
		args := []string{"pip", "install", "--system", "--target", targetDir, "--index-url", s.pythonIndex}
		args = append(args, requirements...)
		cmd = exec.CommandContext(installCtx, "uv", args...)
	} else {
		args := []string{"-m", "pip", "install", "--target", targetDir, "--index-url", s.pythonIndex}
		args = append(args, requirements...)
		cmd = exec.CommandContext(installCtx, "python3", args...)
	}
	cmd.Dir = workDir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", err.Error(), string(output))
	}
	return nil
}

// --- Health handler ---

type healthResponse struct {
	Status        string `json:"status"`
	PythonVersion string `json:"python_version"`
	Capacity      int    `json:"capacity"`
	CurrentLoad   int    `json:"current_load"`
	OpenSessions  int    `json:"open_sessions"`
	UptimeSecs    int64  `json:"uptime_seconds"`
}

func (s *sandboxServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	open := len(s.sessions)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:        "healthy",
		PythonVersion: detectPythonVersion(),
		Capacity:      int(s.maxConcurrent),
		CurrentLoad:   int(s.currentLoad.Load()),
		OpenSessions:  open,
		UptimeSecs:    int64(time.Since(s.startTime).Seconds()),
	})
}

func detectPythonVersion() string {
	output, err := exec.Command("python3", "--version").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

// --- Helpers ---

func newSessionID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "sess_" + hex.EncodeToString(b)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return defaultVal
	}
	return n
}
