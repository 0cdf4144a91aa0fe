// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/trackui/internal/models"
)

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FakeDashboard is a scripted stand-in for the dashboard API.
//
// Each GET endpoint serves the last value set for it; POST endpoints answer
// with Result and record the request path.
type FakeDashboard struct {
	mu         sync.Mutex
	progress   map[string]models.Progress
	collection models.Collection
	sync       models.SyncState
	scheduler  models.SchedulerStatus
	Result     models.ActionResult
	Status     int
	calls      []string
	bodies     []string
}

// NewFakeDashboard starts an [httptest.Server] backed by a [FakeDashboard] and closes it with the test.
func NewFakeDashboard(t *testing.T) (*FakeDashboard, *httptest.Server) {
	t.Helper()
	fd := &FakeDashboard{progress: map[string]models.Progress{}, Result: models.ActionResult{Success: true}}
	srv := httptest.NewServer(fd)
	t.Cleanup(srv.Close)
	return fd, srv
}

func (f *FakeDashboard) SetProgress(id string, p models.Progress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[id] = p
}

func (f *FakeDashboard) SetCollection(c models.Collection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collection = c
}

func (f *FakeDashboard) SetSync(s models.SyncState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sync = s
}

func (f *FakeDashboard) SetScheduler(s models.SchedulerStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduler = s
}

// Calls returns every "METHOD path" served so far.
func (f *FakeDashboard) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Bodies returns the raw request bodies of POST calls.
func (f *FakeDashboard) Bodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bodies...)
}

func (f *FakeDashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	if f.Status != 0 && f.Status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.Status)
		_ = json.NewEncoder(w).Encode(f.Result)
		return
	}

	var body any
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/download_progress/"):
		p, ok := f.progress[strings.TrimPrefix(r.URL.Path, "/api/download_progress/")]
		if !ok {
			body = map[string]any{}
		} else {
			body = p
		}
	case r.Method == http.MethodGet && r.URL.Path == "/api/downloads/status":
		body = f.collection
	case r.Method == http.MethodGet && r.URL.Path == "/api/sync_status":
		body = f.sync
	case r.Method == http.MethodGet && r.URL.Path == "/api/scheduler/status":
		body = f.scheduler
	case r.Method == http.MethodPost:
		data, _ := io.ReadAll(r.Body)
		f.bodies = append(f.bodies, string(data))
		body = f.Result
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
