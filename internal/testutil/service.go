package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Reply is one scripted response of a FakeService.
type Reply struct {
	Status int
	// JSON is encoded as the body when Body is nil.
	JSON any
	Body []byte
}

// JSON returns a 200 reply carrying v.
func JSON(v any) Reply {
	return Reply{Status: http.StatusOK, JSON: v}
}

// Error returns a reply with the service's {"error": msg} body.
func Error(status int, msg string) Reply {
	return Reply{Status: status, JSON: map[string]string{"error": msg}}
}

// Bytes returns a 200 reply with a raw body.
func Bytes(data []byte) Reply {
	return Reply{Status: http.StatusOK, Body: data}
}

// FakeService is an in-process stand-in for the Budget Query service.
// Replies are queued per path; the last reply of a path repeats.
type FakeService struct {
	URL string

	mu       sync.Mutex
	replies  map[string][]Reply
	requests map[string][]map[string]any
}

// NewFakeService starts a FakeService that is stopped when the test ends.
func NewFakeService(t testing.TB) *FakeService {
	t.Helper()
	f := &FakeService{
		replies:  make(map[string][]Reply),
		requests: make(map[string][]map[string]any),
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	f.URL = srv.URL
	return f
}

// On queues replies for path.
func (f *FakeService) On(path string, replies ...Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[path] = append(f.replies[path], replies...)
}

// Requests returns the decoded request bodies received on path.
func (f *FakeService) Requests(path string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.requests[path]))
	copy(out, f.requests[path])
	return out
}

func (f *FakeService) serve(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.requests[r.URL.Path] = append(f.requests[r.URL.Path], body)
	queue := f.replies[r.URL.Path]
	var reply Reply
	ok := len(queue) > 0
	if ok {
		reply = queue[0]
		if len(queue) > 1 {
			f.replies[r.URL.Path] = queue[1:]
		}
	}
	f.mu.Unlock()

	if !ok {
		reply = Error(http.StatusNotFound, "no reply for "+r.URL.Path)
	}
	if reply.Status == 0 {
		reply.Status = http.StatusOK
	}

	if reply.Body != nil {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(reply.Status)
		_, _ = w.Write(reply.Body)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	_ = json.NewEncoder(w).Encode(reply.JSON)
}
