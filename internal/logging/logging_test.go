package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("production", &buf)

	h := middleware.RequestID(Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		From(r).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explore", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2:\n%s", len(lines), buf.String())
	}

	var inner, entry map[string]any
	if err := json.Unmarshal(lines[0], &inner); err != nil {
		t.Fatalf("decode inner line: %v", err)
	}
	if err := json.Unmarshal(lines[1], &entry); err != nil {
		t.Fatalf("decode request line: %v", err)
	}
	if inner["request_id"] == "" || inner["request_id"] != entry["request_id"] {
		t.Errorf("request ids differ: %v vs %v", inner["request_id"], entry["request_id"])
	}
	if entry["path"] != "/explore" || entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("entry = %v", entry)
	}
	if entry["service"] != "easyhope" {
		t.Errorf("service = %v", entry["service"])
	}
}

func TestFromWithoutLogger(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	// Must not panic.
	From(r).Info().Msg("dropped")
}
