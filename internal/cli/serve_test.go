package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/canopyview/canopy/pkg/chat"
	"github.com/canopyview/canopy/pkg/pipeline"
)

func writeConv(t *testing.T, dir, name string, c *chat.Conversation) {
	t.Helper()
	if err := chat.WriteConversationFile(c, filepath.Join(dir, name)); err != nil {
		t.Fatal(err)
	}
}

func writeRaw(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestServer(t *testing.T) (*server, string) {
	t.Helper()

	conv, err := SampleConversation()
	if err != nil {
		t.Fatalf("SampleConversation() error = %v", err)
	}

	store := newConvStore()
	store.put(conv)

	c := New(io.Discard, log.FatalLevel)
	runner := pipeline.NewRunner(nil, nil, c.Logger)
	t.Cleanup(func() { runner.Close() })

	return &server{store: store, runner: runner, cli: c}, conv.ID
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleList(t *testing.T) {
	srv, id := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("item count = %d, want 1", len(items))
	}
	if items[0]["id"] != id {
		t.Errorf("id = %v, want %s", items[0]["id"], id)
	}
	if items[0]["branches"].(float64) != 4 {
		t.Errorf("branches = %v, want 4", items[0]["branches"])
	}
}

func TestHandleGet(t *testing.T) {
	srv, id := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+id, nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Trip planning") {
		t.Error("conversation title missing from response")
	}
}

func TestHandleGetNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/conversations/nope", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "CONVERSATION_NOT_FOUND") {
		t.Errorf("body missing error code: %q", rec.Body.String())
	}
}

func TestHandleLayout(t *testing.T) {
	srv, id := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+id+"/layout", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	blocks, ok := doc["blocks"].([]any)
	if !ok || len(blocks) != 4 {
		t.Errorf("blocks = %v, want 4 entries", doc["blocks"])
	}
}

func TestHandleRenderSVG(t *testing.T) {
	srv, id := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+id+"/render.svg", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<svg") {
		t.Error("body is not SVG")
	}
}

func TestConvStoreLoadDirSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()

	conv, err := SampleConversation()
	if err != nil {
		t.Fatal(err)
	}
	writeConv(t, dir, "good.json", conv)
	writeRaw(t, dir, "bad.json", "{not json")
	writeRaw(t, dir, "ignore.txt", "not a conversation")

	store := newConvStore()
	if err := store.loadDir(dir); err != nil {
		t.Fatalf("loadDir() error = %v", err)
	}
	if store.len() != 1 {
		t.Errorf("loaded = %d, want 1", store.len())
	}
}
