package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amterp/sitegate/internal/content"
	"github.com/amterp/sitegate/internal/intercept"
	"github.com/amterp/sitegate/internal/render"
)

// countingLoader returns a fixed document and counts loads.
type countingLoader struct {
	mu    sync.Mutex
	loads int
}

func (l *countingLoader) Load(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	return "<html><head></head><body></body></html>", nil
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func newCountingHandler(t *testing.T) (*Handler, *countingLoader) {
	t.Helper()
	loader := &countingLoader{}
	return NewHandler(&Site{
		Loader: loader,
		Store:  content.NewDir(t.TempDir()),
		Rules:  intercept.DefaultRules(),
		Host:   render.NewHost(),
		Source: "test",
	}), loader
}

func TestReloader_CoalescesChanges(t *testing.T) {
	handler, loader := newCountingHandler(t)
	r := &reloader{handler: handler, delay: 30 * time.Millisecond}
	defer r.stop()

	for i := 0; i < 5; i++ {
		r.OnFileChange(FileChange{Type: FileChangeModified, Kind: FileChangeKindContent, Path: "index.html"})
	}

	deadline := time.Now().Add(2 * time.Second)
	for loader.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := loader.count(); got != 1 {
		t.Errorf("Expected 1 load, got %d", got)
	}
}

func TestReloader_StoppedIgnoresChanges(t *testing.T) {
	handler, loader := newCountingHandler(t)
	r := &reloader{handler: handler, delay: 10 * time.Millisecond}
	r.stop()

	r.OnFileChange(FileChange{Type: FileChangeModified, Kind: FileChangeKindContent, Path: "index.html"})
	time.Sleep(50 * time.Millisecond)

	if got := loader.count(); got != 0 {
		t.Errorf("Expected no loads after stop, got %d", got)
	}
}

func TestNewServer_NotifiesHubOnReload(t *testing.T) {
	handler, _ := newCountingHandler(t)
	server := NewServer(handler, 0)

	client := newTestClient(server.Hub(), 4)
	server.Hub().addClient(client)

	doc, err := handler.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("empty reload message")
		}
	case <-time.After(time.Second):
		t.Fatalf("hub was not notified of document %s", doc.ID)
	}

	if err := server.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
	if handler.site.Host.Len() != 0 {
		t.Errorf("Shutdown should release documents, %d left", handler.site.Host.Len())
	}
}
