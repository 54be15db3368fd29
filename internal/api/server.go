package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// reloadDelay coalesces bursts of file changes into one reload.
const reloadDelay = 250 * time.Millisecond

// WatchTarget is a directory whose changes trigger a reload.
type WatchTarget struct {
	Root string
	Kind FileChangeKind
}

// Server wraps the HTTP server for the render host.
type Server struct {
	httpServer *http.Server
	handler    *Handler
	watchers   []*FileWatcher
	wsHub      *WebSocketHub
	reloader   *reloader
}

// NewServer creates a new server with the given handler and port.
// Changes under any watch target re-render the site; with no targets, file
// watching is disabled and only explicit reloads publish new documents.
func NewServer(handler *Handler, port int, targets ...WatchTarget) *Server {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	wsHub := NewWebSocketHub()
	mux.HandleFunc("GET /api/v1/ws", wsHub.ServeWS)
	handler.SetOnReload(wsHub.OnReload)

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      Logging(Cors(mux)),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second, // Loads resolve every inlined resource first
		},
		handler: handler,
		wsHub:   wsHub,
	}

	if len(targets) > 0 {
		s.reloader = &reloader{handler: handler, delay: reloadDelay}
	}
	for _, target := range targets {
		watcher, err := NewFileWatcher(target.Root, target.Kind)
		if err != nil {
			log.Printf("Warning: failed to create file watcher for %s: %v", target.Root, err)
			continue
		}
		watcher.Subscribe(s.reloader)
		s.watchers = append(s.watchers, watcher)
	}

	return s
}

// Start begins listening for HTTP requests. Blocks until shutdown.
func (s *Server) Start() error {
	for _, watcher := range s.watchers {
		if err := watcher.Start(); err != nil {
			log.Printf("Warning: failed to start file watcher: %v", err)
			continue
		}
		log.Printf("Watching %s for changes", watcher.Root())
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server and releases every published document.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, watcher := range s.watchers {
		watcher.Stop()
	}
	if s.reloader != nil {
		s.reloader.stop()
	}
	s.wsHub.Close()

	err := s.httpServer.Shutdown(ctx)
	s.handler.site.Host.Close()
	return err
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Hub returns the live reload hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// reloader re-renders the site after file changes settle.
type reloader struct {
	handler *Handler
	delay   time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// OnFileChange implements FileWatcherSubscriber.
func (r *reloader) OnFileChange(change FileChange) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	log.Printf("Change detected (%s %s %s)", change.Kind, change.Type, change.Path)
	r.timer = time.AfterFunc(r.delay, r.reload)
}

func (r *reloader) reload() {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return
	}

	if _, err := r.handler.Reload(context.Background()); err != nil {
		log.Printf("Reload failed: %v", err)
	}
}

func (r *reloader) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
	}
}
