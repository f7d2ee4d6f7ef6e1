package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/jpalmerr/findwork/internal/blob"
	"github.com/jpalmerr/findwork/internal/store"
)

const (
	// sseWriteTimeout bounds a single SSE write so a stuck client cannot pin
	// its handler goroutine. Must be <= shutdownTimeout.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// embeddedIndex is the fallback index document inside Options.Assets.
	embeddedIndex = "assets/index.html"
)

// Options configures a [Server].
type Options struct {
	// Addr is the TCP address to listen on, e.g. "127.0.0.1:3000".
	Addr string

	// StaticRoot is the directory served under /static/.
	StaticRoot string

	// IndexPath is the index document served for unrouted GET requests.
	// When empty, the embedded index from Assets is used.
	IndexPath string

	// Assets holds the embedded fallback index. May be nil.
	Assets fs.FS
}

// Server handles HTTP requests for the find-work front-end.
//
// Routes (all GET; any other method gets 404):
//   - /data, /data/ and /data?tab=<id>: the blob, optionally narrowed to one tab
//   - /data/<id>: the blob narrowed to one tab
//   - /static/<path>: files below StaticRoot
//   - /events: Server-Sent Events, one message per publish
//   - /healthz: summary of the current snapshot
//   - anything else: the index document
type Server struct {
	store  store.Store
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
}

// NewServer creates a new HTTP [Server]. It is not started until
// [Server.Start] is called.
func NewServer(st store.Store, opts Options, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		opts:   opts,
		logger: logger,
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /data", s.handleData)
	mux.HandleFunc("GET /data/{$}", s.handleData)
	mux.HandleFunc("GET /data/{tab}", s.handleData)
	mux.HandleFunc("GET /static/{file...}", s.handleStatic)
	mux.HandleFunc("GET /events", s.handleSSE)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /", s.handleIndex)
	return getOnly(mux)
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the listener is bound. The server
// shuts down gracefully, with a 5-second timeout, when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	// bind first so address errors surface synchronously
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", s.opts.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleData serves the encoded blob, or a single-tab view of it.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Current()
	if snap == nil {
		http.Error(w, "no data published", http.StatusInternalServerError)
		return
	}

	tabID := r.PathValue("tab")
	if tabID == "" {
		tabID = r.URL.Query().Get("tab")
	}

	body := snap.JSON()
	if tabID != "" {
		view, err := blob.ByTab(snap.Blob(), tabID)
		if errors.Is(err, blob.ErrTabNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			s.logger.Error("failed to build tab view", "tab", tabID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		body, err = json.Marshal(view)
		if err != nil {
			s.logger.Error("failed to encode tab view", "tab", tabID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("failed to write data response", "error", err)
	}
}

// handleStatic serves files below the static root through the store's cache.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	full, ok := resolveStatic(s.opts.StaticRoot, r.PathValue("file"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	content, err := s.store.ReadFile(full)
	if err != nil {
		s.logger.Debug("static file not served", "path", full, "error", err)
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType(full, content))
	if _, err := w.Write(content); err != nil {
		s.logger.Debug("failed to write static response", "error", err)
	}
}

// handleIndex serves the index document for every unrouted GET path.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var (
		content []byte
		err     error
	)
	switch {
	case s.opts.IndexPath != "":
		content, err = s.store.ReadFile(s.opts.IndexPath)
	case s.opts.Assets != nil:
		content, err = fs.ReadFile(s.opts.Assets, embeddedIndex)
	default:
		err = errors.New("no index configured")
	}
	if err != nil {
		s.logger.Error("failed to read index", "error", err)
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(content); err != nil {
		s.logger.Debug("failed to write index response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Current()
	if snap == nil {
		http.Error(w, "no data published", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(snap.Info()); err != nil {
		s.logger.Debug("failed to encode health response", "error", err)
	}
}

// handleSSE streams publish notifications via Server-Sent Events.
//
// Writes carry a deadline so a slow or vanished client cannot keep the
// handler from noticing shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	send := func(p store.Published) error {
		payload, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	if snap := s.store.Current(); snap != nil {
		if err := send(snap.Info()); err != nil {
			return
		}
	} else if err := rc.Flush(); err != nil {
		return
	}

	for {
		select {
		case p, ok := <-ch:
			if !ok {
				return
			}
			if err := send(p); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and, via BaseContext, on shutdown
			return
		}
	}
}

// resolveStatic maps a request path below /static/ to a file below root.
// It reports false for paths that would leave root.
func resolveStatic(root, requested string) (string, bool) {
	if root == "" || requested == "" {
		return "", false
	}
	cleaned := path.Clean("/" + requested)[1:]
	if cleaned == "" || !filepath.IsLocal(filepath.FromSlash(cleaned)) {
		return "", false
	}
	return filepath.Join(root, filepath.FromSlash(cleaned)), true
}

func contentType(name string, content []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(content)
}
