// Package preview serves converted slide HTML to an embedded or external
// browser. The shell page holds an iframe whose content is injected over a
// websocket; nothing is fetched through the placeholder route. Local files
// the deck references are served under AssetPrefix, since a page loaded over
// http may not read file: URLs.
package preview

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"presentat/internal/logger"
)

// PlaceholderPath is the fixed address the preview document is loaded under
const PlaceholderPath = "/preview/"

// AssetPrefix is the route local files referenced by the deck are served under
const AssetPrefix = "/local/"

// FrameHeader carries the ID of the frame returned by /current
const FrameHeader = "X-Presentat-Frame"

const writeTimeout = 5 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 65536,
	// only the loopback listener is reachable
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame is one rendered document
type Frame struct {
	// ID correlates the frame with the conversion that produced it
	ID   string
	HTML string
	// AssetRoots are the directories whose files the frame may load
	AssetRoots []string
}

// Server is the preview renderer. Render may be called from any goroutine;
// every connected client receives the latest HTML.
type Server struct {
	addr   string
	logger logger.Logger

	mu       sync.Mutex
	current  Frame
	renders  uint64
	clients  map[*client]struct{}
	listener net.Listener
	srv      *http.Server
}

type client struct {
	updates chan string
}

// NewServer creates a server that will listen on addr once started
func NewServer(addr string, log logger.Logger) *Server {
	return &Server{
		addr:    addr,
		logger:  log,
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the routes of the preview server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleShell)
	mux.HandleFunc(PlaceholderPath, handlePlaceholder)
	mux.HandleFunc("/current", s.handleCurrent)
	mux.HandleFunc(AssetPrefix, s.handleAsset)
	mux.HandleFunc("/ws", s.handleSocket)
	return noCache(mux)
}

// Start binds the listener and serves in the background
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("preview listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.listener = ln
	s.srv = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("PreviewServer", err, map[string]interface{}{"addr": ln.Addr().String()})
		}
	}()

	s.logger.Info("PreviewServer", "preview server started", map[string]interface{}{
		"url": s.URL(),
	})
	return nil
}

// URL returns the address of the shell page, empty before Start
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String() + "/"
}

// Render replaces the displayed content with frame. References to local
// files are pointed at AssetPrefix.
func (s *Server) Render(frame Frame) {
	htmlText := LocalizeAssets(frame.HTML)
	roots := make([]string, 0, len(frame.AssetRoots))
	for _, root := range frame.AssetRoots {
		if root != "" {
			roots = append(roots, filepath.Clean(root))
		}
	}

	s.mu.Lock()
	s.current = Frame{ID: frame.ID, HTML: htmlText, AssetRoots: roots}
	s.renders++
	for c := range s.clients {
		offer(c.updates, htmlText)
	}
	n := len(s.clients)
	s.mu.Unlock()

	s.logger.Debug("PreviewServer", "content rendered", map[string]interface{}{
		"frame_id": frame.ID,
		"bytes":    len(htmlText),
		"clients":  n,
	})
}

// Current returns the HTML most recently rendered
func (s *Server) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.HTML
}

// CurrentID returns the ID of the frame most recently rendered
func (s *Server) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.ID
}

// Renders returns how many times Render has been called
func (s *Server) Renders() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders
}

// Shutdown closes the listener and every client connection
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	for c := range s.clients {
		close(c.updates)
		delete(s.clients, c)
	}
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// offer replaces whatever is queued for a client with the latest content
func offer(ch chan string, htmlText string) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- htmlText:
	default:
	}
}

func (s *Server) subscribe() (*client, string) {
	c := &client{updates: make(chan string, 1)}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
	return c, s.current.HTML
}

func (s *Server) unsubscribe(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.updates)
	}
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warning("PreviewServer", "websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	c, initial := s.subscribe()
	defer s.unsubscribe(c)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(content string) error {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(websocket.TextMessage, []byte(content))
	}

	if err := send(initial); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case content, ok := <-c.updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(time.Second))
				return
			}
			if err := send(content); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, shellPage)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	frame := s.current
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(FrameHeader, frame.ID)
	fmt.Fprint(w, frame.HTML)
}

// handleAsset serves a regular file below one of the current asset roots
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, AssetPrefix)
	path := filepath.Clean(filepath.FromSlash("/" + name))
	if filepath.VolumeName(name) != "" {
		path = filepath.Clean(filepath.FromSlash(name))
	}

	if !s.assetAllowed(path) {
		s.logger.Debug("PreviewServer", "asset outside document roots", map[string]interface{}{"path": path})
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) assetAllowed(path string) bool {
	s.mu.Lock()
	roots := s.current.AssetRoots
	s.mu.Unlock()

	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || filepath.IsAbs(rel) {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

var fileReference = regexp.MustCompile(`((?:src|href|poster)=["']?|url\((?:&quot;|["'])?)file://(?:localhost)?/`)

// LocalizeAssets points file: URLs in attributes and CSS url() values at
// AssetPrefix. The percent-encoded path is kept as it is.
func LocalizeAssets(htmlText string) string {
	return fileReference.ReplaceAllString(htmlText, "${1}"+AssetPrefix)
}

// handlePlaceholder always answers so the address never fails to load
func handlePlaceholder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

// ErrorPage renders message as a standalone HTML document
func ErrorPage(title, message string) string {
	return fmt.Sprintf(errorPageTemplate, html.EscapeString(title), html.EscapeString(message))
}

const errorPageTemplate = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>%[1]s</title>
<style>body{font-family:sans-serif;margin:2em;color:#b00020}pre{white-space:pre-wrap;color:#333}</style>
</head><body><h2>%[1]s</h2><pre>%[2]s</pre></body></html>`

const shellPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Presentat preview</title>
<style>html,body{margin:0;height:100%}iframe{border:0;width:100%;height:100%}</style>
</head><body>
<iframe id="deck" src="/preview/"></iframe>
<script>
(function () {
  var frame = document.getElementById("deck");
  function connect() {
    var ws = new WebSocket("ws://" + location.host + "/ws");
    ws.onmessage = function (ev) { frame.srcdoc = ev.data; };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }
  connect();
})();
</script>
</body></html>`
