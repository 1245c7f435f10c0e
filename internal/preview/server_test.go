package preview

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presentat/internal/logger"
)

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	return string(data)
}

func TestPlaceholderAlwaysAnswersEmpty(t *testing.T) {
	s := NewServer("127.0.0.1:0", logger.Nop())
	s.Render(Frame{HTML: "<html>deck</html>"})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for _, path := range []string{"/preview/", "/preview/index.html", "/preview/assets/img.png"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Empty(t, body, path)
	}
}

func TestShellAndCurrent(t *testing.T) {
	s := NewServer("127.0.0.1:0", logger.Nop())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `src="/preview/"`)
	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", resp.Header.Get("Cache-Control"))

	resp, err = http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	s.Render(Frame{ID: "frame-1", HTML: "<html>OK</html>"})
	resp, err = http.Get(ts.URL + "/current")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "<html>OK</html>", string(body))
	assert.Equal(t, "frame-1", resp.Header.Get(FrameHeader))
	assert.Equal(t, "frame-1", s.CurrentID())
}

func TestSocketReceivesCurrentThenUpdates(t *testing.T) {
	s := NewServer("127.0.0.1:0", logger.Nop())
	s.Render(Frame{HTML: "<html>first</html>"})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dial(t, ts)
	assert.Equal(t, "<html>first</html>", readText(t, conn))

	s.Render(Frame{HTML: "<html>second</html>"})
	assert.Equal(t, "<html>second</html>", readText(t, conn))
	assert.EqualValues(t, 2, s.Renders())
}

func TestShutdownClosesClients(t *testing.T) {
	s := NewServer("127.0.0.1:0", logger.Nop())
	require.NoError(t, s.Start(context.Background()))
	require.True(t, strings.HasPrefix(s.URL(), "http://127.0.0.1:"))

	url := "ws" + strings.TrimPrefix(s.URL(), "http") + "ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readText(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestErrorPageEscapes(t *testing.T) {
	page := ErrorPage("Conversion failed", "exit code: 1\n<script>alert(1)</script>")
	assert.Contains(t, page, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "<h2>Conversion failed</h2>")
}

func get(t *testing.T, target string) (int, string) {
	t.Helper()
	resp, err := http.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRenderedLocalImagesAreServed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX paths")
	}
	deckDir := t.TempDir()
	img := filepath.Join(deckDir, "img one#1.png")
	require.NoError(t, os.WriteFile(img, []byte("png-bytes"), 0o644))
	secret := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))

	s := NewServer("127.0.0.1:0", logger.Nop())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	src := (&url.URL{Scheme: "file", Path: img}).String()
	s.Render(Frame{
		ID:         "frame-2",
		HTML:       `<section><img src="` + src + `" alt="x"></section>`,
		AssetRoots: []string{deckDir},
	})

	current := s.Current()
	assert.NotContains(t, current, "file://")
	start := strings.Index(current, AssetPrefix)
	require.GreaterOrEqual(t, start, 0, current)
	end := strings.Index(current[start:], `"`)
	require.Greater(t, end, 0)
	mapped := current[start : start+end]

	status, body := get(t, ts.URL+mapped)
	assert.Equal(t, http.StatusOK, status, mapped)
	assert.Equal(t, "png-bytes", body)

	status, _ = get(t, ts.URL+AssetPrefix+strings.TrimPrefix(filepath.ToSlash(secret), "/"))
	assert.Equal(t, http.StatusNotFound, status, "files outside the asset roots are not served")

	status, _ = get(t, ts.URL+AssetPrefix+strings.TrimPrefix(filepath.ToSlash(deckDir), "/"))
	assert.Equal(t, http.StatusNotFound, status, "directories are not listed")

	s.Render(Frame{ID: "frame-3", HTML: "<html>no roots</html>"})
	status, _ = get(t, ts.URL+mapped)
	assert.Equal(t, http.StatusNotFound, status, "roots follow the latest frame")
}

func TestLocalizeAssets(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`<img src="file:///d/a%20b.png">`, `<img src="/local/d/a%20b.png">`},
		{`<img src='file:///d/a.png'>`, `<img src='/local/d/a.png'>`},
		{`<a href="file://localhost/d/doc.pdf">`, `<a href="/local/d/doc.pdf">`},
		{
			`<figure style="background-image:url(&quot;file:///d/bg.jpg&quot;);">`,
			`<figure style="background-image:url(&quot;/local/d/bg.jpg&quot;);">`,
		},
		{`<img src="https://example.com/a.png">`, `<img src="https://example.com/a.png">`},
		{`<p>see file:///d/notes.txt</p>`, `<p>see file:///d/notes.txt</p>`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LocalizeAssets(tc.in), tc.in)
	}
}
