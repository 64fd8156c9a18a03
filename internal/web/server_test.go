package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdkevin0/htmlview"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = htmlview.NewLogger(io.Discard, false)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = &htmlview.MemoryClipboard{}
	}
	ts := httptest.NewServer(NewServer(opts))
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func do(t *testing.T, c *http.Client, method, url, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestDownloadServesFormattedHTML(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t)

	resp, _ := do(t, c, http.MethodPut, ts.URL+"/api/source", "<a><b></b></a>")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := do(t, c, http.MethodGet, ts.URL+"/api/download", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "formatted.html")
	assert.Equal(t, "<a>\n  <b>\n  </b>\n</a>", body)
}

func TestDownloadWithEmptySource(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t)

	resp, body := do(t, c, http.MethodGet, ts.URL+"/api/download", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "formatted.html")
	assert.Empty(t, body)
}

func TestToggleRoundTrip(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t)

	source := "<!DOCTYPE html><html></html>"
	do(t, c, http.MethodPut, ts.URL+"/api/source", source)

	_, body := do(t, c, http.MethodPost, ts.URL+"/api/toggle", "")
	var view viewResponse
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	assert.Equal(t, "formatted", view.Mode)
	assert.Equal(t, "<!DOCTYPE html>\n<html>\n</html>", view.Text)
	assert.Equal(t, 3, view.Summary.Segments)

	_, body = do(t, c, http.MethodPost, ts.URL+"/api/toggle", "")
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	assert.Equal(t, "raw", view.Mode)
	assert.Equal(t, source, view.Text)
}

func TestCopyFailuresStillAnswerOK(t *testing.T) {
	cb := &htmlview.MemoryClipboard{}
	ts := newTestServer(t, Options{Clipboard: cb})
	c := newClient(t)

	do(t, c, http.MethodPut, ts.URL+"/api/source", "<p>hi</p>")

	// raw mode has nothing selectable
	resp, body := do(t, c, http.MethodPost, ts.URL+"/api/copy", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var result htmlview.CopyResult
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Reason)
	assert.Empty(t, cb.Text())

	do(t, c, http.MethodPost, ts.URL+"/api/toggle", "")
	_, body = do(t, c, http.MethodPost, ts.URL+"/api/copy", "")
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.True(t, result.OK)
	assert.Equal(t, "<p>hi\n</p>", cb.Text())

	cb.FailWith(errors.New("permission denied"))
	resp, body = do(t, c, http.MethodPost, ts.URL+"/api/copy", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.False(t, result.OK)
	assert.Contains(t, result.Reason, "permission denied")

	// a failed copy leaves the session untouched
	_, body = do(t, c, http.MethodGet, ts.URL+"/api/view", "")
	var view viewResponse
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	assert.Equal(t, "formatted", view.Mode)
}

func TestSetSourceRejectsOversizedBody(t *testing.T) {
	ts := newTestServer(t, Options{MaxSourceBytes: 8})
	c := newClient(t)

	resp, _ := do(t, c, http.MethodPut, ts.URL+"/api/source", "<div>0123456789</div>")
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestPreviewIsSandboxed(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t)

	source := "<script>alert(1)</script><p>x</p>"
	do(t, c, http.MethodPut, ts.URL+"/api/source", source)

	resp, body := do(t, c, http.MethodGet, ts.URL+"/preview", "")
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "sandbox")
	assert.Equal(t, source, body)
}

func TestSessionsAreIsolatedPerClient(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := newClient(t)
	bob := newClient(t)

	do(t, alice, http.MethodPut, ts.URL+"/api/source", "<a></a>")

	_, body := do(t, bob, http.MethodGet, ts.URL+"/preview", "")
	assert.Empty(t, body)

	_, body = do(t, alice, http.MethodGet, ts.URL+"/preview", "")
	assert.Equal(t, "<a></a>", body)
}

func TestResetClearsSession(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t)

	do(t, c, http.MethodPut, ts.URL+"/api/source", "<a></a>")
	do(t, c, http.MethodPost, ts.URL+"/api/toggle", "")

	resp, _ := do(t, c, http.MethodDelete, ts.URL+"/api/session", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body := do(t, c, http.MethodGet, ts.URL+"/api/view", "")
	var view viewResponse
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	assert.Equal(t, "raw", view.Mode)
	assert.Empty(t, view.Text)
}

func TestIndexEscapesSource(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t)

	do(t, c, http.MethodPut, ts.URL+"/api/source", "<b>bold</b>")

	resp, body := do(t, c, http.MethodGet, ts.URL+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "&lt;b&gt;bold&lt;/b&gt;")
	assert.Contains(t, body, `sandbox="allow-scripts"`)
}

func TestMarkdownDownload(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t)

	do(t, c, http.MethodPut, ts.URL+"/api/source", "<h1>Title</h1>")

	resp, body := do(t, c, http.MethodGet, ts.URL+"/api/download/markdown", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "formatted.md")
	assert.Contains(t, body, "# Title")
}

func TestSessionStoreSlidingExpiry(t *testing.T) {
	st := newSessionStore(htmlview.NewDefaultConfig().SessionTTL)
	id, entry := st.create()

	got, ok := st.get(id)
	require.True(t, ok)
	assert.Same(t, entry, got)
	assert.Equal(t, 1, st.count())

	_, ok = st.get("unknown")
	assert.False(t, ok)
}

func putSource(t *testing.T, c *http.Client, url, seq, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url+"/api/source", strings.NewReader(body))
	require.NoError(t, err)
	if seq != "" {
		req.Header.Set(sourceSeqHeader, seq)
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestSetSourceIgnoresOutOfOrderRevisions(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t)

	// revision 2 lands before revision 1
	require.Equal(t, http.StatusNoContent, putSource(t, c, ts.URL, "2", "<b></b>").StatusCode)
	require.Equal(t, http.StatusNoContent, putSource(t, c, ts.URL, "1", "<a></a>").StatusCode)

	_, body := do(t, c, http.MethodGet, ts.URL+"/preview", "")
	assert.Equal(t, "<b></b>", body)

	_, body = do(t, c, http.MethodGet, ts.URL+"/api/download", "")
	assert.Equal(t, "<b>\n</b>", body)

	putSource(t, c, ts.URL, "3", "<c></c>")
	_, body = do(t, c, http.MethodGet, ts.URL+"/preview", "")
	assert.Equal(t, "<c></c>", body)

	// unnumbered writes always apply
	putSource(t, c, ts.URL, "", "<d></d>")
	_, body = do(t, c, http.MethodGet, ts.URL+"/preview", "")
	assert.Equal(t, "<d></d>", body)
}

func TestSetSourceRejectsMalformedRevision(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t)

	resp := putSource(t, c, ts.URL, "abc", "<a></a>")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIndexResumesRevisionCounter(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t)

	putSource(t, c, ts.URL, "7", "<a></a>")

	_, body := do(t, c, http.MethodGet, ts.URL+"/", "")
	assert.Regexp(t, `let seq =\s*7\s*;`, body)
	assert.Contains(t, body, "await pending;")
	assert.Contains(t, body, "navigator.clipboard.writeText(view.text)")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	srv := NewServer(Options{Logger: htmlview.NewLogger(io.Discard, false)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, "127.0.0.1:0", time.Second)
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAndServeReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := NewServer(Options{Logger: htmlview.NewLogger(io.Discard, false)})
	err = srv.ListenAndServe(context.Background(), ln.Addr().String(), time.Second)
	assert.Error(t, err)
}
