// Package web serves the HTML viewer widget and its JSON API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fdkevin0/htmlview"
)

// Options configures a Server.
type Options struct {
	SessionTTL     time.Duration
	AllowedOrigins []string
	// MaxSourceBytes caps PUT /api/source bodies; zero disables the limit.
	MaxSourceBytes int64
	Clipboard      htmlview.Clipboard
	Logger         *slog.Logger
}

// Server is the widget's HTTP handler.
type Server struct {
	opts     Options
	logger   *slog.Logger
	sessions *sessionStore
	router   chi.Router
}

// sourceSeqHeader carries the page's edit counter so late PUTs cannot
// overwrite newer text.
const sourceSeqHeader = "X-Source-Seq"

// viewResponse is the JSON form of a rendered view.
type viewResponse struct {
	Mode    string           `json:"mode"`
	Text    string           `json:"text"`
	Summary htmlview.Summary `json:"summary"`
}

// NewServer builds a Server, filling unset options with defaults.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = htmlview.NewDefaultConfig().SessionTTL
	}
	if opts.Clipboard == nil {
		opts.Clipboard = htmlview.SystemClipboard{}
	}

	s := &Server{
		opts:     opts,
		logger:   opts.Logger,
		sessions: newSessionStore(opts.SessionTTL),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogging(s.logger))
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/", s.handleIndex)
	r.Get("/preview", s.handlePreview)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})

	r.Route("/api", func(r chi.Router) {
		r.Put("/source", s.handleSetSource)
		r.Post("/toggle", s.handleToggle)
		r.Get("/view", s.handleView)
		r.Delete("/session", s.handleReset)
		r.Get("/download", s.handleDownload)
		r.Get("/download/markdown", s.handleDownloadMarkdown)
		r.Post("/copy", s.handleCopy)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("widget listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down widget", "timeout", shutdownTimeout)
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.resolve(w, r)

	var data pageData
	entry.with(func(sess *htmlview.Session) {
		view := sess.Render()
		data = pageData{
			Seq:       entry.seq,
			Source:    sess.Source(),
			Formatted: view.Mode == htmlview.ModeFormatted,
			Text:      view.Text,
			Summary:   htmlview.Summarize(sess.Source()),
		}
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("failed to render widget page", "error", err)
	}
}

// handlePreview serves the raw source for the sandboxed frame. The CSP
// sandbox directive isolates it even when opened outside the iframe.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.resolve(w, r)

	var source string
	entry.with(func(sess *htmlview.Session) {
		source = sess.Source()
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "sandbox allow-scripts")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, source)
}

func (s *Server) handleSetSource(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.resolve(w, r)

	var seq uint64
	if raw := r.Header.Get(sourceSeqHeader); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid "+sourceSeqHeader, http.StatusBadRequest)
			return
		}
		seq = parsed
	}

	body := r.Body
	if s.opts.MaxSourceBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxSourceBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "source too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read source", http.StatusBadRequest)
		return
	}

	if !entry.setSource(seq, string(data)) {
		s.logger.Debug("stale source ignored", "seq", seq, "current", entry.revision())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.resolve(w, r)

	var resp viewResponse
	entry.with(func(sess *htmlview.Session) {
		sess.ToggleView()
		resp = renderView(sess)
	})
	s.writeJSON(w, resp)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.resolve(w, r)

	var resp viewResponse
	entry.with(func(sess *htmlview.Session) {
		resp = renderView(sess)
	})
	s.writeJSON(w, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.resolve(w, r)
	entry.with(func(sess *htmlview.Session) {
		sess.Reset()
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.resolve(w, r)

	var export htmlview.Export
	entry.with(func(sess *htmlview.Session) {
		export = htmlview.Download(sess.Source())
	})
	writeExport(w, export)
}

func (s *Server) handleDownloadMarkdown(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.resolve(w, r)

	var source string
	entry.with(func(sess *htmlview.Session) {
		source = sess.Source()
	})

	export, err := htmlview.MarkdownExport(source)
	if err != nil {
		s.logger.Error("markdown export failed", "error", err)
		http.Error(w, "markdown export failed", http.StatusInternalServerError)
		return
	}
	writeExport(w, export)
}

// handleCopy writes to the clipboard of the machine running the server. The
// page copies through the browser instead. It always answers 200: a failed
// copy is logged and otherwise ignored.
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.resolve(w, r)

	var result htmlview.CopyResult
	entry.with(func(sess *htmlview.Session) {
		result = htmlview.Copy(r.Context(), s.opts.Clipboard, sess)
	})
	if !result.OK {
		s.logger.Warn("copy to clipboard failed", "reason", result.Reason)
	}
	s.writeJSON(w, result)
}

func renderView(sess *htmlview.Session) viewResponse {
	view := sess.Render()
	return viewResponse{
		Mode:    view.Mode.String(),
		Text:    view.Text,
		Summary: htmlview.Summarize(sess.Source()),
	}
}

func writeExport(w http.ResponseWriter, e htmlview.Export) {
	w.Header().Set("Content-Type", e.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": e.Filename,
	}))
	io.WriteString(w, e.Content)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
