package htmlview

import (
	"fmt"
	"os"
	"path/filepath"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const (
	// DownloadFilename is proposed for every HTML download.
	DownloadFilename = "formatted.html"
	// DownloadMIMEType is the media type of DownloadFilename.
	DownloadMIMEType = "text/html"

	MarkdownFilename = "formatted.md"
	MarkdownMIMEType = "text/markdown"
)

// Export is a file produced on demand by an export action.
type Export struct {
	Filename string
	MIMEType string
	Content  string
}

// ContentType returns the MIME type with an explicit UTF-8 charset, suitable
// for an HTTP Content-Type header.
func (e Export) ContentType() string {
	return e.MIMEType + "; charset=utf-8"
}

// Download packages the formatted source as formatted.html. It always
// succeeds, including for empty input.
func Download(source string) Export {
	return Export{
		Filename: DownloadFilename,
		MIMEType: DownloadMIMEType,
		Content:  Format(source),
	}
}

// MarkdownExport converts the raw source to Markdown as formatted.md.
func MarkdownExport(source string) (Export, error) {
	markdown, err := htmltomarkdown.ConvertString(source)
	if err != nil {
		return Export{}, NewConvertError("failed to convert HTML to markdown", err)
	}
	return Export{
		Filename: MarkdownFilename,
		MIMEType: MarkdownMIMEType,
		Content:  markdown,
	}, nil
}

// ExportWriter saves exports into a local directory.
type ExportWriter struct {
	rootDir string
}

// NewExportWriter creates a writer targeting rootDir.
func NewExportWriter(rootDir string) *ExportWriter {
	return &ExportWriter{rootDir: rootDir}
}

// RootDir returns the target directory.
func (ew *ExportWriter) RootDir() string {
	return ew.rootDir
}

// EnsureRoot creates the target directory if missing.
func (ew *ExportWriter) EnsureRoot() error {
	if ew == nil {
		return fmt.Errorf("export writer is nil")
	}
	if ew.rootDir == "" {
		return NewValidationError("export dir is empty")
	}
	if err := os.MkdirAll(ew.rootDir, 0755); err != nil {
		return NewIOError("failed to create export dir", err)
	}
	return nil
}

// Write stores e under its proposed filename, replacing any existing file,
// and returns the written path.
func (ew *ExportWriter) Write(e Export) (string, error) {
	if err := ew.EnsureRoot(); err != nil {
		return "", err
	}
	if e.Filename == "" {
		return "", NewValidationError("export filename is empty")
	}

	dstPath := filepath.Join(ew.rootDir, e.Filename)
	tmpFile, err := os.CreateTemp(ew.rootDir, "."+e.Filename+".*")
	if err != nil {
		return "", NewIOError("failed to create temp file", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(e.Content); err != nil {
		tmpFile.Close()
		return "", NewIOError("failed to write export content", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", NewIOError("failed to close temp file", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return "", NewIOError("failed to set export file mode", err)
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		return "", NewIOError("failed to move export into place", err)
	}
	return dstPath, nil
}
