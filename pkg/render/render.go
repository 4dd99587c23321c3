package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

type Section struct {
	Name    string
	Content string
}

// Document is the renderer's read-only view of a document.
type Document struct {
	ID       uuid.UUID
	Title    string
	Sections []Section
}

// Artifact is an opaque handle to a rendered file.
type Artifact struct {
	Handle   string `json:"handle"`
	Format   string `json:"format"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Renderer turns a document into a file in the requested format.
// Implementations must honour ctx cancellation.
type Renderer interface {
	Render(ctx context.Context, doc Document, format string) (*Artifact, error)
}

// Sweeper is implemented by renderers that keep artifacts on disk.
// RemoveBefore deletes artifacts last written before cutoff and reports how
// many went. Per-file failures are joined into the error; the rest of the
// sweep still runs.
type Sweeper interface {
	RemoveBefore(cutoff time.Time) (int, error)
}

// TextRenderer lays documents out as plain text. It stands in for the real
// PDF/DOCX converters, which live outside this service.
type TextRenderer struct {
	dir     string
	formats map[string]bool
	now     func() time.Time
}

func NewTextRenderer(dir string, formats ...string) (*TextRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	allowed := make(map[string]bool, len(formats))
	for _, f := range formats {
		allowed[strings.ToLower(f)] = true
	}
	return &TextRenderer{dir: dir, formats: allowed, now: time.Now}, nil
}

func (r *TextRenderer) Render(ctx context.Context, doc Document, format string) (*Artifact, error) {
	format = strings.ToLower(format)
	if len(r.formats) > 0 && !r.formats[format] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body := Layout(doc)

	filename := fmt.Sprintf("%s.%s", Slug(doc.Title), format)
	path := filepath.Join(r.dir, fmt.Sprintf("%s-%d-%s", doc.ID, r.now().UnixNano(), filename))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	// A deadline that passed while writing still counts as a failed export.
	if err := ctx.Err(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return &Artifact{
		Handle:   path,
		Format:   format,
		Filename: filename,
		Size:     int64(len(body)),
	}, nil
}

func (r *TextRenderer) RemoveBefore(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, fmt.Errorf("list artifacts: %w", err)
	}

	var errs []error
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// Layout renders the title followed by each section heading and its content.
func Layout(doc Document) string {
	var b strings.Builder
	b.WriteString(doc.Title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len([]rune(doc.Title))))
	b.WriteString("\n")
	for _, s := range doc.Sections {
		b.WriteString("\n")
		b.WriteString(strings.ToUpper(s.Name))
		b.WriteString("\n")
		b.WriteString(s.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// Slug makes a filesystem-safe file stem out of a title.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "document"
	}
	return out
}
