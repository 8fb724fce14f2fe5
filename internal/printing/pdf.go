package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var ErrNoPages = errors.New("print document has no pages")

var disablePDFConfigDir sync.Once

// PDFComposer buffers card pages in a private temporary directory and
// writes them as one PDF, one card per page at the card's physical size.
type PDFComposer struct {
	dir      string
	pages    []string
	widthPt  float64
	heightPt float64
	closed   bool
}

// NewPDFComposer creates the page buffer under parent (os.TempDir when empty).
// Close must be called to remove it.
func NewPDFComposer(parent string, g CardGeometry) (*PDFComposer, error) {
	disablePDFConfigDir.Do(api.DisableConfigDir)

	dir, err := os.MkdirTemp(parent, "retroframe-print-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create print buffer: %w", err)
	}
	w, h := g.PageSizePoints()
	return &PDFComposer{dir: dir, widthPt: w, heightPt: h}, nil
}

// AddPage stores one encoded PNG card.
func (c *PDFComposer) AddPage(ctx context.Context, png []byte) error {
	if c.closed {
		return fmt.Errorf("print buffer already closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(c.dir, fmt.Sprintf("page-%05d.png", len(c.pages)))
	if err := os.WriteFile(path, png, 0o600); err != nil {
		return fmt.Errorf("failed to buffer page %d: %w", len(c.pages), err)
	}
	c.pages = append(c.pages, path)
	return nil
}

// PageCount returns the number of buffered pages.
func (c *PDFComposer) PageCount() int {
	return len(c.pages)
}

// Compose writes the buffered pages into w as one document.
func (c *PDFComposer) Compose(w io.Writer) error {
	if c.closed {
		return fmt.Errorf("print buffer already closed")
	}
	if len(c.pages) == 0 {
		return ErrNoPages
	}

	imp, err := api.Import(fmt.Sprintf("dimensions:%s %s, position:c, scalefactor:1.0 rel",
		formatPoints(c.widthPt), formatPoints(c.heightPt)), types.POINTS)
	if err != nil {
		return fmt.Errorf("invalid page import settings: %w", err)
	}

	files := make([]*os.File, 0, len(c.pages))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	readers := make([]io.Reader, 0, len(c.pages))
	for _, path := range c.pages {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open buffered page: %w", err)
		}
		files = append(files, f)
		readers = append(readers, f)
	}

	if err := api.ImportImages(nil, w, readers, imp, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("failed to compose print document: %w", err)
	}
	return nil
}

// Close removes the page buffer. Safe to call more than once.
func (c *PDFComposer) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := os.RemoveAll(c.dir); err != nil {
		slog.Warn("Printing: failed to remove print buffer", "dir", c.dir, "error", err)
		return err
	}
	return nil
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
