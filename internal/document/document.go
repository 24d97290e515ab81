// Package document loads bill sources as page bitmaps for the multimodal
// model: images pass through as a single page, PDFs yield one bitmap per
// page (scanned bills embed the scan as a full-page image).
package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tungarlabs/fuelbills/constants"
)

// Page is one bitmap ready to send to the model.
type Page struct {
	Number   int // 1-based
	MIMEType string
	Data     []byte
}

type Config struct {
	MaxFileSize int64 // bytes; 0 -> constants.MaxUploadBytesDefault
	Logger      *slog.Logger
}

// Loader turns a source file into its pages.
type Loader struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) *Loader {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = constants.MaxUploadBytesDefault
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loader{cfg: cfg, logger: cfg.Logger}
}

// Detect returns the pipeline format for a path based on its extension.
func (l *Loader) Detect(path string) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	format := constants.MapExtToFormat(ext)
	if format == "" {
		return "", fmt.Errorf("unsupported format: %q", ext)
	}
	return format, nil
}

// Load reads a file and returns its pages in page order.
func (l *Loader) Load(ctx context.Context, path string) ([]Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("file is empty: %s", path)
	}
	if info.Size() > l.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), l.cfg.MaxFileSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, err := l.Detect(path)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("loading document", "path", path, "format", format)

	switch format {
	case constants.IMAGE:
		return l.loadImage(path)
	case constants.PDF:
		return l.loadPDF(path)
	default:
		return nil, fmt.Errorf("no loader for format: %s", format)
	}
}

func (l *Loader) loadImage(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	mime := constants.MIMEForExt(filepath.Ext(path))
	return []Page{{Number: 1, MIMEType: mime, Data: data}}, nil
}
