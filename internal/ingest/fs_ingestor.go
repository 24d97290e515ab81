package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tungarlabs/fuelbills/constants"
	"github.com/tungarlabs/fuelbills/internal/repository"
)

// IngestionResult is the per-file outcome of an ingestion run.
type IngestionResult struct {
	SourcePath   string    `json:"source_path"`
	FileID       string    `json:"file_id,omitempty"`
	HashHex      string    `json:"hash_hex,omitempty"`
	FileExt      string    `json:"file_ext,omitempty"`
	Deduplicated bool      `json:"deduplicated,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at,omitempty"`
	Err          string    `json:"error,omitempty"`
}

// DirStats aggregates a directory run.
type DirStats struct {
	Scanned      int `json:"scanned"`
	Matched      int `json:"matched"`
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	Deduplicated int `json:"deduplicated"`
}

// FSIngestor reads bill documents from the local filesystem, hashing each
// one for dedupe before it is registered.
type FSIngestor struct {
	FilesRepo repository.BillFileRepository
	logger    *slog.Logger
}

func NewFSIngestor(files repository.BillFileRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{FilesRepo: files, logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		i.logger.Error("open error", "path", abs, "error", err)
		return out, err
	}
	defer func(f *os.File) {
		if cerr := f.Close(); cerr != nil {
			i.logger.Warn("close file error", "path", abs, "error", cerr)
		}
	}(f)

	st, err := f.Stat()
	if err != nil {
		return out, err
	}
	if st.Size() == 0 {
		return out, errors.New("file is empty")
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		i.logger.Error("hash error", "path", abs, "error", err)
		return out, err
	}
	sum := h.Sum(nil)
	now := time.Now().UTC()

	row, dedup, err := i.FilesRepo.UpsertByHash(ctx, abs, filepath.Base(abs), ext, st.Size(), sum, now)
	if err != nil {
		return out, err
	}

	out = IngestionResult{
		SourcePath:   row.SourcePath,
		FileID:       row.ID.String(),
		Deduplicated: dedup,
		HashHex:      hex.EncodeToString(sum),
		FileExt:      row.FileExt,
		UploadedAt:   row.UploadedAt,
	}
	return out, nil
}

// IngestDirectory walks root in lexical order, skips hidden entries if
// requested, and calls IngestPath for each matching file. Returns per-file
// results + aggregate stats. Lexical order is what fixes the input-file
// order of the final spreadsheet.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	// WalkDir visits entries in lexical order, so results are already in
	// the order the export should reproduce.
	return results, stats, err
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
