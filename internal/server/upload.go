package server

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tungarlabs/fuelbills/constants"
	"github.com/tungarlabs/fuelbills/internal/entity"
	"github.com/tungarlabs/fuelbills/internal/llm"
	"github.com/tungarlabs/fuelbills/internal/observability/metrics"
)

// uploadResult is the per-page (per-file for images) outcome returned to
// the caller.
type uploadResult struct {
	File  string          `json:"file"`
	Data  *llm.BillFields `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

type uploadResponse struct {
	Success bool           `json:"success"`
	Results []uploadResult `json:"results,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// staleUploadAge is how long an orphaned upload survives before the next
// request sweeps it.
const staleUploadAge = 24 * time.Hour

// handleUpload accepts multipart "files", processes each one to completion
// before the next begins, and reports per-file results. One bad file never
// aborts the batch.
func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.cleanupOldUploads()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, uploadResponse{
			Success: false,
			Error:   "file too large or malformed multipart request",
		})
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.writeJSON(w, http.StatusBadRequest, uploadResponse{
			Success: false,
			Error:   "no files uploaded",
		})
		return
	}

	var results []uploadResult
	for _, fh := range files {
		results = append(results, s.processUpload(r, fh.Filename, fh)...)
	}

	s.writeJSON(w, http.StatusOK, uploadResponse{Success: true, Results: results})
}

func (s *Service) processUpload(r *http.Request, name string, fh *multipart.FileHeader) []uploadResult {
	filename := secureFilename(name)
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		metrics.ObserveUpload(metrics.ResultError)
		return []uploadResult{{
			File:  filename,
			Error: "invalid file type; allowed types: PDF, PNG, JPG, JPEG",
		}}
	}
	if fh.Size == 0 {
		metrics.ObserveUpload(metrics.ResultError)
		return []uploadResult{{File: filename, Error: "file is empty"}}
	}

	dst := filepath.Join(s.cfg.UploadDir, filename)
	if err := s.saveUpload(fh, dst); err != nil {
		s.logger.Error("save upload failed", "file", filename, "error", err)
		metrics.ObserveUpload(metrics.ResultError)
		return []uploadResult{{File: filename, Error: "failed to store file: " + err.Error()}}
	}
	defer func() {
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("cleanup upload failed", "file", filename, "error", err)
		}
	}()

	ing, err := s.ingestor.IngestPath(r.Context(), dst)
	if err != nil {
		metrics.ObserveUpload(metrics.ResultError)
		return []uploadResult{{File: filename, Error: err.Error()}}
	}
	fileID, err := uuid.Parse(ing.FileID)
	if err != nil {
		metrics.ObserveUpload(metrics.ResultError)
		return []uploadResult{{File: filename, Error: err.Error()}}
	}

	recs, err := s.processor.ProcessFile(r.Context(), fileID)
	if err != nil {
		s.logger.Error("processing failed", "file", filename, "error", err)
		metrics.ObserveUpload(metrics.ResultError)
		out := make([]uploadResult, 0, len(recs)+1)
		for _, rec := range recs {
			out = append(out, uploadResult{File: rec.BillNo, Data: fieldsOf(rec)})
		}
		return append(out, uploadResult{File: filename, Error: err.Error()})
	}

	metrics.ObserveUpload(metrics.ResultSuccess)
	out := make([]uploadResult, 0, len(recs))
	for _, rec := range recs {
		out = append(out, uploadResult{File: rec.BillNo, Data: fieldsOf(rec)})
	}
	return out
}

func (s *Service) saveUpload(fh *multipart.FileHeader, dst string) error {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return err
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			s.logger.Warn("close multipart file", "error", cerr)
		}
	}()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// cleanupOldUploads removes files that previous failed runs left behind.
func (s *Service) cleanupOldUploads() {
	entries, err := os.ReadDir(s.cfg.UploadDir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-staleUploadAge)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.cfg.UploadDir, e.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn("cleanup old upload failed", "file", e.Name(), "error", err)
				continue
			}
			s.logger.Info("cleaned up old upload", "file", e.Name())
		}
	}
}

func (s *Service) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response failed", "error", err)
	}
}

func fieldsOf(rec *entity.BillRecord) *llm.BillFields {
	return &llm.BillFields{
		PumpName: rec.PumpName,
		BillDate: rec.BillDate,
		Product:  rec.Product,
		Volume:   rec.Volume,
		Rate:     rec.Rate,
		Total:    rec.Total,
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// secureFilename flattens a client-supplied name to a safe basename.
func secureFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	if base == "" || base == "." || base == ".." {
		return "upload"
	}
	return base
}
