package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tungarlabs/fuelbills/internal/observability/metrics"
)

const exportDateLayout = "2006-01-02"

// handleExportXLSX streams all stored bills, optionally windowed by
// ?from=YYYY-MM-DD&to=YYYY-MM-DD, as an XLSX attachment.
func (s *Service) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, uploadResponse{Success: false, Error: err.Error()})
		return
	}

	data, err := s.exporter.ExportBillsXLSX(r.Context(), from, to)
	if err != nil {
		s.logger.Error("server.export.xlsx failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, uploadResponse{Success: false, Error: "export failed"})
		return
	}
	metrics.ObserveExport("xlsx")

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename("xlsx")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleExportPDF is the same window query rendered as a PDF statement.
func (s *Service) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, uploadResponse{Success: false, Error: err.Error()})
		return
	}

	data, err := s.exporter.ExportBillsPDF(r.Context(), from, to)
	if err != nil {
		s.logger.Error("server.export.pdf failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, uploadResponse{Success: false, Error: "export failed"})
		return
	}
	metrics.ObserveExport("pdf")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename("pdf")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseWindow(r *http.Request) (from, to *time.Time, err error) {
	if v := r.URL.Query().Get("from"); v != "" {
		t, perr := time.Parse(exportDateLayout, v)
		if perr != nil {
			return nil, nil, fmt.Errorf("invalid from date %q, expected YYYY-MM-DD", v)
		}
		from = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, perr := time.Parse(exportDateLayout, v)
		if perr != nil {
			return nil, nil, fmt.Errorf("invalid to date %q, expected YYYY-MM-DD", v)
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("to date precedes from date")
	}
	return from, to, nil
}

func exportFilename(ext string) string {
	return "fuel_bills_" + time.Now().Format("20060102_150405") + "." + ext
}
