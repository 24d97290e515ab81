package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/tungarlabs/fuelbills/internal/entity"
	"github.com/tungarlabs/fuelbills/internal/repository"
)

// Headers is the fixed column order of every export: the bill number
// followed by the six extracted fields. Order never changes.
var Headers = []string{
	"Fuel Bill No",
	"Petrol Pump Name",
	"Date",
	"Product",
	"Volume (L)",
	"Rate per Litre",
	"Total Amount (Rs)",
}

// Service produces XLSX workbooks and PDF reports of stored bill records.
type Service struct {
	billsRepo repository.BillRepository
	logger    *slog.Logger
}

func NewService(billsRepo repository.BillRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{billsRepo: billsRepo, logger: logger}
}

// ExportBillsXLSX returns an XLSX workbook (as bytes) for the given date
// window. If only from is provided -> from..today (inclusive). If only to is
// provided -> beginning..to. If neither -> all bills. Rows come out in
// input-file order, one row per successfully processed page.
func (s *Service) ExportBillsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	recs, err := s.listWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Fuel Bills"
	f.SetSheetName("Sheet1", sheet)

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for row, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.BillNo)
		write(2, r.PumpName)
		write(3, r.BillDate)
		write(4, r.Product)
		write(5, r.Volume)
		write(6, r.Rate)
		write(7, r.Total)
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 24) // bill no
	_ = f.SetColWidth(sheet, "B", "B", 32) // pump name
	_ = f.SetColWidth(sheet, "C", "C", 14) // date
	_ = f.SetColWidth(sheet, "D", "D", 10) // product
	_ = f.SetColWidth(sheet, "E", "G", 16) // volume, rate, total

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportBillsPDF renders a tabular PDF report for the same window.
func (s *Service) ExportBillsPDF(ctx context.Context, from, to *time.Time) ([]byte, error) {
	recs, err := s.listWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Fuel Bill Extraction Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Bills: %d", len(recs)))
	pdf.Ln(8)

	widths := []float64{52, 58, 26, 22, 26, 28, 32}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range Headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, r := range recs {
		cells := []string{r.BillNo, r.PumpName, r.BillDate, r.Product, r.Volume, r.Rate, r.Total}
		for i, c := range cells {
			align := "L"
			if i >= 4 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf write: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) listWindow(ctx context.Context, from, to *time.Time) ([]*entity.BillRecord, error) {
	// Normalize dates (date-only, UTC)
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}

	recs, err := s.billsRepo.ListBills(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	return recs, nil
}
