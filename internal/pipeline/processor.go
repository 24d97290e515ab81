package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tungarlabs/fuelbills/constants"
	"github.com/tungarlabs/fuelbills/internal/document"
	"github.com/tungarlabs/fuelbills/internal/entity"
	"github.com/tungarlabs/fuelbills/internal/llm"
	"github.com/tungarlabs/fuelbills/internal/observability/metrics"
	"github.com/tungarlabs/fuelbills/internal/repository"
)

// Processor coordinates page loading then per-page model extraction for one
// file. Processing is strictly sequential: each page completes (model call,
// parse, persist) before the next begins.
type Processor struct {
	logger    *slog.Logger
	loader    *document.Loader
	extractor llm.FieldExtractor
	filesRepo repository.BillFileRepository
	jobsRepo  repository.ExtractJobRepository
	billsRepo repository.BillRepository
	modelName string
}

func NewProcessor(
	logger *slog.Logger,
	loader *document.Loader,
	extractor llm.FieldExtractor,
	filesRepo repository.BillFileRepository,
	jobsRepo repository.ExtractJobRepository,
	billsRepo repository.BillRepository,
	modelName string,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		loader:    loader,
		extractor: extractor,
		filesRepo: filesRepo,
		jobsRepo:  jobsRepo,
		billsRepo: billsRepo,
		modelName: modelName,
	}
}

// ProcessFile runs extraction for an ingested file: creates an extract job,
// loads the page bitmaps, sends each page to the model, and persists one
// bill record per page. Returns the records in page order.
func (p *Processor) ProcessFile(ctx context.Context, fileID uuid.UUID) ([]*entity.BillRecord, error) {
	row, err := p.filesRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	format := constants.MapExtToFormat(row.FileExt)
	if format == "" {
		return nil, fmt.Errorf("unsupported format: %s", row.FileExt)
	}

	job, err := p.jobsRepo.Start(ctx, row.ID, format)
	if err != nil {
		return nil, err
	}

	pages, err := p.loader.Load(ctx, row.SourcePath)
	if err != nil {
		_ = p.jobsRepo.FinishFailure(ctx, job.ID, err.Error())
		return nil, fmt.Errorf("load pages: %w", err)
	}
	if err := p.jobsRepo.MarkPagesOK(ctx, job.ID, len(pages)); err != nil {
		return nil, err
	}

	billNoBase := strings.TrimSuffix(row.Filename, filepath.Ext(row.Filename))

	var recs []*entity.BillRecord
	for _, page := range pages {
		start := time.Now()
		fields, _, err := p.extractor.ExtractFields(ctx, llm.ExtractRequest{
			ImageData:    page.Data,
			MIMEType:     page.MIMEType,
			FilenameHint: row.Filename,
		})
		if err != nil {
			metrics.ObserveExtraction(metrics.ResultError, time.Since(start))
			msg := fmt.Sprintf("page %d: %v", page.Number, err)
			_ = p.jobsRepo.FinishFailure(ctx, job.ID, msg)
			return recs, fmt.Errorf("extract page %d: %w", page.Number, err)
		}
		metrics.ObserveExtraction(metrics.ResultSuccess, time.Since(start))

		billNo := billNoBase
		if len(pages) > 1 {
			billNo = fmt.Sprintf("%s_page%d", billNoBase, page.Number)
		}

		rec, err := p.billsRepo.Insert(ctx, &entity.BillRecord{
			FileID:   row.ID,
			BillNo:   billNo,
			Page:     page.Number,
			PumpName: fields.PumpName,
			Product:  fields.Product,
			BillDate: fields.BillDate,
			Volume:   fields.Volume,
			Rate:     fields.Rate,
			Total:    fields.Total,
		})
		if err != nil {
			_ = p.jobsRepo.FinishFailure(ctx, job.ID, err.Error())
			return recs, fmt.Errorf("insert bill: %w", err)
		}
		recs = append(recs, rec)

		p.logger.Info("bill extracted",
			"job_id", job.ID, "bill_no", billNo,
			"pump", rec.PumpName, "date", rec.BillDate,
			"product", rec.Product, "total", rec.Total,
		)
	}

	if err := p.jobsRepo.FinishParsed(ctx, job.ID, p.modelName); err != nil {
		return recs, err
	}
	return recs, nil
}
