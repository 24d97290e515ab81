package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/tungarlabs/fuelbills/constants"
	"github.com/tungarlabs/fuelbills/internal/document"
	"github.com/tungarlabs/fuelbills/internal/ingest"
	"github.com/tungarlabs/fuelbills/internal/llm"
	"github.com/tungarlabs/fuelbills/internal/repository"
)

// fakeExtractor returns canned fields, or fails after a set page count.
type fakeExtractor struct {
	fields   llm.BillFields
	calls    int
	failFrom int // 0 disables
}

func (f *fakeExtractor) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.BillFields, []byte, error) {
	f.calls++
	if f.failFrom > 0 && f.calls >= f.failFrom {
		return llm.BillFields{}, nil, errors.New("model unavailable")
	}
	return f.fields, nil, nil
}

type fixture struct {
	store     *repository.Store
	jobsRepo  repository.ExtractJobRepository
	billsRepo repository.BillRepository
	ingestor  *ingest.FSIngestor
	proc      *Processor
}

func newFixture(t *testing.T, ext llm.FieldExtractor) *fixture {
	t.Helper()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "test.db")
	store, err := repository.OpenSQLite(ctx, dsn, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(store.Close)

	filesRepo := repository.NewBillFileRepository(store, nil)
	jobsRepo := repository.NewExtractJobRepository(store, nil)
	billsRepo := repository.NewBillRepository(store, nil)
	loader := document.New(document.Config{})

	return &fixture{
		store:     store,
		jobsRepo:  jobsRepo,
		billsRepo: billsRepo,
		ingestor:  ingest.NewFSIngestor(filesRepo, nil),
		proc:      NewProcessor(nil, loader, ext, filesRepo, jobsRepo, billsRepo, "test-model"),
	}
}

func (fx *fixture) ingest(t *testing.T, path string) uuid.UUID {
	t.Helper()
	res, err := fx.ingestor.IngestPath(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	id, err := uuid.Parse(res.FileID)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func (fx *fixture) jobStatus(t *testing.T, fileID uuid.UUID) string {
	t.Helper()
	var status string
	row := fx.store.DB.QueryRowContext(context.Background(),
		`SELECT status FROM extract_jobs WHERE file_id = ?`, fileID)
	if err := row.Scan(&status); err != nil {
		t.Fatal(err)
	}
	return status
}

func TestProcessFileImage(t *testing.T) {
	ext := &fakeExtractor{fields: llm.BillFields{
		PumpName: "Indian Oil",
		BillDate: "15/03/2024",
		Product:  "Petrol",
		Volume:   "10.50",
		Rate:     "96.72",
		Total:    "1015.56",
	}}
	fx := newFixture(t, ext)

	dir := t.TempDir()
	path := filepath.Join(dir, "fuel_bill_042.png")
	if err := os.WriteFile(path, []byte("fake png"), 0644); err != nil {
		t.Fatal(err)
	}
	fileID := fx.ingest(t, path)

	recs, err := fx.proc.ProcessFile(context.Background(), fileID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	// Bill number is the filename stem; single page gets no suffix.
	if recs[0].BillNo != "fuel_bill_042" {
		t.Errorf("bill no = %q", recs[0].BillNo)
	}
	if recs[0].Page != 1 || recs[0].PumpName != "Indian Oil" || recs[0].Total != "1015.56" {
		t.Errorf("record = %+v", recs[0])
	}
	if ext.calls != 1 {
		t.Errorf("extractor called %d times", ext.calls)
	}

	if got := fx.jobStatus(t, fileID); got != string(constants.JobStatusParsed) {
		t.Errorf("job status = %q", got)
	}

	// The record round-trips through the repository in order.
	listed, err := fx.billsRepo.ListBills(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].BillNo != "fuel_bill_042" {
		t.Errorf("listed = %+v", listed)
	}
}

func TestProcessFileExtractionFailure(t *testing.T) {
	ext := &fakeExtractor{failFrom: 1}
	fx := newFixture(t, ext)

	dir := t.TempDir()
	path := filepath.Join(dir, "bill.jpg")
	if err := os.WriteFile(path, []byte("fake jpg"), 0644); err != nil {
		t.Fatal(err)
	}
	fileID := fx.ingest(t, path)

	if _, err := fx.proc.ProcessFile(context.Background(), fileID); err == nil {
		t.Fatal("expected extraction error")
	}
	if got := fx.jobStatus(t, fileID); got != string(constants.JobStatusFailed) {
		t.Errorf("job status = %q", got)
	}

	// Nothing persisted for the failed page.
	listed, err := fx.billsRepo.ListBills(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 0 {
		t.Errorf("listed = %+v", listed)
	}
}

func TestProcessFileUnknownID(t *testing.T) {
	fx := newFixture(t, &fakeExtractor{})
	if _, err := fx.proc.ProcessFile(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown file ID")
	}
}
