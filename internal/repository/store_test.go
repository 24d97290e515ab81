package repository

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"testing"
	"time"

	"github.com/tungarlabs/fuelbills/constants"
	"github.com/tungarlabs/fuelbills/internal/entity"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(context.Background(), dsn, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func testFile(t *testing.T, s *Store, name string) *entity.BillFile {
	t.Helper()
	hash := sha256.Sum256([]byte(name))
	f, err := NewBillFileRepository(s, nil).Create(
		context.Background(), "/bills/"+name, name, "png", 1024, hash[:], time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestRebind(t *testing.T) {
	pg := &Store{Driver: DriverPostgres}
	got := pg.rebind(`SELECT * FROM t WHERE a = ? AND b = ?`)
	want := `SELECT * FROM t WHERE a = $1 AND b = $2`
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	lite := &Store{Driver: DriverSQLite}
	q := `SELECT * FROM t WHERE a = ?`
	if got := lite.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestBillFileUpsertDedupes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	repo := NewBillFileRepository(s, nil)

	hash := sha256.Sum256([]byte("bill content"))
	first, dedup, err := repo.UpsertByHash(ctx, "/a/bill.png", "bill.png", "png", 512, hash[:], time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if dedup {
		t.Error("first upsert should not dedupe")
	}

	// Same bytes from a different path come back as the existing row.
	second, dedup, err := repo.UpsertByHash(ctx, "/b/copy.png", "copy.png", "png", 512, hash[:], time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if !dedup {
		t.Error("second upsert should dedupe")
	}
	if second.ID != first.ID {
		t.Errorf("dedupe returned a different row: %s vs %s", second.ID, first.ID)
	}
	// The source path follows the latest sighting so the file can be
	// re-read even after the first copy is gone; the name does not.
	if second.SourcePath != "/b/copy.png" {
		t.Errorf("source path = %q, want /b/copy.png", second.SourcePath)
	}
	if second.Filename != "bill.png" {
		t.Errorf("filename = %q, want bill.png", second.Filename)
	}

	got, err := repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SourcePath != "/b/copy.png" {
		t.Errorf("stored source path = %q", got.SourcePath)
	}
	if got.Filename != "bill.png" {
		t.Errorf("filename = %q", got.Filename)
	}
}

func TestExtractJobLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	f := testFile(t, s, "bill.png")
	repo := NewExtractJobRepository(s, nil)

	job, err := repo.Start(ctx, f.ID, constants.IMAGE)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != string(constants.JobStatusRunning) {
		t.Errorf("status = %q", job.Status)
	}

	if err := repo.MarkPagesOK(ctx, job.ID, 1); err != nil {
		t.Fatal(err)
	}
	if err := repo.FinishParsed(ctx, job.ID, "gemini-1.5-flash"); err != nil {
		t.Fatal(err)
	}

	var status, model string
	var pages int
	row := s.DB.QueryRowContext(ctx, `SELECT status, pages, model_name FROM extract_jobs WHERE id = ?`, job.ID)
	if err := row.Scan(&status, &pages, &model); err != nil {
		t.Fatal(err)
	}
	if status != string(constants.JobStatusParsed) || pages != 1 || model != "gemini-1.5-flash" {
		t.Errorf("job row = %q/%d/%q", status, pages, model)
	}
}

func TestExtractJobFailure(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	f := testFile(t, s, "bad.pdf")
	repo := NewExtractJobRepository(s, nil)

	job, err := repo.Start(ctx, f.ID, constants.PDF)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.FinishFailure(ctx, job.ID, "no pages found in PDF"); err != nil {
		t.Fatal(err)
	}

	var status, msg string
	row := s.DB.QueryRowContext(ctx, `SELECT status, error_message FROM extract_jobs WHERE id = ?`, job.ID)
	if err := row.Scan(&status, &msg); err != nil {
		t.Fatal(err)
	}
	if status != string(constants.JobStatusFailed) {
		t.Errorf("status = %q", status)
	}
	if msg != "no pages found in PDF" {
		t.Errorf("error_message = %q", msg)
	}
}

func TestListBillsPreservesInsertionOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	f := testFile(t, s, "bills.pdf")
	repo := NewBillRepository(s, nil)

	names := []string{"bill_03", "bill_01", "bill_02"}
	for i, n := range names {
		_, err := repo.Insert(ctx, &entity.BillRecord{
			FileID:   f.ID,
			BillNo:   n,
			Page:     i + 1,
			BillDate: "15/03/2024",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	recs, err := repo.ListBills(ctx, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records", len(recs))
	}
	for i, n := range names {
		if recs[i].BillNo != n {
			t.Errorf("recs[%d] = %q, want %q", i, recs[i].BillNo, n)
		}
	}
}

func TestListBillsDateWindow(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	f := testFile(t, s, "bills.pdf")
	repo := NewBillRepository(s, nil)

	for _, d := range []string{"10/01/2024", "15/02/2024", "20/03/2024", ""} {
		_, err := repo.Insert(ctx, &entity.BillRecord{FileID: f.ID, BillNo: "b", Page: 1, BillDate: d})
		if err != nil {
			t.Fatal(err)
		}
	}

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	recs, err := repo.ListBills(ctx, &from, &to)
	if err != nil {
		t.Fatal(err)
	}
	// One bill inside the window plus the undated one, which is never filtered.
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].BillDate != "15/02/2024" {
		t.Errorf("recs[0].BillDate = %q", recs[0].BillDate)
	}
	if recs[1].BillDate != "" {
		t.Errorf("recs[1].BillDate = %q, want empty", recs[1].BillDate)
	}

	// From-only window.
	recs, err = repo.ListBills(ctx, &from, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("from-only: got %d records, want 3", len(recs))
	}
}

func TestUnparseableDateNeverFiltered(t *testing.T) {
	b := &entity.BillRecord{BillDate: "not a date"}
	from := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if !inWindow(b, &from, nil) {
		t.Error("record with unreadable date must stay in every window")
	}
}
