package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tungarlabs/fuelbills/internal/repository"
)

func newIngestor(t *testing.T) *FSIngestor {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	store, err := repository.OpenSQLite(context.Background(), dsn, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(store.Close)
	return NewFSIngestor(repository.NewBillFileRepository(store, nil), nil)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestPath(t *testing.T) {
	ing := newIngestor(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "bill_001.png", "png bytes")

	res, err := ing.IngestPath(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.FileID == "" {
		t.Error("expected a file ID")
	}
	if res.FileExt != "png" {
		t.Errorf("ext = %q", res.FileExt)
	}
	if res.Deduplicated {
		t.Error("first ingest should not dedupe")
	}

	// Same content again: deduplicated, same ID.
	again, err := ing.IngestPath(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Deduplicated {
		t.Error("second ingest should dedupe")
	}
	if again.FileID != res.FileID {
		t.Errorf("dedupe changed ID: %s vs %s", again.FileID, res.FileID)
	}
}

func TestIngestPathRejects(t *testing.T) {
	ing := newIngestor(t)
	dir := t.TempDir()

	// Unsupported extension.
	bad := writeFile(t, dir, "notes.txt", "text")
	if _, err := ing.IngestPath(context.Background(), bad); err == nil {
		t.Error("expected error for unsupported extension")
	}

	// Empty file.
	empty := writeFile(t, dir, "blank.jpg", "")
	if _, err := ing.IngestPath(context.Background(), empty); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestIngestDirectory(t *testing.T) {
	ing := newIngestor(t)
	dir := t.TempDir()

	writeFile(t, dir, "b_bill.png", "second")
	writeFile(t, dir, "a_bill.jpg", "first")
	writeFile(t, dir, "readme.md", "skipped")
	writeFile(t, dir, ".hidden.png", "skipped")
	writeFile(t, dir, "empty.pdf", "")

	results, stats, err := ing.IngestDirectory(context.Background(), dir, true)
	if err != nil {
		t.Fatal(err)
	}

	if stats.Matched != 3 {
		t.Errorf("matched = %d, want 3", stats.Matched)
	}
	if stats.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", stats.Succeeded)
	}
	if stats.Failed != 1 {
		t.Errorf("failed = %d, want 1", stats.Failed)
	}

	// Lexical order: a_bill.jpg before b_bill.png, failure row in between.
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if filepath.Base(results[0].SourcePath) != "a_bill.jpg" {
		t.Errorf("results[0] = %q", results[0].SourcePath)
	}
	if filepath.Base(results[1].SourcePath) != "b_bill.png" {
		t.Errorf("results[1] = %q", results[1].SourcePath)
	}
	if results[2].Err == "" {
		t.Error("empty.pdf should carry an error")
	}
}

func TestIngestDirectoryRequiresRoot(t *testing.T) {
	ing := newIngestor(t)
	if _, _, err := ing.IngestDirectory(context.Background(), "  ", true); err == nil {
		t.Error("expected error for blank root")
	}
}
