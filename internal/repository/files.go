package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tungarlabs/fuelbills/internal/entity"
)

type BillFileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.BillFile, error)
	GetByHash(ctx context.Context, hash []byte) (*entity.BillFile, error)
	Create(ctx context.Context, sourcePath, filename, ext string, size int64, hash []byte, uploadedAt time.Time) (*entity.BillFile, error)
	UpsertByHash(ctx context.Context, sourcePath, filename, ext string, size int64, hash []byte, uploadedAt time.Time) (*entity.BillFile, bool, error)
}

type billFileRepo struct {
	store  *Store
	logger *slog.Logger
}

func NewBillFileRepository(store *Store, logger *slog.Logger) BillFileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &billFileRepo{store: store, logger: logger}
}

const fileColumns = `id, source_path, filename, file_ext, file_size, content_hash, uploaded_at`

func (r *billFileRepo) scanFile(row *sql.Row) (*entity.BillFile, error) {
	var f entity.BillFile
	err := row.Scan(&f.ID, &f.SourcePath, &f.Filename, &f.FileExt, &f.FileSize, &f.ContentHash, &f.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *billFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.BillFile, error) {
	q := r.store.rebind(`SELECT ` + fileColumns + ` FROM bill_files WHERE id = ?`)
	f, err := r.scanFile(r.store.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		r.logger.Error("failed to get bill file", "file_id", id, "error", err)
		return nil, err
	}
	return f, nil
}

func (r *billFileRepo) GetByHash(ctx context.Context, hash []byte) (*entity.BillFile, error) {
	q := r.store.rebind(`SELECT ` + fileColumns + ` FROM bill_files WHERE content_hash = ?`)
	return r.scanFile(r.store.DB.QueryRowContext(ctx, q, hash))
}

func (r *billFileRepo) Create(ctx context.Context, sourcePath, filename, ext string, size int64, hash []byte, uploadedAt time.Time) (*entity.BillFile, error) {
	f := &entity.BillFile{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		Filename:    filename,
		FileExt:     ext,
		FileSize:    size,
		ContentHash: hash,
		UploadedAt:  uploadedAt,
	}
	q := r.store.rebind(`INSERT INTO bill_files (` + fileColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.store.DB.ExecContext(ctx, q,
		f.ID, f.SourcePath, f.Filename, f.FileExt, f.FileSize, f.ContentHash, f.UploadedAt); err != nil {
		r.logger.Error("failed to create bill file", "source_path", sourcePath, "error", err)
		return nil, err
	}
	return f, nil
}

// UpsertByHash dedupes by content hash: a file already ingested comes back
// with dedup=true and no new row. The stored source path moves to the
// latest sighting, since the previous copy may be gone by now (uploads are
// deleted after processing). The filename, and with it the bill number,
// stays with the first sighting.
func (r *billFileRepo) UpsertByHash(ctx context.Context, sourcePath, filename, ext string, size int64, hash []byte, uploadedAt time.Time) (*entity.BillFile, bool, error) {
	existing, err := r.GetByHash(ctx, hash)
	if err == nil {
		refreshed, uerr := r.refreshSource(ctx, existing.ID, sourcePath, uploadedAt)
		if uerr != nil {
			return nil, false, uerr
		}
		return refreshed, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		r.logger.Error("failed to look up bill file by hash", "source_path", sourcePath, "error", err)
		return nil, false, err
	}
	row, err := r.Create(ctx, sourcePath, filename, ext, size, hash, uploadedAt)
	if err != nil {
		return nil, false, err
	}
	return row, false, nil
}

func (r *billFileRepo) refreshSource(ctx context.Context, id uuid.UUID, sourcePath string, uploadedAt time.Time) (*entity.BillFile, error) {
	q := r.store.rebind(`UPDATE bill_files SET source_path = ?, uploaded_at = ? WHERE id = ?`)
	if _, err := r.store.DB.ExecContext(ctx, q, sourcePath, uploadedAt, id); err != nil {
		r.logger.Error("failed to refresh bill file source", "file_id", id, "error", err)
		return nil, err
	}
	return r.GetByID(ctx, id)
}
