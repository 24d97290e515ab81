package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tungarlabs/fuelbills/internal/entity"
)

type BillRepository interface {
	Insert(ctx context.Context, rec *entity.BillRecord) (*entity.BillRecord, error)
	// ListBills returns records in insertion (input-file) order, optionally
	// keeping only bills whose date falls inside [fromDate, toDate].
	ListBills(ctx context.Context, fromDate, toDate *time.Time) ([]*entity.BillRecord, error)
}

type billRepo struct {
	store  *Store
	logger *slog.Logger
}

func NewBillRepository(store *Store, logger *slog.Logger) BillRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &billRepo{store: store, logger: logger}
}

func (r *billRepo) Insert(ctx context.Context, rec *entity.BillRecord) (*entity.BillRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	q := r.store.rebind(`INSERT INTO bills
		(id, file_id, bill_no, page, pump_name, product, bill_date, volume, rate, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.store.DB.ExecContext(ctx, q,
		rec.ID, rec.FileID, rec.BillNo, rec.Page,
		rec.PumpName, rec.Product, rec.BillDate, rec.Volume, rec.Rate, rec.Total,
		rec.CreatedAt); err != nil {
		r.logger.Error("failed to insert bill", "bill_no", rec.BillNo, "error", err)
		return nil, err
	}
	return rec, nil
}

func (r *billRepo) ListBills(ctx context.Context, fromDate, toDate *time.Time) ([]*entity.BillRecord, error) {
	q := r.store.rebind(`SELECT id, file_id, bill_no, page, pump_name, product, bill_date, volume, rate, total, created_at
		FROM bills ORDER BY seq`)
	rows, err := r.store.DB.QueryContext(ctx, q)
	if err != nil {
		r.logger.Error("failed to list bills", "error", err)
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			r.logger.Warn("close bill rows", "error", cerr)
		}
	}()

	var out []*entity.BillRecord
	for rows.Next() {
		var b entity.BillRecord
		if err := rows.Scan(&b.ID, &b.FileID, &b.BillNo, &b.Page,
			&b.PumpName, &b.Product, &b.BillDate, &b.Volume, &b.Rate, &b.Total,
			&b.CreatedAt); err != nil {
			return nil, err
		}
		if !inWindow(&b, fromDate, toDate) {
			continue
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// inWindow applies the date filter in Go: bill dates are stored as the
// DD/MM/YYYY strings the model returned, and a record whose date the model
// could not read is never filtered out.
func inWindow(b *entity.BillRecord, fromDate, toDate *time.Time) bool {
	if fromDate == nil && toDate == nil {
		return true
	}
	d, ok := b.ParsedDate()
	if !ok {
		return true
	}
	if fromDate != nil && d.Before(*fromDate) {
		return false
	}
	if toDate != nil && d.After(*toDate) {
		return false
	}
	return true
}
