package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tungarlabs/fuelbills/constants"
	"github.com/tungarlabs/fuelbills/internal/entity"
)

type ExtractJobRepository interface {
	Start(ctx context.Context, fileID uuid.UUID, format string) (*entity.ExtractJob, error)
	MarkPagesOK(ctx context.Context, jobID uuid.UUID, pages int) error
	FinishParsed(ctx context.Context, jobID uuid.UUID, modelName string) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
}

type extractJobRepo struct {
	store *Store
	log   *slog.Logger
}

func NewExtractJobRepository(store *Store, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{store: store, log: log}
}

func (r *extractJobRepo) Start(ctx context.Context, fileID uuid.UUID, format string) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:        uuid.New(),
		FileID:    fileID,
		Format:    format,
		Status:    string(constants.JobStatusRunning),
		StartedAt: time.Now().UTC(),
	}
	q := r.store.rebind(`INSERT INTO extract_jobs (id, file_id, format, status, started_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.store.DB.ExecContext(ctx, q, job.ID, job.FileID, job.Format, job.Status, job.StartedAt); err != nil {
		r.log.Error("extract_job start failed", "file_id", fileID, "err", err)
		return nil, err
	}
	r.log.Info("extract_job started", "job_id", job.ID, "file_id", fileID, "format", format)
	return job, nil
}

func (r *extractJobRepo) MarkPagesOK(ctx context.Context, jobID uuid.UUID, pages int) error {
	q := r.store.rebind(`UPDATE extract_jobs SET status = ?, pages = ? WHERE id = ?`)
	if _, err := r.store.DB.ExecContext(ctx, q, string(constants.JobStatusPagesOK), pages, jobID); err != nil {
		r.log.Error("extract_job mark pages failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job pages loaded", "job_id", jobID, "pages", pages)
	return nil
}

func (r *extractJobRepo) FinishParsed(ctx context.Context, jobID uuid.UUID, modelName string) error {
	q := r.store.rebind(`UPDATE extract_jobs SET status = ?, model_name = ?, finished_at = ? WHERE id = ?`)
	if _, err := r.store.DB.ExecContext(ctx, q, string(constants.JobStatusParsed), modelName, time.Now().UTC(), jobID); err != nil {
		r.log.Error("extract_job finish(PARSED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished (PARSED)", "job_id", jobID, "model", modelName)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	q := r.store.rebind(`UPDATE extract_jobs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`)
	if _, err := r.store.DB.ExecContext(ctx, q, string(constants.JobStatusFailed), message, time.Now().UTC(), jobID); err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}
