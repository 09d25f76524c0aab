package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/common"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
)

// ParseRunRepository records every parse attempt: RUNNING, then PARSED or FAILED.
type ParseRunRepository interface {
	Start(ctx context.Context, fileID uuid.UUID, format string) (*entity.ParseRun, error)
	FinishSuccess(ctx context.Context, runID, documentID uuid.UUID, confidence float64, method string) error
	FinishFailure(ctx context.Context, runID uuid.UUID, message string) error
	ListByFile(ctx context.Context, fileID uuid.UUID) ([]*entity.ParseRun, error)
}

type parseRunRepo struct {
	db  *DB
	log *slog.Logger
}

func NewParseRunRepository(db *DB, log *slog.Logger) ParseRunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &parseRunRepo{db: db, log: log}
}

func (r *parseRunRepo) Start(ctx context.Context, fileID uuid.UUID, format string) (*entity.ParseRun, error) {
	run := &entity.ParseRun{
		ID:            uuid.New(),
		FileID:        fileID,
		Format:        format,
		StartedAt:     time.Now().UTC(),
		Status:        string(constants.JobStatusRunning),
		ParserVersion: constants.ParserVersion,
	}
	ins := r.db.sql().Insert("parse_runs").
		Columns("id", "file_id", "format", "started_at", "status", "parser_version").
		Values(run.ID.String(), fileID.String(), format, r.db.timeArg(run.StartedAt), run.Status, run.ParserVersion)
	if _, err := execute(ctx, r.db.drv, ins); err != nil {
		r.log.Error("parse_run start failed", "file_id", fileID, "err", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	r.log.Info("parse_run started", "run_id", run.ID, "file_id", fileID, "format", format)
	return run, nil
}

func (r *parseRunRepo) FinishSuccess(ctx context.Context, runID, documentID uuid.UUID, confidence float64, method string) error {
	upd := r.db.sql().Update("parse_runs").
		Set("document_id", documentID.String()).
		Set("extraction_confidence", confidence).
		Set("extraction_method", method).
		Set("finished_at", r.db.timeArg(time.Now())).
		Set("status", string(constants.JobStatusParsed)).
		Where(entsql.EQ("id", runID.String()))
	if err := r.finish(ctx, runID, upd); err != nil {
		r.log.Error("parse_run finish(PARSED) failed", "run_id", runID, "err", err)
		return err
	}
	r.log.Info("parse_run finished (PARSED)", "run_id", runID, "document_id", documentID, "method", method)
	return nil
}

func (r *parseRunRepo) FinishFailure(ctx context.Context, runID uuid.UUID, message string) error {
	upd := r.db.sql().Update("parse_runs").
		Set("finished_at", r.db.timeArg(time.Now())).
		Set("status", string(constants.JobStatusFailed)).
		Set("error_message", message).
		Where(entsql.EQ("id", runID.String()))
	if err := r.finish(ctx, runID, upd); err != nil {
		r.log.Error("parse_run finish(FAILED) failed", "run_id", runID, "err", err)
		return err
	}
	r.log.Warn("parse_run finished (FAILED)", "run_id", runID, "error", message)
	return nil
}

func (r *parseRunRepo) finish(ctx context.Context, runID uuid.UUID, upd *entsql.UpdateBuilder) error {
	res, err := execute(ctx, r.db.drv, upd)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("parse run %s: %w", runID, common.ErrNotFound)
	}
	return nil
}

func (r *parseRunRepo) ListByFile(ctx context.Context, fileID uuid.UUID) ([]*entity.ParseRun, error) {
	q := r.db.sql().
		Select("id", "file_id", "document_id", "format", "started_at", "finished_at", "status",
			"error_message", "extraction_confidence", "extraction_method", "parser_version").
		From(r.db.sql().Table("parse_runs")).
		Where(entsql.EQ("file_id", fileID.String())).
		OrderBy(entsql.Asc("started_at"))

	var out []*entity.ParseRun
	err := queryRows(ctx, r.db.drv, q, func(rows *entsql.Rows) error {
		var (
			run               entity.ParseRun
			docID             uuid.NullUUID
			started, finished nullTime
			errMsg, method    sql.NullString
			confidence        sql.NullFloat64
		)
		if err := rows.Scan(&run.ID, &run.FileID, &docID, &run.Format, &started, &finished, &run.Status,
			&errMsg, &confidence, &method, &run.ParserVersion); err != nil {
			return err
		}
		run.DocumentID = uuidPtr(docID)
		run.StartedAt = started.Time
		run.FinishedAt = finished.ptr()
		run.ErrorMessage = stringPtr(errMsg)
		run.ExtractionMethod = stringPtr(method)
		if confidence.Valid {
			c := confidence.Float64
			run.ExtractionConfidence = &c
		}
		out = append(out, &run)
		return nil
	})
	if err != nil {
		r.log.Error("failed to list parse runs", "file_id", fileID, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}
