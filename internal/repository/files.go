package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docs-tracker/internal/common"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
)

type DocumentFileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.DocumentFile, error)
	GetByHash(ctx context.Context, hash []byte) (*entity.DocumentFile, error)
	Create(ctx context.Context, sourcePath, filename, ext string, size int, hash []byte, uploadedAt time.Time) (*entity.DocumentFile, error)
	UpsertByHash(ctx context.Context, sourcePath, filename, ext string, size int, hash []byte, uploadedAt time.Time) (*entity.DocumentFile, bool, error)
}

type documentFileRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentFileRepository(db *DB, logger *slog.Logger) DocumentFileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentFileRepo{
		db:     db,
		logger: logger,
	}
}

var fileColumns = []string{"id", "source_path", "filename", "file_ext", "file_size", "content_hash", "uploaded_at"}

func (r *documentFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.DocumentFile, error) {
	return r.getOne(ctx, entsql.EQ("id", id.String()))
}

func (r *documentFileRepo) GetByHash(ctx context.Context, hash []byte) (*entity.DocumentFile, error) {
	row, err := r.getOne(ctx, entsql.EQ("content_hash", hash))
	if err != nil {
		r.logger.Debug("document file lookup by hash failed", "error", err)
		return nil, err
	}
	return row, nil
}

func (r *documentFileRepo) getOne(ctx context.Context, where *entsql.Predicate) (*entity.DocumentFile, error) {
	q := r.db.sql().Select(fileColumns...).From(r.db.sql().Table("source_files")).Where(where).Limit(1)
	var out *entity.DocumentFile
	err := queryRows(ctx, r.db.drv, q, func(rows *entsql.Rows) error {
		f, err := scanFile(rows)
		out = f
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if out == nil {
		return nil, common.ErrNotFound
	}
	return out, nil
}

// Create registers a new file. Content already registered fails with common.ErrDuplicate.
func (r *documentFileRepo) Create(ctx context.Context, sourcePath, filename, ext string, size int, hash []byte, uploadedAt time.Time) (*entity.DocumentFile, error) {
	f, inserted, err := r.insert(ctx, r.db.drv, sourcePath, filename, ext, size, hash, uploadedAt)
	if err != nil {
		r.logger.Error("failed to create document file", "source_path", sourcePath, "filename", filename, "error", err)
		return nil, err
	}
	if !inserted {
		r.logger.Warn("document file already registered", "source_path", sourcePath, "filename", filename)
		return nil, fmt.Errorf("%w: content of %s is already registered", common.ErrDuplicate, filename)
	}
	return f, nil
}

// UpsertByHash returns the existing row for hash, or creates one. The bool reports
// whether the file was already known.
func (r *documentFileRepo) UpsertByHash(ctx context.Context, sourcePath, filename, ext string, size int, hash []byte, uploadedAt time.Time) (*entity.DocumentFile, bool, error) {
	f, inserted, err := r.insert(ctx, r.db.drv, sourcePath, filename, ext, size, hash, uploadedAt)
	if err != nil {
		r.logger.Error("failed to upsert document file by hash", "source_path", sourcePath, "filename", filename, "error", err)
		return nil, false, err
	}
	if inserted {
		return f, false, nil
	}
	existing, err := r.GetByHash(ctx, hash)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

func (r *documentFileRepo) insert(ctx context.Context, eq dialect.ExecQuerier, sourcePath, filename, ext string, size int, hash []byte, uploadedAt time.Time) (*entity.DocumentFile, bool, error) {
	f := &entity.DocumentFile{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		ContentHash: hash,
		Filename:    filename,
		FileExt:     ext,
		FileSize:    size,
		UploadedAt:  uploadedAt.UTC(),
	}
	ins := r.db.sql().Insert("source_files").
		Columns(fileColumns...).
		Values(f.ID.String(), f.SourcePath, f.Filename, f.FileExt, f.FileSize, f.ContentHash, r.db.timeArg(f.UploadedAt)).
		OnConflict(entsql.ConflictColumns("content_hash"), entsql.DoNothing())
	res, err := execute(ctx, eq, ins)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return f, n > 0, nil
}

func scanFile(rows *entsql.Rows) (*entity.DocumentFile, error) {
	var (
		f        entity.DocumentFile
		uploaded nullTime
		size     int64
	)
	if err := rows.Scan(&f.ID, &f.SourcePath, &f.Filename, &f.FileExt, &size, &f.ContentHash, &uploaded); err != nil {
		return nil, err
	}
	f.FileSize = int(size)
	f.UploadedAt = uploaded.Time
	return &f, nil
}
