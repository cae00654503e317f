package uploads

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fintrack-labs/loandocs/internal/common"
	"github.com/fintrack-labs/loandocs/internal/entity"
)

// Registry tracks uploaded files between the upload call and the processing
// call. Entries are keyed by generated file ID and carry an expiry; the
// sweeper evicts expired entries and deletes their files so abandoned
// uploads cannot grow without bound.
type Registry interface {
	Put(ctx context.Context, f entity.UploadedFile) error
	Get(ctx context.Context, id string) (*entity.UploadedFile, error)
	Delete(ctx context.Context, id string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
	Close() error
}

const registrySchema = `
CREATE TABLE IF NOT EXISTS uploaded_files (
	id            TEXT PRIMARY KEY,
	path          TEXT NOT NULL,
	original_name TEXT NOT NULL,
	document_type TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	size_bytes    INTEGER NOT NULL,
	uploaded_at   INTEGER NOT NULL,
	expires_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_uploaded_files_expires ON uploaded_files (expires_at);
`

// SQLiteRegistry persists the registry so pending uploads survive a restart.
type SQLiteRegistry struct {
	db  *sql.DB
	log *slog.Logger
}

func OpenRegistry(path string, logger *slog.Logger) (*SQLiteRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(registrySchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRegistry{db: db, log: logger}, nil
}

func (r *SQLiteRegistry) Put(ctx context.Context, f entity.UploadedFile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO uploaded_files (id, path, original_name, document_type, content_hash, size_bytes, uploaded_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Path, f.OriginalName, f.DocumentType, f.ContentHash, f.SizeBytes,
		f.UploadedAt.Unix(), f.ExpiresAt.Unix())
	if err != nil {
		return common.WrapError(err, "register upload")
	}
	r.log.Info("upload registered", "file_id", f.ID, "type", f.DocumentType, "bytes", f.SizeBytes)
	return nil
}

func (r *SQLiteRegistry) Get(ctx context.Context, id string) (*entity.UploadedFile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, path, original_name, document_type, content_hash, size_bytes, uploaded_at, expires_at
		FROM uploaded_files WHERE id = ?`, id)

	var f entity.UploadedFile
	var uploadedAt, expiresAt int64
	err := row.Scan(&f.ID, &f.Path, &f.OriginalName, &f.DocumentType, &f.ContentHash, &f.SizeBytes, &uploadedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "file not found", common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(err, "get upload")
	}
	f.UploadedAt = time.Unix(uploadedAt, 0).UTC()
	f.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &f, nil
}

func (r *SQLiteRegistry) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM uploaded_files WHERE id = ?`, id)
	if err != nil {
		return common.WrapError(err, "delete upload")
	}
	return nil
}

// Sweep evicts entries whose expiry has passed and deletes their files.
// Returns the number of entries evicted.
func (r *SQLiteRegistry) Sweep(ctx context.Context, now time.Time) (int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, path FROM uploaded_files WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, common.WrapError(err, "sweep query")
	}

	type doomed struct{ id, path string }
	var expired []doomed
	for rows.Next() {
		var d doomed
		if err := rows.Scan(&d.id, &d.path); err != nil {
			rows.Close()
			return 0, common.WrapError(err, "sweep scan")
		}
		expired = append(expired, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, common.WrapError(err, "sweep query")
	}

	for _, d := range expired {
		if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
			r.log.Warn("failed to remove expired upload", "file_id", d.id, "path", d.path, "error", err)
		}
		if _, err := r.db.ExecContext(ctx, `DELETE FROM uploaded_files WHERE id = ?`, d.id); err != nil {
			return 0, common.WrapError(err, "sweep delete")
		}
	}
	if len(expired) > 0 {
		r.log.Info("expired uploads evicted", "count", len(expired))
	}
	return len(expired), nil
}

func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

// RunSweeper periodically sweeps until ctx is cancelled. Run it in its own
// goroutine.
func RunSweeper(ctx context.Context, reg Registry, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := reg.Sweep(ctx, now); err != nil {
				logger.Error("upload sweep failed", "error", err)
			}
		}
	}
}
