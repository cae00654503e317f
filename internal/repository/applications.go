package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fintrack-labs/loandocs/constants"
	"github.com/fintrack-labs/loandocs/internal/common"
	"github.com/fintrack-labs/loandocs/internal/entity"
)

const applicationsDDL = `
CREATE TABLE IF NOT EXISTS applications (
	id                   UUID PRIMARY KEY,
	applicant_name       TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL DEFAULT 'draft',
	processing_status    TEXT NOT NULL DEFAULT 'pending',
	extracted_json       JSONB,
	ocr_confidence       DOUBLE PRECISION,
	ocr_method           TEXT,
	error_message        TEXT,
	is_manually_verified BOOLEAN NOT NULL DEFAULT FALSE,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS application_documents (
	id             UUID PRIMARY KEY,
	application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	document_type  TEXT NOT NULL,
	original_name  TEXT NOT NULL,
	content_hash   TEXT NOT NULL,
	size_bytes     BIGINT NOT NULL,
	uploaded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_application_documents_app ON application_documents (application_id);
`

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, applicationsDDL)
	return err
}

type ApplicationRepository interface {
	Create(ctx context.Context, applicantName string, status constants.ApplicationStatus, extracted json.RawMessage, verified bool) (*entity.Application, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Application, error)
	List(ctx context.Context) ([]*entity.Application, error)
	SetProcessingStatus(ctx context.Context, id uuid.UUID, from, to constants.ProcessingStatus, errMsg *string) error
	SaveExtraction(ctx context.Context, id uuid.UUID, extracted json.RawMessage, confidence float64, method string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, next constants.ApplicationStatus) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	AttachDocument(ctx context.Context, doc entity.DocumentRef) (*entity.DocumentRef, error)
}

type applicationRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewApplicationRepository(pool *pgxpool.Pool, log *slog.Logger) ApplicationRepository {
	if log == nil {
		log = slog.Default()
	}
	return &applicationRepo{pool: pool, log: log}
}

func (r *applicationRepo) Create(ctx context.Context, applicantName string, status constants.ApplicationStatus, extracted json.RawMessage, verified bool) (*entity.Application, error) {
	id := uuid.New()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO applications (id, applicant_name, status, extracted_json, is_manually_verified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		id, applicantName, string(status), extracted, verified)

	var createdAt, updatedAt time.Time
	if err := row.Scan(&createdAt, &updatedAt); err != nil {
		r.log.Error("application create failed", "err", err)
		return nil, common.WrapError(err, "create application")
	}
	r.log.Info("application created", "application_id", id, "status", string(status))
	return &entity.Application{
		ID:                 id,
		ApplicantName:      applicantName,
		Status:             string(status),
		ProcessingStatus:   string(constants.ProcessingPending),
		ExtractedJSON:      extracted,
		IsManuallyVerified: verified,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}, nil
}

const applicationColumns = `
	id, applicant_name, status, processing_status, extracted_json,
	ocr_confidence, ocr_method, error_message, is_manually_verified,
	created_at, updated_at`

func (r *applicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Application, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewAppError("NOT_FOUND", "application not found", common.ErrNotFound)
		}
		return nil, common.WrapError(err, "get application")
	}

	docs, err := r.documentsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	app.Documents = docs
	return app, nil
}

func (r *applicationRepo) List(ctx context.Context) ([]*entity.Application, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+applicationColumns+` FROM applications ORDER BY created_at DESC`)
	if err != nil {
		return nil, common.WrapError(err, "list applications")
	}
	defer rows.Close()

	var apps []*entity.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan application")
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "list applications")
	}
	return apps, nil
}

// SetProcessingStatus moves the processing state in one guarded statement:
// the row only changes if it is still in the expected source state, so two
// workers racing on the same application cannot double-process it.
func (r *applicationRepo) SetProcessingStatus(ctx context.Context, id uuid.UUID, from, to constants.ProcessingStatus, errMsg *string) error {
	if !from.CanTransitionTo(to) {
		return common.NewAppError("INVALID_TRANSITION",
			"illegal processing transition "+string(from)+" -> "+string(to), common.ErrInvalidTransition)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications
		SET processing_status = $3, error_message = $4, updated_at = now()
		WHERE id = $1 AND processing_status = $2`,
		id, string(from), string(to), errMsg)
	if err != nil {
		return common.WrapError(err, "set processing status")
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError("INVALID_TRANSITION",
			"application not in state "+string(from), common.ErrInvalidTransition)
	}
	r.log.Info("processing status changed", "application_id", id, "from", string(from), "to", string(to))
	return nil
}

func (r *applicationRepo) SaveExtraction(ctx context.Context, id uuid.UUID, extracted json.RawMessage, confidence float64, method string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications
		SET extracted_json = $2, ocr_confidence = $3, ocr_method = $4,
		    applicant_name = COALESCE(NULLIF($5, ''), applicant_name),
		    updated_at = now()
		WHERE id = $1`,
		id, extracted, confidence, method, applicantNameFrom(extracted))
	if err != nil {
		return common.WrapError(err, "save extraction")
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// UpdateStatus advances the review lifecycle in a single guarded statement.
// The legal source states for the requested target are computed from the
// transition table and enforced in the WHERE clause.
func (r *applicationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, next constants.ApplicationStatus) error {
	sources := constants.TransitionSources(next)
	if len(sources) == 0 {
		return common.NewAppError("INVALID_TRANSITION", "no legal transition to "+string(next), common.ErrInvalidTransition)
	}
	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE applications
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)`,
		id, string(next), from)
	if err != nil {
		return common.WrapError(err, "update status")
	}
	if tag.RowsAffected() == 0 {
		// Either the row is missing or its current status cannot move to next.
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return common.NewAppError("INVALID_TRANSITION", "illegal transition to "+string(next), common.ErrInvalidTransition)
	}
	r.log.Info("application status changed", "application_id", id, "to", string(next))
	return nil
}

func (r *applicationRepo) MarkVerified(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications SET is_manually_verified = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return common.WrapError(err, "mark verified")
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *applicationRepo) AttachDocument(ctx context.Context, doc entity.DocumentRef) (*entity.DocumentRef, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO application_documents (id, application_id, document_type, original_name, content_hash, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING uploaded_at`,
		doc.ID, doc.ApplicationID, doc.DocumentType, doc.OriginalName, doc.ContentHash, doc.SizeBytes)
	if err := row.Scan(&doc.UploadedAt); err != nil {
		r.log.Error("attach document failed", "application_id", doc.ApplicationID, "err", err)
		return nil, common.WrapError(err, "attach document")
	}
	r.log.Info("document attached", "application_id", doc.ApplicationID, "document_id", doc.ID, "type", doc.DocumentType)
	return &doc, nil
}

func (r *applicationRepo) documentsFor(ctx context.Context, appID uuid.UUID) ([]entity.DocumentRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, application_id, document_type, original_name, content_hash, size_bytes, uploaded_at
		FROM application_documents WHERE application_id = $1 ORDER BY uploaded_at`, appID)
	if err != nil {
		return nil, common.WrapError(err, "list documents")
	}
	defer rows.Close()

	var docs []entity.DocumentRef
	for rows.Next() {
		var d entity.DocumentRef
		if err := rows.Scan(&d.ID, &d.ApplicationID, &d.DocumentType, &d.OriginalName, &d.ContentHash, &d.SizeBytes, &d.UploadedAt); err != nil {
			return nil, common.WrapError(err, "scan document")
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanApplication(row pgx.Row) (*entity.Application, error) {
	var app entity.Application
	err := row.Scan(
		&app.ID, &app.ApplicantName, &app.Status, &app.ProcessingStatus, &app.ExtractedJSON,
		&app.OCRConfidence, &app.OCRMethod, &app.ErrorMessage, &app.IsManuallyVerified,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// applicantNameFrom pulls the applicant name out of a serialized extraction
// so the applications list stays readable without unpacking JSON client-side.
func applicantNameFrom(extracted json.RawMessage) string {
	if len(extracted) == 0 {
		return ""
	}
	var partial struct {
		ApplicantName string `json:"applicant_name"`
	}
	if err := json.Unmarshal(extracted, &partial); err != nil {
		return ""
	}
	return partial.ApplicantName
}
