package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one document to extract. FileID keys the upload registry;
// ApplicationID is the row the result lands on.
type Job struct {
	ApplicationID uuid.UUID
	FileID        string
	SubmittedAt   time.Time
	TraceID       string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// DocumentProcessor is what a worker runs per job. Satisfied by
// pipeline.Processor; narrowed to an interface so the queue is testable
// without a database or a recognition engine.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, applicationID uuid.UUID, fileID string) error
}
