package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeProcessor struct {
	mu   sync.Mutex
	seen []Job
	done chan struct{}
}

func (p *fakeProcessor) ProcessDocument(_ context.Context, applicationID uuid.UUID, fileID string) error {
	p.mu.Lock()
	p.seen = append(p.seen, Job{ApplicationID: applicationID, FileID: fileID})
	n := len(p.seen)
	p.mu.Unlock()
	if p.done != nil && n == cap(p.seen) {
		close(p.done)
	}
	return nil
}

func (p *fakeProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueueProcessesJobs(t *testing.T) {
	proc := &fakeProcessor{seen: make([]Job, 0, 5), done: make(chan struct{})}
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(2), WithQueueSize(8))

	for i := 0; i < 5; i++ {
		job := Job{ApplicationID: uuid.New(), FileID: uuid.NewString(), SubmittedAt: time.Now()}
		if err := q.Enqueue(context.Background(), job); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	select {
	case <-proc.done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs not processed in time")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	if proc.count() != 5 {
		t.Errorf("processed %d jobs, want 5", proc.count())
	}
}

func TestQueueShutdownDrains(t *testing.T) {
	proc := &fakeProcessor{seen: make([]Job, 0, 10)}
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(1), WithQueueSize(16))

	for i := 0; i < 10; i++ {
		if err := q.Enqueue(context.Background(), Job{ApplicationID: uuid.New(), FileID: uuid.NewString()}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	if proc.count() != 10 {
		t.Errorf("processed %d jobs before shutdown completed, want 10", proc.count())
	}
}

func TestQueueRejectsAfterShutdown(t *testing.T) {
	proc := &fakeProcessor{seen: make([]Job, 0, 1)}
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	// A late submit must fail loudly so the caller can tell the client.
	err := q.Enqueue(context.Background(), Job{ApplicationID: uuid.New(), FileID: "late"})
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("enqueue after shutdown: err = %v, want ErrQueueClosed", err)
	}
	if proc.count() != 0 {
		t.Errorf("late job was processed, want rejected")
	}
}

func TestQueueShutdownIdempotent(t *testing.T) {
	proc := &fakeProcessor{seen: make([]Job, 0, 1)}
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(1))

	ctx := context.Background()
	q.Shutdown(ctx)
	q.Shutdown(ctx) // second call must not panic on the closed channel
}
