// Package queue runs background parsing work off the request path.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"trustbooks/internal/models"

	"github.com/google/uuid"
)

var (
	ErrQueueFull       = errors.New("parse queue is full")
	ErrClosed          = errors.New("dispatcher is shut down")
	ErrShutdownTimeout = errors.New("shutdown deadline exceeded")
)

// ShutdownTimeoutError reports work that was still queued or running when
// the shutdown deadline passed.
type ShutdownTimeoutError struct {
	Abandoned int64
}

func (e *ShutdownTimeoutError) Error() string {
	return fmt.Sprintf("%v with %d task(s) unfinished", ErrShutdownTimeout, e.Abandoned)
}

func (e *ShutdownTimeoutError) Is(target error) bool { return target == ErrShutdownTimeout }

// Task is one parse job. Data carries the upload bytes when the job runs in
// the same process; it is never serialized.
type Task struct {
	Kind     models.DocumentKind `json:"kind"`
	RecordID uuid.UUID           `json:"record_id"`
	FilePath string              `json:"file_path"`
	Filename string              `json:"filename"`
	Data     []byte              `json:"-"`
}

func (t Task) validate() error {
	if !t.Kind.Valid() {
		return fmt.Errorf("unknown document kind %q", t.Kind)
	}
	if t.RecordID == uuid.Nil {
		return errors.New("missing record id")
	}
	if t.FilePath == "" {
		return errors.New("missing file path")
	}
	return nil
}

func encodeTask(t Task) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(t)
}

func decodeTask(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if err := t.validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Handler processes a task. A returned error is counted and logged; the
// handler is expected to have recorded the outcome itself.
type Handler func(ctx context.Context, t Task) error

type Stats struct {
	Submitted int64 `json:"submitted"`
	Rejected  int64 `json:"rejected"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panicked  int64 `json:"panicked"`
	Pending   int64 `json:"pending"`
}

type Dispatcher interface {
	Submit(ctx context.Context, t Task) error
	Shutdown(ctx context.Context) error
	Stats() Stats
}
