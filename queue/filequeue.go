package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileQueue persists the queue as one JSON array so the API process and a
// separate worker process can share it during development. Every operation
// is a full-file read/modify/write with no file locking: two processes
// writing concurrently can lose updates or double-deliver, so keep a single
// consumer. Production traffic goes through the asynq adapter instead.
type FileQueue struct {
	path string
	mu   sync.Mutex
}

func NewFileQueue(path string) *FileQueue {
	return &FileQueue{path: path}
}

type fileQueueData struct {
	Items []entry `json:"items"`
}

func (q *FileQueue) read() (fileQueueData, error) {
	var data fileQueueData
	b, err := os.ReadFile(q.path)
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return data, err
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return data, fmt.Errorf("corrupt queue file %s: %w", q.path, err)
	}
	return data, nil
}

func (q *FileQueue) write(data fileQueueData) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, q.path)
}

func (q *FileQueue) Enqueue(_ context.Context, msg JobMessage, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	data, err := q.read()
	if err != nil {
		return err
	}
	data.Items = append(data.Items, entry{
		Message:   msg,
		Receipt:   uuid.NewString(),
		VisibleAt: time.Now().Add(delay).UnixMilli(),
	})
	return q.write(data)
}

func (q *FileQueue) Dequeue(_ context.Context, visibilityTimeout time.Duration) (*Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	data, err := q.read()
	if err != nil {
		return nil, err
	}
	d := lease(data.Items, visibilityTimeout)
	if d == nil {
		return nil, nil
	}
	if err := q.write(data); err != nil {
		return nil, err
	}
	return d, nil
}

func (q *FileQueue) Complete(_ context.Context, receipt string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	data, err := q.read()
	if err != nil {
		return err
	}
	for i := range data.Items {
		if data.Items[i].Receipt == receipt {
			data.Items = append(data.Items[:i], data.Items[i+1:]...)
			return q.write(data)
		}
	}
	return nil
}

func (q *FileQueue) Abandon(_ context.Context, receipt string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	data, err := q.read()
	if err != nil {
		return err
	}
	for i := range data.Items {
		if data.Items[i].Receipt == receipt {
			data.Items[i].VisibleAt = time.Now().UnixMilli()
			return q.write(data)
		}
	}
	return nil
}
