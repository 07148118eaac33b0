package storage

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
}

// MemoryBackend is an in-process Backend. It also serves stored objects
// over HTTP at "/<key>", so URLs derived against it can be dereferenced.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string]memObject

	// Latency delays every call, honouring context cancellation.
	Latency time.Duration
	// PutErr and RemoveErr, when set, are returned instead of performing the call.
	PutErr    error
	RemoveErr error
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string]memObject)}
}

func (m *MemoryBackend) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Put stores the full content of r under key.
func (m *MemoryBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	m.objects[key] = memObject{data: data, contentType: contentType}
	m.mu.Unlock()
	return nil
}

// Remove deletes key if present.
func (m *MemoryBackend) Remove(ctx context.Context, key string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Get returns the object stored under key.
func (m *MemoryBackend) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, ok
}

// Len returns the number of stored objects.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// ServeHTTP answers GET requests for stored objects. Variant query
// parameters are ignored.
func (m *MemoryBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	m.mu.RLock()
	obj, ok := m.objects[strings.TrimPrefix(r.URL.Path, "/")]
	m.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if obj.contentType != "" {
		w.Header().Set("Content-Type", obj.contentType)
	}
	_, _ = w.Write(obj.data)
}
