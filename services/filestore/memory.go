package filestore

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

type File struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps files in memory. Used by tests and DEV.
type MemoryStore struct {
	mu      sync.RWMutex
	files   map[string]File
	baseURL string
}

var _ core.FileStore = (*MemoryStore)(nil)

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		files:   make(map[string]File),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "reading upload")
	}
	s.mu.Lock()
	s.files[key] = File{ContentType: contentType, Data: data}
	s.mu.Unlock()
	return s.baseURL + "/" + key, nil
}

func (s *MemoryStore) Get(key string) (File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[key]
	return f, ok
}
