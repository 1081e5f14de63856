package archive

import (
	"context"
	"maps"
	"sync"
	"time"
)

type memoryObject struct {
	info Info
	data []byte
}

type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemory() *MemoryStore {
	return &MemoryStore{objects: map[string]memoryObject{}}
}

func (s *MemoryStore) Driver() Driver { return DriverMemory }

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, opts PutOptions) (Info, error) {
	k, err := CleanKey(key)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[k]; ok {
		return Info{}, ErrExists
	}
	info := Info{
		Key:         k,
		Size:        int64(len(data)),
		ContentType: opts.ContentType,
		ETag:        etag(data),
		Metadata:    maps.Clone(opts.Metadata),
		CreatedAt:   time.Now().UTC(),
	}
	s.objects[k] = memoryObject{info: info, data: append([]byte(nil), data...)}
	return info, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Info, []byte, error) {
	k, err := CleanKey(key)
	if err != nil {
		return Info{}, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[k]
	if !ok {
		return Info{}, nil, ErrNotFound
	}
	return obj.info, append([]byte(nil), obj.data...), nil
}
