package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore implements Store in process. Staged state is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemoryStore creates an empty in-process staging store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, scope Scope, key, field string, dest any) (bool, error) {
	if err := scope.validate(); err != nil {
		return false, err
	}

	s.mu.RLock()
	raw, ok := s.data[scope.key("", key)][field]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode staged %s.%s: %w", key, field, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, scope Scope, key string, fields map[string]any) error {
	if err := scope.validate(); err != nil {
		return err
	}

	encoded := make(map[string][]byte, len(fields))
	for field, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode staged %s.%s: %w", key, field, err)
		}
		encoded[field] = raw
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	k := scope.key("", key)
	if s.data[k] == nil {
		s.data[k] = make(map[string][]byte, len(encoded))
	}
	for field, raw := range encoded {
		s.data[k][field] = raw
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, scope Scope, key string, fields ...string) error {
	if err := scope.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	k := scope.key("", key)
	if len(fields) == 0 {
		delete(s.data, k)
		return nil
	}
	for _, field := range fields {
		delete(s.data[k], field)
	}
	if len(s.data[k]) == 0 {
		delete(s.data, k)
	}
	return nil
}
