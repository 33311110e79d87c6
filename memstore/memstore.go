// Package memstore is the in-memory implementation of spec.SessionStore.
// It is the default durable tier for single-process deployments and
// tests; use sqlitestore when session values must survive restarts.
package memstore

import (
	"context"
	"sync"

	"github.com/convodesk/convoskills-go/spec"
)

type Store struct {
	mu sync.RWMutex
	m  map[spec.SessionID]map[string][]byte
}

func New() *Store {
	return &Store{m: map[spec.SessionID]map[string][]byte{}}
}

func (s *Store) Get(ctx context.Context, sessionID spec.SessionID, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	kv := s.m[sessionID]
	if kv == nil {
		return nil, false, nil
	}
	b, ok := kv[key]
	if !ok {
		return nil, false, nil
	}
	out := append([]byte(nil), b...)
	return out, true, nil
}

func (s *Store) Set(ctx context.Context, sessionID spec.SessionID, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kv := s.m[sessionID]
	if kv == nil {
		kv = map[string][]byte{}
		s.m[sessionID] = kv
	}
	kv[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(ctx context.Context, sessionID spec.SessionID, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if kv := s.m[sessionID]; kv != nil {
		delete(kv, key)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID spec.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, sessionID)
	return nil
}
