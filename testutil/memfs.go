// Package testutil provides the fakes package tests build on: an
// in-memory fsadapter.FS and an httptest-backed fake remote, modeled
// directly on the teacher's own test/registry/server.go fake registry
// server.
package testutil

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"

	"github.com/ailoy-run/ailoycache/fsadapter"
)

// MemFS is an in-memory fsadapter.FS backed by a map, guarded by a
// mutex. Every method is a direct analogue of fsadapter/native.go's
// behavior, without touching disk.
type MemFS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemFS returns an empty in-memory filesystem.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

var _ fsadapter.FS = (*MemFS)(nil)

func (m *MemFS) Read(_ context.Context, p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[clean(p)]
	if !ok {
		return nil, fsadapter.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemFS) Write(_ context.Context, p string, data []byte, createParents bool) error {
	cleaned := clean(p)
	if !createParents && strings.Contains(cleaned, "/") {
		dir := path.Dir(cleaned)
		m.mu.RLock()
		_, hasSibling := m.hasAnyUnder(dir)
		m.mu.RUnlock()
		if !hasSibling {
			return errors.New("testutil: parent directory does not exist and createParents is false")
		}
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[cleaned] = cp
	return nil
}

func (m *MemFS) hasAnyUnder(dir string) (string, bool) {
	prefix := dir + "/"
	for k := range m.files {
		if strings.HasPrefix(k, prefix) {
			return k, true
		}
	}
	return "", false
}

func (m *MemFS) Remove(_ context.Context, p string) error {
	cleaned := clean(p)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[cleaned]; ok {
		delete(m.files, cleaned)
		return nil
	}

	prefix := cleaned + "/"
	removed := false
	for k := range m.files {
		if strings.HasPrefix(k, prefix) {
			delete(m.files, k)
			removed = true
		}
	}
	if !removed {
		return fsadapter.ErrNotFound
	}
	return nil
}

func (m *MemFS) Exists(_ context.Context, p string) bool {
	cleaned := clean(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[cleaned]; ok {
		return true
	}
	_, ok := m.hasAnyUnder(cleaned)
	return ok
}

func clean(p string) string {
	return strings.Trim(path.Clean("/"+p), "/")
}
