// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-process backend. It records every successful write
// so tests can assert exactly which objects an operation created.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	writes  []string
	threads int
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte), threads: 4}
}

func (m *Memory) Threads() int { return m.threads }

func (m *Memory) Close() error { return nil }

func (m *Memory) Read(ctx context.Context, path string) ([]byte, error) {
	if err := check(ctx, path); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return bytes.Clone(data), nil
}

func (m *Memory) Write(ctx context.Context, path string, produce Producer) (int64, error) {
	if err := check(ctx, path); err != nil {
		return 0, err
	}
	var content bytes.Buffer
	err := produce(func(data []byte) error {
		content.Write(data)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("backend: writing %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; ok {
		return 0, fmt.Errorf("%w: %s", ErrExists, path)
	}
	m.objects[path] = content.Bytes()
	m.writes = append(m.writes, path)
	return int64(content.Len()), nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	if err := check(ctx, path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	delete(m.objects, path)
	return nil
}

func (m *Memory) List(ctx context.Context, prefix string, visit func(string) error) error {
	m.mu.Lock()
	var paths []string
	for path := range m.objects {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	m.mu.Unlock()

	slices.Sort(paths)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := visit(path); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Test(ctx context.Context, path string) (bool, error) {
	if err := check(ctx, path); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok, nil
}

// Writes returns every path successfully written so far, in order.
func (m *Memory) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.writes)
}

// Count returns the number of stored paths beginning with prefix.
func (m *Memory) Count(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for path := range m.objects {
		if strings.HasPrefix(path, prefix) {
			count++
		}
	}
	return count
}

// Corrupt applies mutate to the stored bytes of path in place. Tests
// use it to simulate tampering at rest.
func (m *Memory) Corrupt(path string, mutate func([]byte) []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if data, ok := m.objects[path]; ok {
		m.objects[path] = mutate(bytes.Clone(data))
	}
}
