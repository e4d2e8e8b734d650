// Package storage keeps pipeline artifacts (costs.json, decision.json, deployment.json).
// Supports multiple backends: file, memory and S3.
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"iac-pipeline/internal/config"
	"iac-pipeline/internal/errors"
)

// Backend is a storage backend type
type Backend string

const (
	BackendFile   Backend = "file"
	BackendS3     Backend = "s3"
	BackendMemory Backend = "memory"
)

// Store is the artifact storage interface
type Store interface {
	// Put writes an artifact, replacing any previous content
	Put(ctx context.Context, key string, data []byte) error

	// Get reads an artifact. A missing key is a not-found error.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the stored keys in lexical order
	List(ctx context.Context) ([]string, error)

	// Location describes where key lives, for logs and messages
	Location(key string) string

	// Close closes the store
	Close() error
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return errors.Newf(errors.TypeInput, "invalid artifact key %q", key)
	}
	return nil
}

// FileStore is a file-based storage backend
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a file store
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Internal("failed to create storage directory", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Put writes to a temporary file and renames it over the target
func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Internal("failed to create artifact directory", err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+uuid.New().String()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Internal("failed to write "+key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Internal("failed to write "+key, err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, errors.NotFound("artifact", s.Location(key))
	}
	if err != nil {
		return nil, errors.Internal("failed to read "+key, err)
	}
	return data, nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	err := filepath.WalkDir(s.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") || filepath.Ext(path) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Internal("failed to list artifacts", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) Location(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

func (s *FileStore) Close() error {
	return nil
}

// MemoryStore is an in-memory storage backend (for testing)
type MemoryStore struct {
	objects map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, errors.NotFound("artifact", s.Location(key))
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Location(key string) string {
	return "memory://" + key
}

func (s *MemoryStore) Close() error {
	return nil
}

// StoreFactory creates a store from the artifacts configuration
func StoreFactory(cfg config.ArtifactsConfig) (Store, error) {
	switch Backend(cfg.Backend) {
	case BackendFile, "":
		path := cfg.Path
		if path == "" {
			path = "."
		}
		return NewFileStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendS3:
		return NewS3Store(S3Config{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Prefix:   cfg.Prefix,
			Endpoint: cfg.Endpoint,
		})
	default:
		return nil, errors.Newf(errors.TypeConfig, "unsupported artifact backend: %s", cfg.Backend)
	}
}

// Ensure interfaces are implemented
var _ io.Closer = (*FileStore)(nil)
var _ io.Closer = (*MemoryStore)(nil)
var _ Store = (*FileStore)(nil)
var _ Store = (*MemoryStore)(nil)

