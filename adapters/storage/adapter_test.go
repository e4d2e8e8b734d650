package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iac-pipeline/internal/config"
	"iac-pipeline/internal/errors"
)

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "costs.json", []byte(`{"a":1}`)))
	require.NoError(t, s.Put(ctx, "runs/r1/deployment.json", []byte(`{}`)))
	require.NoError(t, s.Put(ctx, "costs.json", []byte(`{"a":2}`)))

	data, err := s.Get(ctx, "costs.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	onDisk, err := os.ReadFile(filepath.Join(dir, "runs", "r1", "deployment.json"))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(onDisk))

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"costs.json", "runs/r1/deployment.json"}, keys, "no temp files left behind")

	assert.Equal(t, filepath.Join(dir, "costs.json"), s.Location("costs.json"))
}

func TestFileStoreMissing(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "costs.json")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeNotFound))
}

func TestInvalidKeys(t *testing.T) {
	stores := map[string]Store{"memory": NewMemoryStore()}
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	stores["file"] = fs

	for name, s := range stores {
		for _, key := range []string{"", "/etc/passwd", "../costs.json"} {
			err := s.Put(context.Background(), key, []byte("x"))
			assert.True(t, errors.IsType(err, errors.TypeInput), "%s %q", name, key)
		}
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "k.json", buf))
	buf[0] = 'x'

	got, err := s.Get(ctx, "k.json")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, _ := s.Get(ctx, "k.json")
	assert.Equal(t, "abc", string(again))

	_, err = s.Get(ctx, "missing.json")
	assert.True(t, errors.IsType(err, errors.TypeNotFound))
}

func TestStoreFactory(t *testing.T) {
	dir := t.TempDir()

	s, err := StoreFactory(config.ArtifactsConfig{Backend: "file", Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = StoreFactory(config.ArtifactsConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = StoreFactory(config.ArtifactsConfig{Backend: "s3"})
	assert.True(t, errors.IsType(err, errors.TypeConfig))

	_, err = StoreFactory(config.ArtifactsConfig{Backend: "gcs"})
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}
