package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocal_PutCreatesDirsAndGetReadsBack(t *testing.T) {
	root := t.TempDir()
	s, err := New(context.Background(), Options{Driver: "local", Dir: root}, zap.NewNop())
	require.NoError(t, err)

	key := Key(EvidenceDir(1, 2, time.UnixMilli(1000)), "initial.png")
	p, err := s.Put(context.Background(), key, []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "tasks", "1-2-1000", "initial.png"), p)

	byKey, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	byPath, err := s.Get(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), byKey)
	assert.Equal(t, byKey, byPath)

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestKey_StaysUnderRoot(t *testing.T) {
	assert.Equal(t, "tasks/a/b.png", Key("/tasks", "a", "b.png"))
	assert.Equal(t, "etc/passwd", Key("../../etc/passwd"))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Options{Driver: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}
