package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/orion-system/patchforge/config"
	"github.com/orion-system/patchforge/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root string, rel string, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestScanSortedAndHashed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "zebra.txt", "zzz")
	writeFile(t, root, "alpha.txt", "aaa")
	writeFile(t, root, "data/nested/deep.bin", "deep")

	entries, err := New(config.Default()).Scan(context.Background(), root)
	require.NoError(t, err)

	paths := []string{}
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"alpha.txt", "data/nested/deep.bin", "zebra.txt"}, paths)

	assert.Equal(t, int64(3), entries[0].Size)
	assert.Equal(t, util.SHA256Bytes([]byte("aaa")), entries[0].SHA256)
	assert.Equal(t, util.SHA256Bytes([]byte("deep")), entries[1].SHA256)
}

func TestScanIgnoreRules(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "keep")
	writeFile(t, root, "debug.log", "noise")
	writeFile(t, root, "game.pdb", "symbols")
	writeFile(t, root, "Temp/scratch.bin", "scratch")
	writeFile(t, root, "Logs/old/run.txt", "run")
	writeFile(t, root, "data/Temp/cached.bin", "cached")
	writeFile(t, root, "files_manifest.json", "{}")

	entries, err := New(config.Default()).Scan(context.Background(), root)
	require.NoError(t, err)

	paths := []string{}
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"keep.txt"}, paths)
}

func TestScanEmptyTree(t *testing.T) {
	entries, err := New(config.Default()).Scan(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := New(config.Default()).Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestScanDetectsContentChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello")

	s := New(config.Default())
	before, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	writeFile(t, root, "a.txt", "hello!")
	after, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.NotEqual(t, before[0].SHA256, after[0].SHA256)
	assert.Equal(t, int64(6), after[0].Size)
}

func TestScanSingleWorkerMatchesParallel(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"a", "b", "c", "d", "e"} {
		writeFile(t, root, f+".bin", f+f+f)
	}

	serial := New(config.Default())
	serial.Workers = 1
	parallel := New(config.Default())
	parallel.Workers = 8

	got1, err := serial.Scan(context.Background(), root)
	require.NoError(t, err)
	got2, err := parallel.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, got1, got2)
}
