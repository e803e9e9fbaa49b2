package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []FileEntry {
	return []FileEntry{
		{Path: "launcher.exe", Size: 120, SHA256: "aa11"},
		{Path: "data/level1.bin", Size: 4096, SHA256: "bb22"},
		{Path: "data/level2.bin", Size: 8192, SHA256: "cc33"},
	}
}

func TestBuildVerifyIdempotent(t *testing.T) {
	m, err := Build(sampleEntries(), "1.0.0")
	require.NoError(t, err)
	res, err := Verify(m)
	require.NoError(t, err)
	assert.Equal(t, Valid, res.Status)
	assert.Equal(t, m.ManifestHash, res.Stored)
}

func TestBuildSortsAndSums(t *testing.T) {
	m, err := Build(sampleEntries(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/level1.bin", "data/level2.bin", "launcher.exe"},
		[]string{m.Files[0].Path, m.Files[1].Path, m.Files[2].Path})
	assert.Equal(t, int64(120+4096+8192), m.BuildTotalSize)
}

func TestBuildOrderIndependent(t *testing.T) {
	a := sampleEntries()
	b := []FileEntry{a[2], a[0], a[1]}

	m1, err := Build(a, "1.0.0")
	require.NoError(t, err)
	m2, err := Build(b, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, m1.ManifestHash, m2.ManifestHash)
}

func TestCanonicalStability(t *testing.T) {
	m, err := Build(sampleEntries(), "1.0.0")
	require.NoError(t, err)
	raw, err := json.Marshal(m)
	require.NoError(t, err)

	h1, err := HashDocument(raw)
	require.NoError(t, err)
	h2, err := HashDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, m.ManifestHash, h1)
}

func TestBuildRejectsDuplicatePaths(t *testing.T) {
	entries := sampleEntries()
	entries = append(entries, FileEntry{Path: "launcher.exe", Size: 1, SHA256: "dd44"})
	_, err := Build(entries, "1.0.0")
	require.ErrorIs(t, err, ErrSchema)
}

func TestVerifyMissing(t *testing.T) {
	m, err := Build(sampleEntries(), "1.0.0")
	require.NoError(t, err)
	m2 := *m
	m2.ManifestHash = ""
	res, err := Verify(&m2)
	require.NoError(t, err)
	assert.Equal(t, Missing, res.Status)
}

func TestVerifyDetectsTamper(t *testing.T) {
	m, err := Build(sampleEntries(), "1.0.0")
	require.NoError(t, err)

	tampered := *m
	tampered.Files = append([]FileEntry{}, m.Files...)
	tampered.Files[0].SHA256 = "ee55"

	res, err := Verify(&tampered)
	require.NoError(t, err)
	assert.Equal(t, Invalid, res.Status)
	assert.Equal(t, m.ManifestHash, res.Stored)
	assert.NotEmpty(t, res.Computed)
	assert.NotEqual(t, res.Stored, res.Computed)
}

func TestVerifyDocumentDetectsByteFlip(t *testing.T) {
	m, err := Build(sampleEntries(), "1.0.0")
	require.NoError(t, err)
	raw, err := json.Marshal(m)
	require.NoError(t, err)

	flipped := bytes.Replace(raw, []byte("bb22"), []byte("bb23"), 1)
	require.NotEqual(t, raw, flipped)

	res, err := VerifyDocument(flipped)
	require.NoError(t, err)
	assert.Equal(t, Invalid, res.Status)
	assert.Equal(t, m.ManifestHash, res.Stored)
	assert.NotEqual(t, res.Stored, res.Computed)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m, err := Build(sampleEntries(), "2.1.0")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "files_manifest.json")
	require.NoError(t, Save(path, m))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)

	res, err := Verify(loaded)
	require.NoError(t, err)
	assert.Equal(t, Valid, res.Status)
}

func TestLoadRejectsMissingVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files_manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"files":[],"build_total_size":0}`), 0644))
	_, err := Load(path)
	require.ErrorIs(t, err, ErrSchema)
}

func TestLoadRejectsIncompleteEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files_manifest.json")
	doc := `{"version":"1.0.0","files":[{"path":"a.txt","size":1}],"build_total_size":1}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	_, err := Load(path)
	require.ErrorIs(t, err, ErrSchema)
}

func TestStampDocument(t *testing.T) {
	raw := []byte(`{"version":"1.0.0","patch_files":[{"path":"a.txt","patch":"a.txt.xdelta","size":6,"sha256":"ff66"}]}`)

	stamped, hash, err := StampDocument(raw)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	res, err := VerifyDocument(stamped)
	require.NoError(t, err)
	assert.Equal(t, Valid, res.Status)

	// Re-stamping an already stamped document yields the same hash: the
	// stored hash is excluded from the bytes being hashed.
	_, hash2, err := StampDocument(stamped)
	require.NoError(t, err)
	assert.Equal(t, hash, hash2)
}

func TestReadVersionFallback(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "0.0.0", ReadVersion(dir, "version.txt"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "version.txt"), []byte("3.4.5\n"), 0644))
	assert.Equal(t, "3.4.5", ReadVersion(dir, "version.txt"))
}

func TestLookup(t *testing.T) {
	m, err := Build(sampleEntries(), "1.0.0")
	require.NoError(t, err)

	e, ok := m.Lookup("data/level2.bin")
	require.True(t, ok)
	assert.Equal(t, int64(8192), e.Size)

	_, ok = m.Lookup("missing.bin")
	assert.False(t, ok)
}
