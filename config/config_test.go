package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	conf := Default()
	assert.Equal(t, "files_manifest.json", conf.ManifestFilename)
	assert.Equal(t, "version.txt", conf.VersionFilename)
	assert.Contains(t, conf.Ignore.Folders, "Temp")
	assert.Contains(t, conf.Ignore.Suffixes, ".pdb")
	assert.Equal(t, "bsdiff", conf.Patch.Encoder)
	assert.Equal(t, ".xdelta", conf.Patch.Suffix)
	assert.Greater(t, conf.Workers, 0)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
patch:
  encoder: exec
  command: "xdelta3 -9 -e -s {{old}} {{new}} {{patch}}"
ignore:
  folders: ["Cache"]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	conf, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "exec", conf.Patch.Encoder)
	assert.Equal(t, []string{"Cache"}, conf.Ignore.Folders)
	// Untouched sections keep their defaults.
	assert.Equal(t, "files_manifest.json", conf.ManifestFilename)
	assert.Equal(t, "edupie-base", conf.Release.Product)
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("patchh:\n  encoder: exec\n"), 0644))
	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
