// Package manifest builds and verifies the canonical, self-verifying
// description of a build tree: every file with its size and SHA-256, the
// aggregate size, and an integrity hash over the document itself.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/orion-system/patchforge/logger"
)

// FileEntry describes one file in a build tree. Path is relative to the tree
// root, forward-slash separated, and unique within a manifest.
type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type Manifest struct {
	Version        string      `json:"version"`
	Files          []FileEntry `json:"files"`
	BuildTotalSize int64       `json:"build_total_size"`
	ManifestHash   string      `json:"manifest_hash,omitempty"`
}

// Build assembles a manifest from scanned entries. Entries are copied and
// sorted by path before hashing, so the result is independent of the order
// the caller produced them in.
func Build(entries []FileEntry, version string) (*Manifest, error) {
	files := make([]FileEntry, len(entries))
	copy(files, entries)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	var total int64
	for i, f := range files {
		if f.Path == "" {
			return nil, fmt.Errorf("%w: file entry %d has empty path", ErrSchema, i)
		}
		if i > 0 && files[i-1].Path == f.Path {
			return nil, fmt.Errorf("%w: duplicate path %q", ErrSchema, f.Path)
		}
		total += f.Size
	}

	m := &Manifest{
		Version:        version,
		Files:          files,
		BuildTotalSize: total,
	}
	hash, err := m.computeHash()
	if err != nil {
		return nil, err
	}
	m.ManifestHash = hash
	return m, nil
}

// ReadVersion reads the trimmed version string from the version file inside
// root. A missing file is tolerated and falls back to "0.0.0".
func ReadVersion(root string, versionFilename string) string {
	path := filepath.Join(root, versionFilename)
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("version file not readable, using fallback", "path", path, "error", err)
		return "0.0.0"
	}
	return strings.TrimSpace(string(raw))
}

func (m *Manifest) FileCount() int {
	return len(m.Files)
}

// Lookup returns the entry for a normalized relative path.
func (m *Manifest) Lookup(path string) (FileEntry, bool) {
	i := sort.Search(len(m.Files), func(i int) bool { return m.Files[i].Path >= path })
	if i < len(m.Files) && m.Files[i].Path == path {
		return m.Files[i], true
	}
	return FileEntry{}, false
}
