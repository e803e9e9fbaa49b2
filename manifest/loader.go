package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/orion-system/patchforge/util"
)

// ErrSchema marks a document that is structurally unusable: required fields
// absent or malformed. Always fatal at load time, unlike a hash mismatch.
var ErrSchema = errors.New("schema error")

// Load reads and validates a manifest document. A structural problem is an
// error; a stale or missing integrity hash is not, and is left for the
// caller to check with Verify.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	m := &Manifest{}
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("%w: manifest %s: %s", ErrSchema, path, err)
	}
	if err := validate(m); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

func validate(m *Manifest) error {
	if m.Version == "" {
		return fmt.Errorf("%w: missing version", ErrSchema)
	}
	seen := map[string]bool{}
	for i, f := range m.Files {
		if f.Path == "" {
			return fmt.Errorf("%w: files[%d] missing path", ErrSchema, i)
		}
		if f.SHA256 == "" {
			return fmt.Errorf("%w: files[%d] (%s) missing sha256", ErrSchema, i, f.Path)
		}
		if f.Size < 0 {
			return fmt.Errorf("%w: files[%d] (%s) negative size", ErrSchema, i, f.Path)
		}
		if seen[f.Path] {
			return fmt.Errorf("%w: duplicate path %q", ErrSchema, f.Path)
		}
		seen[f.Path] = true
	}
	return nil
}

// Save writes the manifest with a temp-file-then-rename so a crashed run
// never leaves a truncated manifest behind.
func Save(path string, m *Manifest) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	if err := util.WriteFileAtomic(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

// StampDocument computes the integrity hash of an arbitrary JSON document
// and returns the document re-serialized with the manifest_hash member set,
// along with the hash. The input bytes are not modified.
func StampDocument(raw []byte) ([]byte, string, error) {
	hash, err := HashDocument(raw)
	if err != nil {
		return nil, "", err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrSchema, err)
	}
	doc[HashField] = hash
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, "", err
	}
	return append(out, '\n'), hash, nil
}
