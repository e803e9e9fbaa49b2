// Package packager turns a classified diff into a publishable patch set: one
// delta blob per added or modified file, a patch manifest describing them,
// and a single reproducible bundle holding the lot.
package packager

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/orion-system/patchforge/bundle"
	"github.com/orion-system/patchforge/config"
	"github.com/orion-system/patchforge/delta"
	"github.com/orion-system/patchforge/diffs"
	"github.com/orion-system/patchforge/logger"
	"github.com/orion-system/patchforge/manifest"
	"github.com/orion-system/patchforge/util"
	"golang.org/x/sync/errgroup"
)

const ManifestFilename = "patch_manifest.json"

// PatchFileEntry records one patch blob. Size and SHA256 describe the *new*
// file content, not the blob, so a client can verify the result of applying
// the patch.
type PatchFileEntry struct {
	Path   string `json:"path"`
	Patch  string `json:"patch"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type PatchManifest struct {
	Version      string           `json:"version"`
	PatchFiles   []PatchFileEntry `json:"patch_files"`
	ManifestHash string           `json:"manifest_hash,omitempty"`
}

type Packager struct {
	Encoder delta.Encoder
	Suffix  string
	Workers int
}

func New(enc delta.Encoder, conf config.Config) *Packager {
	return &Packager{
		Encoder: enc,
		Suffix:  conf.Patch.Suffix,
		Workers: conf.Workers,
	}
}

// BuildPatchSet encodes every added or modified file from the diff into a
// blob under outputRoot mirroring its relative path, writes the patch
// manifest, and archives the set into <outputRoot>.zip. Any single failed
// encode fails the whole build; a partial patch set is never published.
//
// Removed and unchanged entries produce no blobs. Removed paths are
// surfaced in the diff for the consuming system to act on.
func (p *Packager) BuildPatchSet(ctx context.Context, oldRoot string, newRoot string, version string, diff diffs.Result, outputRoot string) (*PatchManifest, string, error) {
	if err := os.MkdirAll(outputRoot, 0755); err != nil {
		return nil, "", err
	}

	changed := diff.Changed()
	results := make([]PatchFileEntry, len(changed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, e := range changed {
		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := p.encodeOne(gctx, oldRoot, newRoot, e, outputRoot)
			if err != nil {
				return err
			}
			results[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	pm := &PatchManifest{Version: version, PatchFiles: results}
	raw, err := json.Marshal(pm)
	if err != nil {
		return nil, "", err
	}
	hash, err := manifest.HashDocument(raw)
	if err != nil {
		return nil, "", err
	}
	pm.ManifestHash = hash
	if err := savePatchManifest(filepath.Join(outputRoot, ManifestFilename), pm); err != nil {
		return nil, "", err
	}

	entries := make([]string, 0, len(results)+1)
	entries = append(entries, ManifestFilename)
	for _, r := range results {
		entries = append(entries, r.Patch)
	}
	bundlePath := outputRoot + ".zip"
	if err := bundle.Write(bundlePath, outputRoot, entries); err != nil {
		return nil, "", err
	}

	if size, err := util.FileSize(bundlePath); err == nil {
		logger.Info("patch bundle written", "path", bundlePath,
			"patches", len(results), "size", humanize.Bytes(uint64(size)))
	}
	return pm, bundlePath, nil
}

func (p *Packager) encodeOne(ctx context.Context, oldRoot string, newRoot string, e diffs.Entry, outputRoot string) (PatchFileEntry, error) {
	newBytes, err := os.ReadFile(filepath.Join(newRoot, filepath.FromSlash(e.Path)))
	if err != nil {
		return PatchFileEntry{}, fmt.Errorf("failed to read %s: %w", e.Path, err)
	}
	// The tree must still match the manifest it was scanned into; a file
	// changing mid-build would publish a patch whose recorded hash lies.
	if got := util.SHA256Bytes(newBytes); e.New != nil && got != e.New.SHA256 {
		return PatchFileEntry{}, fmt.Errorf("%s changed since scan: manifest %s, found %s", e.Path, e.New.SHA256, got)
	}

	var oldBytes []byte
	if e.Class == diffs.Modified {
		oldBytes, err = os.ReadFile(filepath.Join(oldRoot, filepath.FromSlash(e.Path)))
		if err != nil {
			return PatchFileEntry{}, fmt.Errorf("failed to read %s: %w", e.Path, err)
		}
	}

	blob, err := p.Encoder.Encode(ctx, oldBytes, newBytes)
	if err != nil {
		return PatchFileEntry{}, fmt.Errorf("encoding %s: %w", e.Path, err)
	}

	rel := e.Path + p.Suffix
	dst := filepath.Join(outputRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return PatchFileEntry{}, err
	}
	if err := util.WriteFileAtomic(dst, blob, 0644); err != nil {
		return PatchFileEntry{}, err
	}

	logger.Debug("patch encoded", "path", e.Path, "class", string(e.Class),
		"blobSize", humanize.Bytes(uint64(len(blob))))
	return PatchFileEntry{
		Path:   e.Path,
		Patch:  rel,
		Size:   int64(len(newBytes)),
		SHA256: util.SHA256Bytes(newBytes),
	}, nil
}

func (p *Packager) workers() int {
	if p.Workers < 1 {
		return 1
	}
	return p.Workers
}

func savePatchManifest(path string, pm *PatchManifest) error {
	raw, err := json.MarshalIndent(pm, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	return util.WriteFileAtomic(path, raw, 0644)
}

// LoadPatchManifest reads a persisted patch manifest, enforcing the schema.
func LoadPatchManifest(path string) (*PatchManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch manifest %s: %w", path, err)
	}
	pm := &PatchManifest{}
	if err := json.Unmarshal(raw, pm); err != nil {
		return nil, fmt.Errorf("%w: patch manifest %s: %s", manifest.ErrSchema, path, err)
	}
	if pm.Version == "" {
		return nil, fmt.Errorf("%w: patch manifest %s missing version", manifest.ErrSchema, path)
	}
	for i, f := range pm.PatchFiles {
		if f.Path == "" || f.Patch == "" || f.SHA256 == "" {
			return nil, fmt.Errorf("%w: patch manifest %s: patch_files[%d] incomplete", manifest.ErrSchema, path, i)
		}
	}
	return pm, nil
}
