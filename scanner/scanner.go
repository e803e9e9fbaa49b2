// Package scanner enumerates a build tree into manifest entries. The walk
// prunes ignored folders, hashing runs over a bounded worker pool, and the
// result is always sorted by normalized relative path so two scans of the
// same tree produce identical output no matter how the filesystem iterates.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/orion-system/patchforge/config"
	"github.com/orion-system/patchforge/logger"
	"github.com/orion-system/patchforge/manifest"
	"github.com/orion-system/patchforge/util"
	"golang.org/x/sync/errgroup"
)

type Scanner struct {
	Ignore  config.IgnoreRules
	Workers int
	// ExcludeRootFiles are root-level filenames never listed, typically the
	// manifest file itself so the manifest can not end up hashing its own
	// bytes into its own hash.
	ExcludeRootFiles []string
}

func New(conf config.Config) *Scanner {
	return &Scanner{
		Ignore:           conf.Ignore,
		Workers:          conf.Workers,
		ExcludeRootFiles: []string{conf.ManifestFilename},
	}
}

// Scan walks root and returns one entry per file, hashed and sorted by path.
// Any unreadable file or directory aborts the scan: a manifest that silently
// omits files is worse than one that fails to build.
func (s *Scanner) Scan(ctx context.Context, root string) ([]manifest.FileEntry, error) {
	startDir, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if !util.IsDir(startDir) {
		return nil, fmt.Errorf("source directory %s does not exist", root)
	}

	folderSet := map[string]bool{}
	for _, f := range s.Ignore.Folders {
		folderSet[f] = true
	}
	rootExclude := map[string]bool{}
	for _, f := range s.ExcludeRootFiles {
		rootExclude[f] = true
	}

	entries := []manifest.FileEntry{}
	err = filepath.WalkDir(startDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", path, err)
		}
		if d.IsDir() {
			if path != startDir && folderSet[d.Name()] {
				logger.Debug("skipping ignored folder", "path", path)
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(startDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rootExclude[rel] {
			return nil
		}
		if s.ignoredSuffix(rel) {
			logger.Debug("skipping ignored file", "path", rel)
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		entries = append(entries, manifest.FileEntry{Path: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Each worker writes only its own slot, so no completion order can leak
	// into the result.
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for i := range entries {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hash, err := util.SHA256File(filepath.Join(startDir, filepath.FromSlash(entries[i].Path)))
			if err != nil {
				return err
			}
			entries[i].SHA256 = hash
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (s *Scanner) ignoredSuffix(rel string) bool {
	name := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		name = rel[i+1:]
	}
	for _, suffix := range s.Ignore.Suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func (s *Scanner) workers() int {
	if s.Workers < 1 {
		return 1
	}
	return s.Workers
}
