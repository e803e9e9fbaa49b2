package generate_patches

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/orion-system/patchforge/config"
	"github.com/orion-system/patchforge/delta"
	"github.com/orion-system/patchforge/diffs"
	"github.com/orion-system/patchforge/logger"
	"github.com/orion-system/patchforge/manifest"
	"github.com/orion-system/patchforge/packager"
	"github.com/orion-system/patchforge/release"
	"github.com/orion-system/patchforge/scanner"
	"github.com/orion-system/patchforge/util"
	"github.com/spf13/cobra"
)

var oldDir = "Old"
var newDir = "New"
var patchesOut = "Patches"
var encoderName = ""
var configPath = ""

// Cmd is the declaration of the command line
var Cmd = &cobra.Command{
	Use:   "generate-patches",
	Short: "Diff two build trees and package the patch bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := config.Default()
		if configPath != "" {
			var err error
			conf, err = config.LoadFile(configPath)
			if err != nil {
				return err
			}
		}
		if encoderName != "" {
			conf.Patch.Encoder = encoderName
		}

		oldM, err := treeManifest(cmd.Context(), conf, oldDir)
		if err != nil {
			return err
		}
		newM, err := treeManifest(cmd.Context(), conf, newDir)
		if err != nil {
			return err
		}

		diff := diffs.Classify(oldM, newM)
		logger.Info("trees classified",
			"added", diff.Count(diffs.Added),
			"modified", diff.Count(diffs.Modified),
			"unchanged", diff.Count(diffs.Unchanged),
			"removed", diff.Count(diffs.Removed))
		for _, e := range diff.Entries {
			if e.Class == diffs.Removed {
				logger.Warn("file removed in new tree, not patched", "path", e.Path)
			}
		}

		enc, err := delta.FromConfig(conf.Patch)
		if err != nil {
			return err
		}
		pm, bundlePath, err := packager.New(enc, conf).BuildPatchSet(
			cmd.Context(), oldDir, newDir, newM.Version, diff, patchesOut)
		if err != nil {
			return err
		}
		logger.Info("patch set complete", "version", pm.Version,
			"patches", len(pm.PatchFiles), "bundle", bundlePath)

		builder := release.Builder{Naming: release.Naming{
			Product:   conf.Release.Product,
			Templates: conf.Release.Patch,
		}}
		key, d, err := builder.BuildPatch(bundlePath, oldM, newM)
		if err != nil {
			return err
		}
		infoPath := filepath.Join(filepath.Dir(bundlePath),
			fmt.Sprintf("release_info_%s.json", key))
		if err := release.WriteDocument(infoPath, key, d); err != nil {
			return err
		}
		logger.Info("patch release info written", "path", infoPath, "tag", d.Tag, "url", d.DownloadURL)
		return nil
	},
}

// treeManifest reuses a stored manifest when it exists and verifies, and
// falls back to a fresh scan otherwise, so patch generation never trusts a
// tampered or stale manifest.
func treeManifest(ctx context.Context, conf config.Config, dir string) (*manifest.Manifest, error) {
	path := filepath.Join(dir, conf.ManifestFilename)
	if util.Exists(path) {
		m, err := manifest.Load(path)
		if err == nil {
			res, verr := manifest.Verify(m)
			if verr != nil {
				return nil, verr
			}
			if res.OK() {
				logger.Debug("using stored manifest", "path", path)
				return m, nil
			}
			logger.Warn("stored manifest failed verification, rescanning", "path", path, "result", res.String())
		} else {
			logger.Warn("stored manifest unreadable, rescanning", "path", path, "error", err)
		}
	}
	version := manifest.ReadVersion(dir, conf.VersionFilename)
	entries, err := scanner.New(conf).Scan(ctx, dir)
	if err != nil {
		return nil, err
	}
	return manifest.Build(entries, version)
}

func init() {
	flags := Cmd.Flags()
	flags.StringVar(&oldDir, "old", oldDir, "Previous build tree")
	flags.StringVar(&newDir, "new", newDir, "New build tree")
	flags.StringVar(&patchesOut, "patches-out", patchesOut, "Directory for patch blobs; the bundle lands next to it")
	flags.StringVar(&encoderName, "delta", encoderName, "Delta encoder override (bsdiff, verbatim, exec)")
	flags.StringVar(&configPath, "config", configPath, "Pipeline config YAML")
}
