package build_release

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/orion-system/patchforge/bundle"
	"github.com/orion-system/patchforge/config"
	"github.com/orion-system/patchforge/logger"
	"github.com/orion-system/patchforge/manifest"
	"github.com/orion-system/patchforge/release"
	"github.com/spf13/cobra"
)

var buildDir = "MakeBuild"
var buildsOut = "Builds"
var configPath = ""

// Cmd is the declaration of the command line
var Cmd = &cobra.Command{
	Use:   "build-release",
	Short: "Zip a full build and emit its release descriptor",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := config.Default()
		if configPath != "" {
			var err error
			conf, err = config.LoadFile(configPath)
			if err != nil {
				return err
			}
		}

		manifestPath := filepath.Join(buildDir, conf.ManifestFilename)
		m, err := manifest.Load(manifestPath)
		if err != nil {
			return fmt.Errorf("build manifest required, run scan-manifest first: %w", err)
		}
		res, err := manifest.Verify(m)
		if err != nil {
			return err
		}
		if !res.OK() {
			logger.AddSummaryWarning("build manifest failed verification", "path", manifestPath, "result", res.String())
		}

		naming := release.Naming{
			Product:   conf.Release.Product,
			Templates: conf.Release.Build,
		}
		names, err := naming.Render(map[string]string{"version": m.Version})
		if err != nil {
			return err
		}

		versionDir := filepath.Join(buildsOut, "v"+m.Version)
		bundlePath := filepath.Join(versionDir, names.Filename)

		// Archive in manifest order, with the manifest document itself as the
		// final entry, so identical builds zip to identical bytes.
		entries := make([]string, 0, m.FileCount()+1)
		for _, f := range m.Files {
			entries = append(entries, f.Path)
		}
		entries = append(entries, conf.ManifestFilename)

		logger.Info("archiving build", "source", buildDir, "bundle", bundlePath, "files", len(entries))
		if err := bundle.Write(bundlePath, buildDir, entries); err != nil {
			return err
		}

		builder := release.Builder{Naming: naming}
		key, d, err := builder.Build(bundlePath, m)
		if err != nil {
			return err
		}
		infoPath := filepath.Join(versionDir, fmt.Sprintf("release_info_v%s.json", m.Version))
		if err := release.WriteDocument(infoPath, key, d); err != nil {
			return err
		}

		logger.Info("release ready", "tag", d.Tag,
			"compressed", humanize.Bytes(uint64(d.CompressedSize)),
			"uncompressed", humanize.Bytes(uint64(d.UncompressedSize)),
			"sha256", d.SHA256,
			"url", d.DownloadURL,
			"info", infoPath)
		return nil
	},
}

func init() {
	flags := Cmd.Flags()
	flags.StringVar(&buildDir, "build-dir", buildDir, "Build tree to package")
	flags.StringVar(&buildsOut, "builds-out", buildsOut, "Directory receiving versioned release folders")
	flags.StringVar(&configPath, "config", configPath, "Pipeline config YAML")
}
