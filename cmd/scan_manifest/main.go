package scan_manifest

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/orion-system/patchforge/config"
	"github.com/orion-system/patchforge/logger"
	"github.com/orion-system/patchforge/manifest"
	"github.com/orion-system/patchforge/scanner"
	"github.com/spf13/cobra"
)

var source = "Old"
var output = ""
var noValidate = false
var configPath = ""

// Cmd is the declaration of the command line
var Cmd = &cobra.Command{
	Use:   "scan-manifest",
	Short: "Scan a build tree and write its file manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := config.Default()
		if configPath != "" {
			var err error
			conf, err = config.LoadFile(configPath)
			if err != nil {
				return err
			}
		}

		version := manifest.ReadVersion(source, conf.VersionFilename)
		logger.Info("scanning build tree", "source", source, "version", version)

		entries, err := scanner.New(conf).Scan(cmd.Context(), source)
		if err != nil {
			return err
		}
		m, err := manifest.Build(entries, version)
		if err != nil {
			return err
		}

		dst := output
		if dst == "" {
			dst = filepath.Join(source, conf.ManifestFilename)
		}
		if err := manifest.Save(dst, m); err != nil {
			return err
		}
		logger.Info("manifest written", "path", dst,
			"files", m.FileCount(),
			"totalSize", humanize.Bytes(uint64(m.BuildTotalSize)),
			"hash", m.ManifestHash)

		if !noValidate {
			res, err := manifest.Verify(m)
			if err != nil {
				return err
			}
			if !res.OK() {
				logger.AddSummaryWarning("manifest failed self check", "result", res.String())
			}
		}
		return nil
	},
}

func init() {
	flags := Cmd.Flags()
	flags.StringVarP(&source, "source", "s", source, "Build tree to scan")
	flags.StringVarP(&output, "output", "o", output, fmt.Sprintf("Manifest output path (default <source>/%s)", config.Default().ManifestFilename))
	flags.BoolVar(&noValidate, "no-validate", noValidate, "Skip the manifest self check after writing")
	flags.StringVar(&configPath, "config", configPath, "Pipeline config YAML")
}
