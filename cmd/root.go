package cmd

import (
	"github.com/orion-system/patchforge/cmd/apply_hash"
	"github.com/orion-system/patchforge/cmd/build_release"
	"github.com/orion-system/patchforge/cmd/generate_patches"
	"github.com/orion-system/patchforge/cmd/scan_manifest"
	"github.com/orion-system/patchforge/logger"

	"github.com/spf13/cobra"
)

var verbose = false
var logJSON = false

// RootCmd represents the root command
var RootCmd = &cobra.Command{
	Use:           "patchforge",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(verbose, logJSON)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", verbose, "Enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", logJSON, "Write logs as JSON")
	RootCmd.AddCommand(scan_manifest.Cmd)
	RootCmd.AddCommand(apply_hash.Cmd)
	RootCmd.AddCommand(generate_patches.Cmd)
	RootCmd.AddCommand(build_release.Cmd)
}
