package apply_hash

import (
	"os"

	"github.com/orion-system/patchforge/logger"
	"github.com/orion-system/patchforge/manifest"
	"github.com/orion-system/patchforge/util"
	"github.com/spf13/cobra"
)

var source = ""
var noValidate = false

// Cmd is the declaration of the command line
var Cmd = &cobra.Command{
	Use:   "apply-hash",
	Short: "Stamp a JSON document with its canonical integrity hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(source)
		if err != nil {
			return err
		}
		stamped, hash, err := manifest.StampDocument(raw)
		if err != nil {
			return err
		}
		if err := util.WriteFileAtomic(source, stamped, 0644); err != nil {
			return err
		}
		logger.Info("hash applied", "path", source, "hash", hash)

		if !noValidate {
			res, err := manifest.VerifyDocument(stamped)
			if err != nil {
				return err
			}
			if !res.OK() {
				logger.AddSummaryWarning("document failed self check", "path", source, "result", res.String())
			}
		}
		return nil
	},
}

func init() {
	flags := Cmd.Flags()
	flags.StringVarP(&source, "source", "s", source, "JSON document to stamp")
	flags.BoolVar(&noValidate, "no-validate", noValidate, "Skip re-verifying after stamping")
	Cmd.MarkFlagRequired("source")
}
