package cli

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "seedsoil",
	Short: "A garden for the things you want to remember",
	Long: "Seedsoil captures knowledge fragments, distills them with an LLM into seeds, " +
		"lets unreviewed seeds decay and buries the ones you let go.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			log.SetOutput(io.Discard)
		} else {
			log.SetOutput(os.Stderr)
		}
	},
}

// Execute runs the seedsoil command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.seedsoil/config.yaml)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress log output")

	rootCmd.AddCommand(
		versionCmd,
		serveCmd,
		mcpCmd,

		captureCmd,
		pulseCmd,
		reviewCmd,
		showCmd,
		reviewedCmd,
		archiveCmd,
		resurrectCmd,
		buriedCmd,
		gapsCmd,
		clearCmd,
		statusCmd,

		exportCmd,
		importCmd,
		syncCmd,
		intakeCmd,
	)
}
