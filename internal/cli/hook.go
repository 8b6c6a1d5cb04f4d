package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lazypower/seedsoil/internal/hooks"
)

var hookServerURL string

var hookCmd = &cobra.Command{
	Use:   "hook <start|submit|end>",
	Short: "Handle an agent hook event read from stdin",
	Long: "Answer agent session hooks against a running seedsoil server. start lists seeds " +
		"due for review, submit captures prompts with a trigger phrase and end captures the " +
		"condensed session transcript. Always exits 0 so the agent is never blocked.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"start", "submit", "end"},
	Run: func(cmd *cobra.Command, args []string) {
		h := &hooks.Handler{Client: hooks.NewClient(hookServerURL), Out: os.Stdout}
		h.Handle(args[0], cmd.InOrStdin())
	},
}

func init() {
	hookCmd.Flags().StringVar(&hookServerURL, "url", "", "seedsoil server URL (default $SEEDSOIL_URL or http://127.0.0.1:37778)")
	rootCmd.AddCommand(hookCmd)
}
