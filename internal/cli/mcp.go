package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	seedmcp "github.com/lazypower/seedsoil/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the garden as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		// Same order as serve: follow first so session decay reaches the remote.
		stopFollow := a.follow(ctx)
		defer stopFollow()

		if _, err := a.startSession(ctx); err != nil {
			return err
		}
		a.eng.StartDecayTimer()

		return seedmcp.Run(a.eng, VersionString())
	},
}
