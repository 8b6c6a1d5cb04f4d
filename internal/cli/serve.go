package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/seedsoil/internal/intake"
	"github.com/lazypower/seedsoil/internal/server"
)

var serveNoInbox bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: "Serve the HTTP API. On start the remote snapshot is pulled and decay applied; " +
		"every local change is pushed back while the server runs. When intake.inbox is set " +
		"the inbox directory is watched as well.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoInbox, "no-inbox", false, "Do not watch the intake inbox")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	// Follow before the session starts so decay applied after the pull is
	// pushed back.
	stopFollow := a.follow(ctx)
	defer stopFollow()
	if a.sync != nil {
		fmt.Fprintf(os.Stderr, "  sync: %s\n", a.cfg.Sync.Backend)
	}

	if _, err := a.startSession(ctx); err != nil {
		return err
	}
	a.eng.StartDecayTimer()

	if a.eng.Summarizer != nil {
		fmt.Fprintf(os.Stderr, "  llm: %s (%s)\n", a.cfg.LLM.Provider, a.cfg.LLM.Model)
	} else {
		fmt.Fprintf(os.Stderr, "warning: LLM not configured, pulses disabled\n")
	}

	if a.cfg.Intake.Inbox != "" && !serveNoInbox {
		inbox, err := newInbox(a)
		if err != nil {
			return err
		}
		go func() {
			if err := inbox.Watch(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "inbox watch: %v\n", err)
			}
		}()
		fmt.Fprintf(os.Stderr, "  inbox: %s\n", a.cfg.Intake.Inbox)
	}

	addr := a.cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.New(a.eng, VersionString()),
		// Request contexts end with the process so event streams close on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "seedsoil serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", a.db.Path)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newInbox builds the intake inbox from config.
func newInbox(a *app) (*intake.Inbox, error) {
	reg, err := intake.NewRegistry(a.cfg.Intake.Patterns)
	if err != nil {
		return nil, fmt.Errorf("intake patterns: %w", err)
	}
	pulse := a.cfg.Intake.Pulse && a.eng.Summarizer != nil
	return intake.NewInbox(a.cfg.Intake.Inbox, reg, a.eng, pulse)
}
