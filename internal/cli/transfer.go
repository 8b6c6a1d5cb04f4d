package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/seedsoil/internal/store"
)

// syncTimeout bounds a remote call made from a one-shot command.
const syncTimeout = 2 * time.Minute

// --- export ---

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every seed and gap as a portable document",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		doc := a.eng.Document()
		var data []byte
		switch strings.ToLower(exportFormat) {
		case "json":
			data, err = doc.EncodeJSON()
		case "yaml", "yml":
			data, err = doc.EncodeYAML()
		default:
			return fmt.Errorf("unknown format %q (want json or yaml)", exportFormat)
		}
		if err != nil {
			return err
		}

		if exportOutput == "" || exportOutput == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(os.Stderr, "exported %d seeds to %s\n", len(doc.Items), exportOutput)
		return nil
	},
}

// --- import ---

var importFormat string

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace every seed with the contents of an exported document",
	Long: "Import a document written by export. The local garden is replaced, not merged. " +
		"Reads stdin when no file is given. The format follows the file extension unless --format is set.",
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	format := strings.ToLower(importFormat)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
		if format == "" {
			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".yaml", ".yml":
				format = "yaml"
			}
		}
	}
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}

	var doc *store.Document
	switch format {
	case "", "json":
		doc, err = store.DecodeDocument(data)
	case "yaml", "yml":
		doc, err = store.DecodeYAMLDocument(data)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", importFormat)
	}
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.eng.Import(doc); err != nil {
		return err
	}
	a.push(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d seeds\n", len(doc.Items))
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json or yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "Input format: json or yaml")
}

// --- sync ---

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Move the garden to or from the remote document store",
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace local seeds with the remote snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.sync == nil {
			return errSyncOff
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), syncTimeout)
		defer cancel()
		doc, err := a.sync.Pull(ctx)
		if err != nil {
			return err
		}
		if doc == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "remote is empty; local seeds left alone")
			return nil
		}
		if err := a.eng.Garden.Replace(doc.Collection(), false); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pulled %d seeds\n", len(doc.Items))
		return nil
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Overwrite the remote snapshot with local seeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.sync == nil {
			return errSyncOff
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), syncTimeout)
		defer cancel()
		doc := a.eng.Document()
		if err := a.sync.Push(ctx, doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pushed %d seeds\n", len(doc.Items))
		return nil
	},
}

var errSyncOff = errors.New("sync is not configured (set sync.backend)")

func init() {
	syncCmd.AddCommand(syncPullCmd)
	syncCmd.AddCommand(syncPushCmd)
}
