package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/seedsoil/internal/engine"
	"github.com/lazypower/seedsoil/internal/store"
)

// --- capture ---

var captureCmd = &cobra.Command{
	Use:   "capture [text...]",
	Short: "Plant a new seed",
	Long:  "Capture text as a new seed. With no arguments, or with \"-\", the text is read from stdin.",
	RunE:  runCapture,
}

func runCapture(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 || text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	it, err := a.eng.Capture(text)
	if err != nil {
		a.pushDecay(ctx)
		return err
	}
	a.push(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "planted %s\n", it.ID)
	return nil
}

// --- pulse ---

var pulseCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Distill undistilled seeds and look for knowledge gaps",
	RunE:  runPulse,
}

func runPulse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.eng.RunPulse(ctx)
	if err != nil {
		a.pushDecay(ctx)
		return err
	}

	out := cmd.OutOrStdout()
	if report.NoNewSeeds {
		fmt.Fprintln(out, "No new seeds to distill.")
	}
	for _, r := range report.Results {
		if r.OK() {
			fmt.Fprintf(out, "  + %s  %s\n", r.ItemID, r.Seed.Essence)
		} else {
			fmt.Fprintf(out, "  ! %s  %s: %s\n", r.ItemID, r.Kind, r.Error)
		}
	}
	fmt.Fprintf(out, "distilled %d of %d (%d failed, %d skipped)\n",
		report.Distilled, report.Queued, report.Failed, report.Skipped)
	if report.Synthesized {
		fmt.Fprintf(out, "found %d knowledge gaps\n", len(report.Gaps))
	} else if report.SynthesisMsg != "" {
		fmt.Fprintf(out, "synthesis failed: %s\n", report.SynthesisMsg)
	}

	a.push(ctx)
	return nil
}

// --- review ---

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Show the seeds to review now",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()
		a.pushDecay(ctx)

		items := a.eng.Review()
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to review. Capture something and run a pulse.")
			return nil
		}
		for i, it := range items {
			printSeed(cmd.OutOrStdout(), i+1, it)
		}
		return nil
	},
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one seed with its raw text and soil",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		it, err := a.db.GetItem(args[0])
		if err != nil {
			return err
		}
		if it == nil {
			return fmt.Errorf("no seed %q", args[0])
		}

		out := cmd.OutOrStdout()
		printSeed(out, 1, *it)
		fmt.Fprintf(out, "status:    %s\n", it.Soil.Status)
		fmt.Fprintf(out, "last seen: %s\n", time.UnixMilli(it.Soil.LastSeen).Format(time.RFC3339))
		fmt.Fprintf(out, "raw:\n%s\n", it.Raw)
		return nil
	},
}

func printSeed(w io.Writer, n int, it store.Item) {
	fmt.Fprintf(w, "%d. %s [strength %.1f]\n", n, it.ID, it.Soil.Strength)
	if it.Seed == nil {
		fmt.Fprintf(w, "   %s\n\n", preview(it.Raw, 120))
		return
	}
	fmt.Fprintf(w, "   %s\n", it.Seed.Essence)
	for _, nug := range it.Seed.Nuggets {
		fmt.Fprintf(w, "   - %s\n", nug)
	}
	fmt.Fprintf(w, "   > %s\n\n", it.Seed.Action)
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// --- reviewed / archive / resurrect ---

var reviewedFailed bool

var reviewedCmd = &cobra.Command{
	Use:   "reviewed <id>",
	Short: "Record that a seed was reviewed",
	Long:  "Mark a seed as recalled, restoring full strength. With --failed the seed is buried instead.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, args[0], "reviewed", func(e *engine.Engine, id string) (bool, error) {
			return e.MarkReviewed(id, !reviewedFailed)
		})
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Bury a seed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, args[0], "buried", (*engine.Engine).Archive)
	},
}

var resurrectCmd = &cobra.Command{
	Use:   "resurrect <id>",
	Short: "Bring a buried seed back",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, args[0], "resurrected", (*engine.Engine).Resurrect)
	},
}

func init() {
	reviewedCmd.Flags().BoolVar(&reviewedFailed, "failed", false, "The seed was not recalled; bury it")
}

// mutate runs one lifecycle transition and reports whether it applied.
func mutate(cmd *cobra.Command, id, verb string, fn func(*engine.Engine, string) (bool, error)) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	changed, err := fn(a.eng, id)
	if err != nil {
		return err
	}
	if !changed {
		a.pushDecay(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no change\n", id)
		return nil
	}
	a.push(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, id)
	return nil
}

// --- buried ---

var buriedCmd = &cobra.Command{
	Use:   "buried",
	Short: "List buried seeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()
		a.pushDecay(ctx)

		items := a.eng.Buried()
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing is buried.")
			return nil
		}
		for i, it := range items {
			printSeed(cmd.OutOrStdout(), i+1, it)
		}
		return nil
	},
}

// --- gaps ---

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Show knowledge gaps from the last synthesis",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		gaps := a.eng.Gaps()
		if len(gaps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No gaps found yet. Distill a few seeds first.")
			return nil
		}
		for _, g := range gaps {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", g)
		}
		return nil
	},
}

// --- clear ---

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every seed and gap",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return errors.New("refusing to clear without --yes")
		}
		ctx := cmd.Context()
		a, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.eng.ClearAll(); err != nil {
			return err
		}
		a.push(ctx)
		fmt.Fprintln(cmd.OutOrStdout(), "cleared")
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm deleting everything")
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show garden and pulse statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.db.ItemCounts()
		if err != nil {
			return err
		}
		undistilled := 0
		for _, it := range a.eng.Items() {
			if !it.Distilled() {
				undistilled++
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "db:          %s\n", a.db.Path)
		fmt.Fprintf(out, "active:      %d\n", counts[store.StatusActive])
		fmt.Fprintf(out, "buried:      %d\n", counts[store.StatusBuried])
		fmt.Fprintf(out, "undistilled: %d\n", undistilled)
		fmt.Fprintf(out, "gaps:        %d\n", len(a.eng.Gaps()))
		if a.eng.Summarizer != nil {
			fmt.Fprintf(out, "llm:         %s\n", a.cfg.LLM.Provider)
		} else {
			fmt.Fprintln(out, "llm:         not configured")
		}
		if a.sync != nil {
			fmt.Fprintf(out, "sync:        %s\n", a.cfg.Sync.Backend)
		} else {
			fmt.Fprintln(out, "sync:        off")
		}

		runs, err := a.db.RecentPulses(1)
		if err != nil {
			return err
		}
		if len(runs) > 0 {
			p := runs[0]
			when := time.UnixMilli(p.FinishedAt).Format(time.RFC3339)
			fmt.Fprintf(out, "last pulse:  %s, distilled %d of %d", when, p.Distilled, p.Queued)
			if p.Note != "" {
				fmt.Fprintf(out, " (%s)", p.Note)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}
