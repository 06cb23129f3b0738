package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MudgalLabs/arthveda-sub000/config"
	"github.com/MudgalLabs/arthveda-sub000/journal"
	"github.com/MudgalLabs/arthveda-sub000/position"
	"github.com/MudgalLabs/arthveda-sub000/session"
)

var positionCmd = &cobra.Command{
	Use:   "position",
	Short: "Create, edit and query journaled positions",
	Long: `Work with positions stored in the SQLite journal.

Subcommands:
  new     - Create a position from an edit script
  edit    - Apply an edit script to a stored position
  show    - Print a position as Org-mode
  list    - List positions as Org-mode or CSV
  delete  - Delete a position
  review  - Summarise positions in an Org-mode review

Examples:
  arthveda position new -f aapl.yaml
  arthveda position edit 01HV2J7R... -f fix-charges.yaml
  arthveda position list --symbol AAPL --csv`,
}

var positionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a position from an edit script",
	Args:  cobra.NoArgs,
	RunE:  runPositionNew,
}

var positionEditCmd = &cobra.Command{
	Use:   "edit <position-id>",
	Short: "Apply an edit script to a stored position",
	Args:  cobra.ExactArgs(1),
	RunE:  runPositionEdit,
}

var positionShowCmd = &cobra.Command{
	Use:   "show <position-id>",
	Short: "Print a position as Org-mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runPositionShow,
}

var positionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List positions",
	Args:  cobra.NoArgs,
	RunE:  runPositionList,
}

var positionDeleteCmd = &cobra.Command{
	Use:   "delete <position-id>",
	Short: "Delete a position",
	Args:  cobra.ExactArgs(1),
	RunE:  runPositionDelete,
}

var positionReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Summarise positions in an Org-mode review",
	Args:  cobra.NoArgs,
	RunE:  runPositionReview,
}

var (
	positionEditsPath string
	positionDryRun    bool

	listSymbol string
	listStatus string
	listLimit  int
	listCSV    bool

	reviewTitle  string
	reviewOutput string
)

func init() {
	rootCmd.AddCommand(positionCmd)
	positionCmd.AddCommand(positionNewCmd)
	positionCmd.AddCommand(positionEditCmd)
	positionCmd.AddCommand(positionShowCmd)
	positionCmd.AddCommand(positionListCmd)
	positionCmd.AddCommand(positionDeleteCmd)
	positionCmd.AddCommand(positionReviewCmd)

	for _, c := range []*cobra.Command{positionNewCmd, positionEditCmd} {
		c.Flags().StringVarP(&positionEditsPath, "file", "f", "", "edit script (required)")
		c.Flags().BoolVar(&positionDryRun, "dry-run", false, "print the result without saving")
		c.MarkFlagRequired("file")
	}

	for _, c := range []*cobra.Command{positionListCmd, positionReviewCmd} {
		c.Flags().StringVar(&listSymbol, "symbol", "", "only positions in this symbol")
		c.Flags().StringVar(&listStatus, "status", "", "only positions with this status (open, win, loss, breakeven)")
		c.Flags().IntVarP(&listLimit, "limit", "n", 0, "maximum number of positions (0 for all)")
	}
	positionListCmd.Flags().BoolVar(&listCSV, "csv", false, "write trades as CSV instead of Org-mode")
	positionReviewCmd.Flags().StringVar(&reviewTitle, "title", "", "review heading")
	positionReviewCmd.Flags().StringVarP(&reviewOutput, "output", "o", "", "write the review to a file instead of stdout")
}

func sessionOptions(c *config.Config, j *journal.SQLite) (session.Options, error) {
	svc, err := newService(c)
	if err != nil {
		return session.Options{}, fmt.Errorf("compute service: %w", err)
	}
	timeout, _ := c.Compute.TimeoutDuration()
	debounce, _ := c.Draft.DebounceDuration()

	return session.Options{
		Service:        svc,
		Persistence:    j,
		Notifier:       notifyStderr{},
		Logger:         logger,
		Debounce:       debounce,
		ComputeTimeout: timeout,
		Instrument:     position.Instrument(c.Draft.Instrument),
		Currency:       c.Draft.Currency,
	}, nil
}

// runEdits opens a session, replays the script, waits for the computed
// fields to settle and saves unless this is a dry run.
func runEdits(cmd *cobra.Command, j *journal.SQLite, entry session.Entry) error {
	edits, err := loadEdits(positionEditsPath)
	if err != nil {
		return err
	}
	opts, err := sessionOptions(cfg, j)
	if err != nil {
		return err
	}

	s, err := session.Open(cmd.Context(), entry, opts)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer s.Close()

	if err := edits.Apply(s, time.Now()); err != nil {
		return fmt.Errorf("apply edits: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), settleBudget(cfg))
	defer cancel()
	if err := s.WaitIdle(ctx); err != nil {
		return fmt.Errorf("wait for compute: %w", err)
	}

	out := cmd.OutOrStdout()
	p := s.Position()
	if positionDryRun {
		fmt.Fprintln(out, journal.FormatPositionOrg(p))
		return nil
	}
	if s.Mode() == session.ModeEditing && !s.HasChanged() {
		fmt.Fprintf(out, "No changes to %s\n", p.ID)
		return nil
	}
	if !s.CanSave() {
		return fmt.Errorf("cannot save: symbol is required and every trade needs a quantity and price")
	}

	id, err := s.Save(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Saved position %s (%s %s, net %s)\n", id, p.Symbol, p.Status, p.NetPnL.StringFixed(2))
	return nil
}

func runPositionNew(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	return runEdits(cmd, j, session.Entry{NewRoute: true})
}

func runPositionEdit(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	p, err := j.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}
	return runEdits(cmd, j, session.Entry{TargetID: args[0], Loaded: &p})
}

func runPositionShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	p, err := j.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatPositionOrg(p))
	return nil
}

func listFilter() journal.Filter {
	return journal.Filter{
		Symbol: listSymbol,
		Status: position.Status(listStatus),
		Limit:  listLimit,
	}
}

func runPositionList(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	ps, err := j.List(cmd.Context(), listFilter())
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}

	out := cmd.OutOrStdout()
	if listCSV {
		return writeCSV(out, ps)
	}
	fmt.Fprintln(out, journal.FormatPositionsOrg(ps))
	return nil
}

func writeCSV(w io.Writer, ps []position.Position) error {
	e, err := journal.NewCSV(w)
	if err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	for _, p := range ps {
		if err := e.WritePosition(p); err != nil {
			return fmt.Errorf("csv: %w", err)
		}
	}
	return e.Close()
}

func runPositionDelete(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	p, err := j.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}
	opts, err := sessionOptions(cfg, j)
	if err != nil {
		return err
	}
	s, err := session.Open(cmd.Context(), session.Entry{TargetID: args[0], Loaded: &p}, opts)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer s.Close()

	if err := s.Delete(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted position %s (%s)\n", p.ID, p.Symbol)
	return nil
}

func runPositionReview(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	ps, err := j.List(cmd.Context(), listFilter())
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}

	org, err := journal.NewReview(reviewTitle, time.Now(), ps).Org()
	if err != nil {
		return err
	}
	if reviewOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), org)
		return nil
	}
	if err := os.WriteFile(reviewOutput, []byte(org), 0644); err != nil {
		return fmt.Errorf("write review: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote review of %d positions to %s\n", len(ps), reviewOutput)
	return nil
}
