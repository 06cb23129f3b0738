package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MudgalLabs/arthveda-sub000/compute"
	"github.com/MudgalLabs/arthveda-sub000/position"
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute derived fields for a trade list",
	Long: `Run the configured computation service once over the trades in an
edit script and print the derived fields.

Example:
  arthveda compute -f trades.yaml`,
	Args: cobra.NoArgs,
	RunE: runCompute,
}

var computeEditsPath string

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().StringVarP(&computeEditsPath, "file", "f", "", "edit script with trades (required)")
	computeCmd.MarkFlagRequired("file")
}

func runCompute(cmd *cobra.Command, args []string) error {
	edits, err := loadEdits(computeEditsPath)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return fmt.Errorf("compute service: %w", err)
	}

	timeout, _ := cfg.Compute.TimeoutDuration()
	if timeout <= 0 {
		timeout = compute.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	req := edits.Request(position.Instrument(cfg.Draft.Instrument), time.Now())
	res, err := svc.Compute(ctx, req)
	if err != nil {
		logger.Warn("compute failed", zap.Error(err))
		return fmt.Errorf("compute: %w", err)
	}

	printResult(cmd.OutOrStdout(), req, res)
	return nil
}

func printResult(w io.Writer, req compute.Request, res compute.Result) {
	fmt.Fprintf(w, "Direction:     %s\n", res.Direction)
	fmt.Fprintf(w, "Status:        %s\n", res.Status)
	fmt.Fprintf(w, "Opened:        %s\n", formatTime(res.OpenedAt))
	fmt.Fprintf(w, "Closed:        %s\n", formatTime(res.ClosedAt))
	fmt.Fprintf(w, "Gross PnL:     %s\n", res.GrossPnL.StringFixed(2))
	fmt.Fprintf(w, "Net PnL:       %s\n", res.NetPnL.StringFixed(2))
	fmt.Fprintf(w, "R-factor:      %s\n", res.RFactor.StringFixed(2))
	fmt.Fprintf(w, "Net return:    %s%%\n", res.NetReturnPct.StringFixed(2))
	fmt.Fprintf(w, "Charges/PnL:   %s%%\n", res.ChargesPct.StringFixed(2))
	if !res.OpenQuantity.IsZero() {
		fmt.Fprintf(w, "Open qty:      %s @ %s\n", res.OpenQuantity, res.OpenAvgPrice)
	}
	if len(res.Charges) == len(req.Trades) {
		for i, c := range res.Charges {
			fmt.Fprintf(w, "  trade %d %-4s charges %s\n", i+1, req.Trades[i].Kind, c.StringFixed(2))
		}
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
