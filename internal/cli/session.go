package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Open, close and inspect the cash-drawer session",
	}
	cmd.AddCommand(
		newSessionStatusCmd(e),
		newSessionOpenCmd(e),
		newSessionCloseCmd(e),
	)
	return cmd
}

func newSessionStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			s := e.app.Sessions.Today()
			if s == nil {
				fmt.Fprintln(w, "No session today.")
				return nil
			}
			fmt.Fprintf(w, "Date: %s\nStatus: %s\nCashier: %s\nCash: %.2f\n", s.Date, s.Status, s.Cashier, s.CashDrawerAmount)
			if e.app.Sessions.NeedsOpening() {
				fmt.Fprintln(w, "The drawer must be counted before the next sale.")
			}
			return nil
		},
	}
}

func newSessionOpenCmd(e *env) *cobra.Command {
	var reason, cashier string
	var amount float64

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open today's session with the counted drawer amount",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.app.Sessions.Start(amount, reason, cashier)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s opened by %s with %.2f\n", s.Date, s.Cashier, s.CashDrawerAmount)
			return nil
		},
	}

	cmd.Flags().Float64Var(&amount, "amount", 0, "Counted cash in the drawer")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the opening")
	cmd.Flags().StringVar(&cashier, "cashier", "", "Cashier name (default: Admin)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newSessionCloseCmd(e *env) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Log out and close today's session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Sessions.End(reason); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session closed.")
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the closing")
	return cmd
}
