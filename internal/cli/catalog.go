package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pos/internal/core"
)

func newDialectsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the header dialects used to detect file formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLABEL\tINDICATORS")
			for _, d := range e.app.Service.Dialects() {
				indicators := strings.Join(d.Indicators, ", ")
				if indicators == "" {
					indicators = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Label, indicators)
			}
			return tw.Flush()
		},
	}
}

type exportOptions struct {
	format          string
	includeInactive bool
}

func newExportCmd(e *env) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export <file|->",
		Short: "Export the product catalog as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := opts.format
			if format == "" && strings.HasSuffix(strings.ToLower(args[0]), ".xlsx") {
				format = core.FormatXLSX
			}

			w, closeFn, err := createOutput(cmd, args[0])
			if err != nil {
				return err
			}
			if err := e.app.Service.Export(cmd.Context(), w, format, opts.includeInactive); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "", "Output format: csv or xlsx (default: from the file extension, else csv)")
	cmd.Flags().BoolVar(&opts.includeInactive, "include-inactive", false, "Include deactivated products")
	return cmd
}

func newTemplateCmd(e *env) *cobra.Command {
	var dialect string

	cmd := &cobra.Command{
		Use:   "template <file|->",
		Short: "Write an import template with example rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, closeFn, err := createOutput(cmd, args[0])
			if err != nil {
				return err
			}
			if err := e.app.Service.Template(w, dialect); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", "", "Dialect whose headers the template uses (default: generic)")
	return cmd
}

func newHistoryCmd(e *env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := e.app.Service.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tFILE\tFORMAT\tCREATED\tUPDATED\tSKIPPED\tERRORS")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					run.StartedAt.Local().Format(time.DateTime), run.FileName, run.Dialect,
					run.Created, run.Updated, run.Skipped, run.ErrorCount)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}
