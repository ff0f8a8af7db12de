package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pos/internal/core"
)

type previewOptions struct {
	limit    int
	encoding string
	update   bool
	json     bool
}

func newPreviewCmd(e *env) *cobra.Command {
	var opts previewOptions

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show how a product file would be imported without writing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()

			out, err := e.app.Service.Preview(cmd.Context(), core.Upload{
				Name:     filepath.Base(args[0]),
				Body:     f,
				Encoding: opts.encoding,
			}, core.PreviewOptions{Limit: opts.limit, UpdateExisting: opts.update})
			if err != nil {
				return err
			}

			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum rows to preview (default: IMPORT_PREVIEW_ROWS)")
	cmd.Flags().StringVar(&opts.encoding, "encoding", "", "Source encoding: utf-8, windows-1252 or iso-8859-1")
	cmd.Flags().BoolVar(&opts.update, "update", false, "Predict updates for products that already exist")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the preview as JSON")
	return cmd
}

func printOutcome(w io.Writer, out *core.Outcome) {
	fmt.Fprintf(w, "Format: %s\n", out.Dialect)
	for _, msg := range out.Errors {
		fmt.Fprintf(w, "Error: %s\n", msg)
	}
	if out.Failed() {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tNAME\tPRICE\tBARCODE\tCATEGORY\tSTOCK\tACTION\tISSUES")
	for _, c := range out.Candidates {
		barcode := ""
		if c.Barcode != nil {
			barcode = *c.Barcode
		}
		issues := append(append([]string{}, c.Errors...), c.Warnings...)
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%s\t%d\t%s\t%s\n",
			c.Line, c.Name, c.Price, barcode, c.Category, c.Stock, c.Action, strings.Join(issues, "; "))
	}
	tw.Flush()

	s := out.Summary
	fmt.Fprintf(w, "\n%d rows: %d valid, %d invalid (create %d, update %d, skip %d)\n",
		s.Candidates, s.Valid, s.Invalid, s.Create, s.Update, s.Skip)
	if out.Truncated {
		fmt.Fprintln(w, "More rows follow; only the first rows were previewed.")
	}
}

type importOptions struct {
	encoding string
	update   bool
	json     bool
}

func newImportCmd(e *env) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import products from a CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()

			res, err := e.app.Service.Import(cmd.Context(), core.Upload{
				Name:     filepath.Base(args[0]),
				Body:     f,
				Encoding: opts.encoding,
			}, core.CommitOptions{UpdateExisting: opts.update})
			if res == nil {
				return err
			}

			if opts.json {
				if jerr := writeJSON(cmd.OutOrStdout(), res); jerr != nil {
					return jerr
				}
			} else {
				printCommit(cmd.OutOrStdout(), res)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.encoding, "encoding", "", "Source encoding: utf-8, windows-1252 or iso-8859-1")
	cmd.Flags().BoolVar(&opts.update, "update", false, "Update products that already exist instead of skipping them")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	return cmd
}

func printCommit(w io.Writer, res *core.CommitResult) {
	fmt.Fprintf(w, "Format: %s\n", res.Dialect)
	fmt.Fprintf(w, "Created: %d\nUpdated: %d\nSkipped: %d\n", res.Created, res.Updated, res.Skipped)
	if len(res.Errors) > 0 {
		fmt.Fprintf(w, "Errors (%d):\n", len(res.Errors))
		for _, msg := range res.Errors {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
}
