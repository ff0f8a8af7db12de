// Package cli implements posctl, the command-line front end to the product
// importer, catalog export, backups and the cash-drawer session.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pos/internal/application"
	"github.com/JonMunkholm/pos/internal/config"
	"github.com/JonMunkholm/pos/internal/core"
	"github.com/JonMunkholm/pos/internal/logging"
)

type rootOptions struct {
	envFile   string
	dbURL     string
	verbose   bool
	logFormat string
}

// env is the state shared by every subcommand of one invocation.
type env struct {
	opts rootOptions
	app  *application.Application
}

func (e *env) close() error {
	if e.app == nil {
		return nil
	}
	err := e.app.Close(context.Background())
	e.app = nil
	return err
}

// Execute runs posctl with args. Errors are printed to stderr as user
// messages and returned.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	e := &env{}
	root := newRootCmd(e)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := e.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		printError(stderr, err)
	}
	return err
}

func printError(w io.Writer, err error) {
	if core.IsUserFacing(err) {
		fmt.Fprintln(w, "Error:", core.FormatUserError(err))
		return
	}
	fmt.Fprintln(w, "Error:", err)
}

func newRootCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "posctl",
		Short:         "Manage the POS product catalog from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&e.opts.envFile, "env-file", "", "Load settings from this .env file (default: ./.env when present)")
	cmd.PersistentFlags().StringVar(&e.opts.dbURL, "db", "", "Catalog database path or postgres URL (overrides DATABASE_URL)")
	cmd.PersistentFlags().BoolVarP(&e.opts.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&e.opts.logFormat, "log-format", "", "Log format: text or json (overrides LOG_FORMAT)")

	cmd.AddCommand(
		newDialectsCmd(e),
		newPreviewCmd(e),
		newImportCmd(e),
		newExportCmd(e),
		newTemplateCmd(e),
		newHistoryCmd(e),
		newBackupCmd(e),
		newSessionCmd(e),
	)
	return cmd
}

// setup loads configuration, installs the stderr logger and opens the
// application.
func (e *env) setup(cmd *cobra.Command) error {
	if e.opts.envFile != "" {
		if err := godotenv.Load(e.opts.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if e.opts.dbURL != "" {
		cfg.Database.URL = e.opts.dbURL
	}

	level, format := cfg.Logging.Level, cfg.Logging.Format
	if e.opts.verbose {
		level = "debug"
	}
	if e.opts.logFormat != "" {
		format = e.opts.logFormat
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), level, format))

	e.app, err = application.New(cmd.Context(), cfg)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// createOutput opens path for writing; "-" selects stdout.
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
