package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pos/internal/backup"
)

func newBackupCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore catalog backups",
	}
	cmd.AddCommand(
		newBackupCreateCmd(e),
		newBackupListCmd(e),
		newBackupRestoreCmd(e),
	)
	return cmd
}

func newBackupCreateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a manual backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := e.app.RequireBackups()
			if err != nil {
				return err
			}
			info, err := m.Create(cmd.Context(), backup.KindManual)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%d bytes)\n", info.FileName, info.Size)
			return nil
		},
	}
}

func newBackupListCmd(e *env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := e.app.RequireBackups()
			if err != nil {
				return err
			}
			backups, err := m.List()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), backups)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tCREATED\tSIZE\tTYPE")
			for _, b := range backups {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", b.FileName, b.Created.Local().Format(time.DateTime), b.Size, b.Type)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")
	return cmd
}

func newBackupRestoreCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore the catalog from a backup, saving the current state first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := e.app.RequireBackups()
			if err != nil {
				return err
			}
			pre, err := m.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s (previous state saved as %s)\n", args[0], pre.FileName)
			return nil
		},
	}
}
