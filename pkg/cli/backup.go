package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vigilantes/alertmail/pkg/config"
)

func NewBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage configuration backups",
	}

	cmd.AddCommand(
		newBackupListCommand(),
		newBackupRestoreCommand(),
	)

	return cmd
}

func newBackupListCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configuration backups, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			store, err := rt.Store()
			if err != nil {
				return err
			}
			backups, err := store.ListBackups()
			if err != nil {
				return err
			}

			if outputFormat == "json" {
				return writeJSON(rt.Writer(), backups)
			}

			if len(backups) == 0 {
				fmt.Fprintln(rt.Writer(), "No backups found")
				return nil
			}
			tw := tabwriter.NewWriter(rt.Writer(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tDESCRIPTION")
			for _, b := range backups {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"), b.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: table or json")

	return cmd
}

func newBackupRestoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Restore a configuration backup after verifying its integrity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			store, err := rt.Store()
			if err != nil {
				return err
			}
			if err := store.Restore(args[0]); err != nil {
				var intErr *config.IntegrityError
				if errors.As(err, &intErr) {
					return fmt.Errorf("backup %s failed integrity verification, the current configuration was left untouched: %w", args[0], err)
				}
				return err
			}
			fmt.Fprintf(rt.Writer(), "Configuration restored from backup %s\n", args[0])
			return nil
		},
	}

	return cmd
}
