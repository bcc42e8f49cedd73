package main

import (
	"github.com/spf13/cobra"

	"github.com/vbonduro/jartrack/internal/backup"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or restore the whole inventory as JSON",
	}

	export := &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write a backup to FILE, or stdout when FILE is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || args[0] == "-" {
				return a.backups.Export(cmd.Context(), a.out)
			}
			if err := a.backups.ExportToFile(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.emit(map[string]any{"path": args[0]}, func() error {
				return a.printf("Backup written to %s\n", args[0])
			})
		},
	}

	restore := &cobra.Command{
		Use:   "import [FILE]",
		Short: "Replace the inventory with a backup from FILE, or stdin",
		Long: `Import replaces every item type and jar with the contents of the
backup. Categories, jar sizes, recipes and batch overrides are replaced only
when the backup carries them. Nothing changes if the backup is invalid.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				res backup.Result
				err error
			)
			if len(args) == 0 || args[0] == "-" {
				res, err = a.backups.Import(cmd.Context(), a.in)
			} else {
				res, err = a.backups.ImportFile(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return a.emit(res, func() error {
				return a.printf("Imported %d item type(s) and %d jar(s)\n", res.ItemTypes, res.Jars)
			})
		},
	}

	cmd.AddCommand(export, restore)
	return cmd
}
