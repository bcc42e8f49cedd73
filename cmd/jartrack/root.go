package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// run builds the command tree, executes args and releases the database and
// log file whether or not the command succeeded.
func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	a := &app{in: in, out: out}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "jartrack",
		Short:   "Track home-canned jars from filling to use",
		Long:    "jartrack keeps an inventory of canned jars grouped into batches, with\nQR labels, recipes, stock statistics and JSON backups.",
		Version: version,

		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.open()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (JARTRACK_* environment variables also apply)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (overrides db_path)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "output as JSON")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics for this run to a textfile")

	root.AddCommand(
		newVersionCmd(a),
		newBatchCmd(a),
		newJarCmd(a),
		newItemCmd(a),
		newRecipeCmd(a),
		newCategoryCmd(a),
		newSizeCmd(a),
		newStatsCmd(a),
		newBackupCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printf("jartrack %s\n", version)
		},
	}
}
