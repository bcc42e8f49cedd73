package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newJarCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jar",
		Short: "Work with individual jars and their labels",
	}
	cmd.AddCommand(
		newJarShowCmd(a),
		newJarUseCmd(a),
		newJarDeleteCmd(a),
		newJarLabelCmd(a),
		newJarScanCmd(a),
	)
	return cmd
}

func newJarShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show JAR_ID",
		Short: "Show one jar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("jar", args[0])
			if err != nil {
				return err
			}
			j, err := a.inventory.GetJar(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(j, func() error {
				return a.printf("#%d  batch %s  filled %s  %s  %s  %s\n",
					j.ID, j.BatchID, j.FillDate, orDash(j.JarSize), orDash(j.Location), jarState(j))
			})
		},
	}
}

func newJarUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use JAR_ID",
		Short: "Mark a jar as used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("jar", args[0])
			if err != nil {
				return err
			}
			res, err := a.inventory.MarkJarUsed(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(res, func() error { return a.printf("%s\n", res.Message) })
		},
	}
}

func newJarDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete JAR_ID",
		Short: "Delete one jar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("jar", args[0])
			if err != nil {
				return err
			}
			res, err := a.inventory.DeleteJar(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(res, func() error {
				if res.BatchDeleted {
					return a.printf("Deleted jar #%d; batch %s is now empty and was removed\n", id, res.BatchID)
				}
				return a.printf("Deleted jar #%d\n", id)
			})
		},
	}
}

func newJarLabelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "label JAR_ID...",
		Short: "Print the QR label payload for jars",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payloads := make(map[string]string, len(args))
			var lines []string
			for _, arg := range args {
				id, err := parseID("jar", arg)
				if err != nil {
					return err
				}
				p, err := a.inventory.JarLabel(cmd.Context(), id)
				if err != nil {
					return err
				}
				payloads[itoa(id)] = p
				lines = append(lines, p)
			}
			return a.emit(payloads, func() error { return a.printf("%s\n", strings.Join(lines, "\n")) })
		},
	}
}

func newJarScanCmd(a *app) *cobra.Command {
	var use bool
	cmd := &cobra.Command{
		Use:   "scan [PAYLOAD]",
		Short: "Look up the jar behind a scanned label",
		Long: `Scan resolves a QR payload to its jar and batch. The payload is read
from stdin when not given. With --use the jar is also marked used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := a.payloadArg(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if !use {
				scan, err := a.inventory.Scan(ctx, payload)
				if err != nil {
					return err
				}
				return a.emit(scan, func() error {
					if !scan.Recognized {
						return a.printf("Not a jar label.\n")
					}
					return a.printf("#%d  %s  batch %s  %s\n", scan.Jar.ID, scan.Batch.Name, scan.Batch.BatchID, jarState(scan.Jar))
				})
			}

			scan, res, err := a.inventory.UseScannedJar(ctx, payload)
			if err != nil {
				return err
			}
			out := struct {
				Scan   any
				Result any
			}{scan, res}
			return a.emit(out, func() error {
				if !scan.Recognized {
					return a.printf("Not a jar label.\n")
				}
				return a.printf("%s (%s, %d left in batch)\n", res.Message, scan.Batch.Name, scan.Batch.AvailableJars)
			})
		},
	}
	cmd.Flags().BoolVar(&use, "use", false, "mark the scanned jar used")
	return cmd
}

func (a *app) payloadArg(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(io.LimitReader(a.in, 4096))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
