package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ning0612/mercury/internal/state"
)

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		limit int
		retry bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent file operations",
		Long: `Show recent file operations. With --retry the most recent failed
operation is run again with the same arguments.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}

			if retry {
				rec, err := app.RetryLastFailure(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.errOut, "%s %s succeeded\n", rec.Operation, strings.Join(rec.Paths, ", "))
				return nil
			}

			records, err := app.History().History(ctx, limit)
			if err != nil {
				return err
			}
			return c.render(records, func(w io.Writer) error {
				return writeHistory(w, records)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of operations to show")
	cmd.Flags().BoolVar(&retry, "retry", false, "retry the last failed operation")
	return cmd
}

func writeHistory(w io.Writer, records []state.OperationRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		target := r.Target
		if target == "" {
			target = "-"
		}
		rows = append(rows, []string{
			formatTime(r.StartTime),
			string(r.Operation),
			r.Storage,
			strings.Join(r.Paths, ", "),
			target,
			r.Status,
			r.Error,
		})
	}
	return table(w, []string{"STARTED", "OP", "STORAGE", "PATHS", "TARGET", "STATUS", "ERROR"}, rows)
}

func newUnlockCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Show or release the operation lock of the storage",
		Long: `Show which process runs a file operation on the storage. With --force
the lock is removed, e.g. after a crash on another host.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			holder, err := app.LockHolder()
			if err != nil {
				return err
			}
			if holder == nil {
				fmt.Fprintln(c.errOut, "no operation in progress")
				return nil
			}
			if !force {
				return c.render(holder, nil)
			}
			if err := app.ForceUnlock(); err != nil {
				return err
			}
			fmt.Fprintf(c.errOut, "released lock of PID %d on %s\n", holder.PID, holder.Hostname)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "remove the lock whoever holds it")
	return cmd
}
