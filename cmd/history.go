package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the delivery history log",
	Long:  "The delivery log feeds the inactivity analysis; record outcomes here as your messaging system reports them.",
}

var historyRecordCmd = &cobra.Command{
	Use:   "record <number>",
	Short: "Record one delivery outcome for a number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		delivered, _ := cmd.Flags().GetBool("delivered")
		at, _ := cmd.Flags().GetString("at")

		sentAt := time.Now()
		if at != "" {
			sentAt, err = time.Parse(time.RFC3339, at)
			if err != nil {
				return eris.Wrapf(err, "parse --at %q", at)
			}
		}

		if err := st.RecordDelivery(ctx, args[0], delivered, sentAt); err != nil {
			return eris.Wrap(err, "record delivery")
		}

		zap.L().Info("delivery recorded",
			zap.String("number", args[0]),
			zap.Bool("delivered", delivered),
			zap.Time("sent_at", sentAt),
		)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <number>",
	Short: "Show the aggregated delivery history for a number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		h, err := st.QueryHistory(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "query history")
		}

		fmt.Fprintf(os.Stdout, "Total messages:\t%d\n", h.TotalMessages)
		fmt.Fprintf(os.Stdout, "Delivered:\t%d\n", h.DeliveredMessages)
		fmt.Fprintf(os.Stdout, "Failed:\t\t%d\n", h.FailedMessages)
		if h.TotalMessages > 0 {
			fmt.Fprintf(os.Stdout, "Failure rate:\t%.0f%%\n", h.FailureRate()*100)
		}
		if h.LastSuccessAt != nil {
			fmt.Fprintf(os.Stdout, "Last success:\t%s\n", h.LastSuccessAt.Format(time.RFC3339))
		} else {
			fmt.Fprintln(os.Stdout, "Last success:\tnever")
		}
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete delivery log entries older than a cutoff",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		olderThan, _ := cmd.Flags().GetDuration("older-than")
		cutoff := time.Now().Add(-olderThan)

		n, err := st.PruneHistory(ctx, cutoff)
		if err != nil {
			return eris.Wrap(err, "prune history")
		}

		zap.L().Info("history pruned",
			zap.Int("removed", n),
			zap.Time("cutoff", cutoff),
		)
		return nil
	},
}

func init() {
	historyRecordCmd.Flags().Bool("delivered", true, "whether the message was delivered")
	historyRecordCmd.Flags().String("at", "", "delivery timestamp, RFC 3339 (default now)")

	historyPruneCmd.Flags().Duration("older-than", 3*365*24*time.Hour, "delete entries older than this (e.g. 720h)")

	historyCmd.AddCommand(historyRecordCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
