package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/theapemachine/hivemind/pkg/stores/s3"
)

var (
	limitFlag  int
	exportFlag bool

	historyCmd = &cobra.Command{
		Use:   "history [session-id]",
		Short: "Browse past sessions",
		Long:  longHistory,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := buildStack(ctx, cfg)

			if err != nil {
				return err
			}

			defer st.Close()

			out := cmd.OutOrStdout()

			if len(args) == 0 {
				summaries, err := st.engine.ListSessions(ctx, limitFlag)

				if err != nil {
					return err
				}

				table := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(table, "SESSION\tSTART\tEND\tMESSAGES")

				for _, summary := range summaries {
					fmt.Fprintf(
						table, "%s\t%s\t%s\t%d\n",
						summary.SessionID,
						summary.StartAt.Local().Format("2006-01-02 15:04"),
						summary.EndAt.Local().Format("2006-01-02 15:04"),
						summary.MessageCount,
					)
				}

				return table.Flush()
			}

			messages, err := st.engine.SessionMessages(ctx, args[0])

			if err != nil {
				return err
			}

			if len(messages) == 0 {
				return fmt.Errorf("session %s not found", args[0])
			}

			if exportFlag {
				if st.objects == nil {
					return errNoObjectStore
				}

				key, err := s3.NewArchive(st.objects, cfg.Objects.Bucket).Save(ctx, args[0], messages)

				if err != nil {
					return err
				}

				fmt.Fprintf(out, "Exported %d messages to %s/%s\n", len(messages), cfg.Objects.Bucket, key)
				return nil
			}

			for _, message := range messages {
				fmt.Fprintf(
					out, "[%s] %s: %s\n\n",
					message.CreatedAt.Local().Format("15:04:05"),
					message.Role,
					message.Content,
				)
			}

			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&limitFlag, "limit", "n", 100, "Maximum number of sessions to list (0 lists all)")
	historyCmd.Flags().BoolVar(&exportFlag, "export", false, "Archive the transcript to the configured bucket")
}

var longHistory = `
List past sessions, most recently active first, or print one transcript.

Examples:
  # List the last 100 sessions
  hivemind history

  # Print a transcript
  hivemind history 6f1c...

  # Archive a transcript to the object store
  hivemind history 6f1c... --export
`
