package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/theapemachine/hivemind/pkg/engine"
)

var (
	sessionFlag string
	filesFlag   []string
	verboseFlag bool

	askCmd = &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question",
		Long:  longAsk,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := buildStack(ctx, cfg)

			if err != nil {
				return err
			}

			defer st.Close()

			if err = st.preload(ctx, filesFlag); err != nil {
				log.Warn("some documents were not indexed", "error", err)
			}

			answer, err := st.engine.Query(ctx, strings.Join(args, " "), sessionFlag)

			if err != nil {
				return err
			}

			printAnswer(cmd, answer)
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "Session to read history from and record the exchange in")
	askCmd.Flags().StringSliceVarP(&filesFlag, "file", "f", nil, "Documents to index before answering")
	askCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show retrieval steps and context")
}

func printAnswer(cmd *cobra.Command, answer *engine.Answer) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer.Text)

	if len(answer.Connections) > 0 {
		fmt.Fprintln(out, "\nGraph connections:")

		for _, connection := range answer.Connections {
			fmt.Fprintln(out, "  "+connection)
		}
	}

	if !verboseFlag {
		return
	}

	fmt.Fprintln(out, "\nSteps:")

	for _, step := range answer.Steps {
		fmt.Fprintln(out, "  "+step.String())
	}

	fmt.Fprintln(out, "\nContext:")
	fmt.Fprintln(out, strings.Join(answer.Context, "\n"))
}

var longAsk = `
Answer one question using the knowledge graph, the most similar passages and,
with --session, the last turns of that conversation. The exchange is recorded
in the session log.

Examples:
  # Index a paper and ask about it
  hivemind ask -f bert.txt "What is BERT based on?"

  # Continue a conversation
  hivemind ask --session 6f1c... "And who introduced it?"
`
