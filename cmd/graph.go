package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	graphCmd = &cobra.Command{
		Use:   "graph [files...]",
		Short: "Print the knowledge graph extracted from documents",
		Long:  longGraph,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := buildStack(ctx, cfg)

			if err != nil {
				return err
			}

			defer st.Close()

			if err = st.preload(ctx, args); err != nil {
				log.Warn("some documents were not indexed", "error", err)
			}

			out := cmd.OutOrStdout()

			for _, edge := range st.entities.Edges() {
				fmt.Fprintf(out, "(%s --%s--> %s)\n", edge.Subject, edge.Relation, edge.Object)
			}

			entities, edges := st.entities.Len()
			fmt.Fprintf(out, "%d entities, %d relations\n", entities, edges)

			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(graphCmd)
}

var longGraph = `
Index the given documents and print every relation extracted from them.

Examples:
  hivemind graph bert.txt attention.txt
`
