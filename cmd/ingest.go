package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/theapemachine/hivemind/pkg/ingest"
)

var (
	bucketFlag bool
	prefixFlag string

	ingestCmd = &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Index documents into the vector store and knowledge graph",
		Long:  longIngest,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := buildStack(ctx, cfg)

			if err != nil {
				return err
			}

			defer st.Close()

			worker, locations := st.worker, args

			if bucketFlag {
				if worker, locations, err = st.bucketWorker(ctx, cfg, prefixFlag); err != nil {
					return err
				}
			}

			if len(locations) == 0 {
				return errors.New("nothing to ingest")
			}

			out := cmd.OutOrStdout()

			_, err = worker.Run(ctx, locations, func(progress ingest.Progress) {
				fmt.Fprintln(out, progress.String())
			})

			entities, edges := st.entities.Len()
			fmt.Fprintf(out, "Graph: %d entities, %d relations\n", entities, edges)

			for key, value := range st.metrics.GetMetrics() {
				fmt.Fprintf(out, "  %s: %v\n", key, value)
			}

			return err
		},
	}
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&bucketFlag, "bucket", false, "Read every object in the configured bucket instead of local files")
	ingestCmd.Flags().StringVar(&prefixFlag, "prefix", "", "Only read objects under this key prefix")
}

var longIngest = `
Index documents. Each document is split into chunks, every chunk is indexed
for similarity search and every fifth chunk is mined for entity relations.
A failing document is reported and the rest of the batch carries on.

The knowledge graph lives in memory; configure graph.neo4j.url to mirror it
into Neo4j, and vector.kind qdrant to keep the index between runs.

Examples:
  # Index two local files
  hivemind ingest paper.txt notes.md

  # Index every object under papers/ in the configured bucket
  hivemind ingest --bucket --prefix papers/
`
