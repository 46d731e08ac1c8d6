package docgraph

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soundprediction/docgraph/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question over the indexed corpus",
	Long: `Retrieve the documents most relevant to a question by vector search
followed by graph expansion. With --context the retrieved documents are
passed to the language model and its answer is printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a plain vector search",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(searchCmd)

	queryCmd.Flags().Bool("context", false, "build a context and ask the language model")
	queryCmd.Flags().Int("start-k", 5, "seed documents from vector search")
	queryCmd.Flags().Int("adjacent-k", 10, "neighbours kept per expanded document")
	queryCmd.Flags().Int("select-k", 20, "documents returned")
	queryCmd.Flags().Int("max-depth", 2, "graph hops from the seeds")
	queryCmd.Flags().String("llm-provider", "openai", "language model provider (openai, anthropic, none)")
	queryCmd.Flags().String("llm-model", "gpt-4o-mini", "language model")

	searchCmd.Flags().IntP("top", "k", 5, "number of results")
}

func runQuery(cmd *cobra.Command, args []string) error {
	includeContext, _ := cmd.Flags().GetBool("context")
	question := strings.Join(args, " ")
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.loadGraph(ctx); err != nil {
			return err
		}
		result, err := a.client.Query(ctx, question, includeContext)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, result, func(w io.Writer) error {
			return writeQueryResult(w, result)
		})
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	k, _ := cmd.Flags().GetInt("top")
	query := strings.Join(args, " ")
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.loadGraph(ctx); err != nil {
			return err
		}
		docs, err := a.client.TestSearch(ctx, query, k)
		if err != nil {
			return err
		}
		if docs == nil {
			docs = []types.DocumentSummary{}
		}
		return render(cmd.OutOrStdout(), outputFormat, docs, func(w io.Writer) error {
			return writeSummaries(w, docs)
		})
	})
}
