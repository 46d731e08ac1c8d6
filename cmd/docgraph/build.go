package docgraph

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Parse the corpus and build the knowledge graph",
	Long: `Parse every markdown document below the corpus root, resolve the links
between them and store a snapshot of the graph for later commands.

With --index the documents are embedded and indexed right away.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the graph into the vector store",
	Long: `Embed every document of the graph and store it in a fresh collection.
The collection replaces the active one only when every batch succeeded, so
a failed run leaves the previous index untouched.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

type buildSummary struct {
	Documents     int            `json:"documents" yaml:"documents"`
	Relationships int            `json:"relationships" yaml:"relationships"`
	ByType        map[string]int `json:"documents_by_type" yaml:"documents_by_type"`
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(indexCmd)

	buildCmd.Flags().Bool("index", false, "index the documents after building")
	buildCmd.Flags().Bool("no-snapshot", false, "do not persist the graph snapshot")

	for _, cmd := range []*cobra.Command{buildCmd, indexCmd} {
		cmd.Flags().Int("batch-size", 50, "documents per embedding request")
		cmd.Flags().Int("concurrency", 4, "embedding requests in flight")
		cmd.Flags().String("collection", "docgraph", "collection alias")
		cmd.Flags().String("embedding-provider", "openai", "embedding provider (openai, hashing)")
		cmd.Flags().String("embedding-model", "text-embedding-3-small", "embedding model")
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	withIndex, _ := cmd.Flags().GetBool("index")
	return withApp(cmd, func(ctx context.Context, a *app) error {
		g, err := a.client.BuildGraph(ctx, "")
		if err != nil {
			return err
		}
		stats := a.client.Stats()
		summary := buildSummary{
			Documents:     g.Len(),
			Relationships: g.EdgeCount(),
			ByType:        stats.ByType,
		}
		err = render(cmd.OutOrStdout(), outputFormat, summary, func(w io.Writer) error {
			fmt.Fprintf(w, "Built graph: %d documents, %d relationships\n", summary.Documents, summary.Relationships)
			for _, t := range sortedKeys(summary.ByType) {
				fmt.Fprintf(w, "  %-20s %d\n", t, summary.ByType[t])
			}
			return nil
		})
		if err != nil || !withIndex {
			return err
		}
		return index(ctx, cmd, a)
	})
}

func runIndex(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.loadGraph(ctx); err != nil {
			return err
		}
		return index(ctx, cmd, a)
	})
}

func index(ctx context.Context, cmd *cobra.Command, a *app) error {
	result, err := a.client.IndexWithResult(ctx)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, result, func(w io.Writer) error {
		return writeIndexResult(w, result)
	})
}
