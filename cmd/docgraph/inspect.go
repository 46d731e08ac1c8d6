package docgraph

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/soundprediction/docgraph"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show graph statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var relationshipsCmd = &cobra.Command{
	Use:     "relationships <doc-id>",
	Aliases: []string{"rels"},
	Short:   "Show the links into and out of a document",
	Args:    cobra.ExactArgs(1),
	RunE:    runRelationships,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a sample of stored vectors and their metadata",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(relationshipsCmd)
	rootCmd.AddCommand(verifyCmd)

	statsCmd.Flags().Bool("index", false, "show statistics of the active vector collection instead")
	verifyCmd.Flags().Int("sample", docgraph.DefaultVerifySample, "records to inspect")
}

func runStats(cmd *cobra.Command, args []string) error {
	indexStats, _ := cmd.Flags().GetBool("index")
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if indexStats {
			stats, err := a.client.IndexStats(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), outputFormat, stats, func(w io.Writer) error {
				return writeIndexStats(w, stats)
			})
		}

		if err := a.loadGraph(ctx); err != nil {
			return err
		}
		stats := a.client.Stats()
		return render(cmd.OutOrStdout(), outputFormat, stats, func(w io.Writer) error {
			return writeGraphStats(w, stats)
		})
	})
}

func runRelationships(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.loadGraph(ctx); err != nil {
			return err
		}
		rels, err := a.client.Relationships(args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), outputFormat, rels, func(w io.Writer) error {
			return writeRelationships(w, rels)
		})
	})
}

func runVerify(cmd *cobra.Command, args []string) error {
	sample, _ := cmd.Flags().GetInt("sample")
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.loadGraph(ctx); err != nil {
			return err
		}
		report, err := a.client.VerifyIndex(ctx, sample)
		if err != nil {
			return err
		}
		if err := render(cmd.OutOrStdout(), outputFormat, report, func(w io.Writer) error {
			return writeVerifyReport(w, report)
		}); err != nil {
			return err
		}
		if !report.OK() {
			return fmt.Errorf("index verification found %d problems", len(report.Problems))
		}
		return nil
	})
}
