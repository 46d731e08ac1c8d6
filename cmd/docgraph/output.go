package docgraph

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soundprediction/docgraph"
	"github.com/soundprediction/docgraph/pkg/types"
)

// Output formats accepted by --output.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// render writes v as JSON or YAML, or calls text for the human format.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch strings.ToLower(format) {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatText, "":
		return text(w)
	default:
		return fmt.Errorf("unsupported output format %q (want text, json or yaml)", format)
	}
}

func writeQueryResult(w io.Writer, r *types.QueryResult) error {
	fmt.Fprintf(w, "Question: %s\n\n", r.Question)
	fmt.Fprintf(w, "Retrieved %d documents:\n", len(r.RetrievedDocuments))
	for i, d := range r.RetrievedDocuments {
		fmt.Fprintf(w, "%2d. %s [%s] score=%.3f depth=%d\n", i+1, d.Title, d.DocType, d.SimilarityScore, d.Depth)
	}
	if len(r.RelatedDocuments) > 0 {
		fmt.Fprintln(w, "\nBy type:")
		for _, t := range sortedKeys(r.RelatedDocuments) {
			fmt.Fprintf(w, "  %s: %s\n", t, strings.Join(r.RelatedDocuments[t], ", "))
		}
	}
	if r.Answer != "" {
		fmt.Fprintf(w, "\nAnswer:\n%s\n", r.Answer)
	}
	return nil
}

func writeSummaries(w io.Writer, docs []types.DocumentSummary) error {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return nil
	}
	for i, d := range docs {
		fmt.Fprintf(w, "%2d. %s [%s/%s] score=%.3f\n", i+1, d.Title, d.DocType, d.Category, d.SimilarityScore)
		fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(d.Content, "\n", " "))
	}
	return nil
}

func writeGraphStats(w io.Writer, s *types.GraphStats) error {
	fmt.Fprintf(w, "Documents:     %d\n", s.TotalDocuments)
	fmt.Fprintf(w, "Relationships: %d\n", s.TotalRelationships)
	fmt.Fprintln(w, "\nBy type:")
	for _, t := range sortedKeys(s.ByType) {
		fmt.Fprintf(w, "  %-20s %d\n", t, s.ByType[t])
	}
	fmt.Fprintln(w, "\nBy category:")
	for _, c := range sortedKeys(s.ByCategory) {
		fmt.Fprintf(w, "  %-20s %d\n", c, s.ByCategory[c])
	}
	if len(s.MostConnected) > 0 {
		fmt.Fprintln(w, "\nMost connected:")
		for _, d := range s.MostConnected {
			fmt.Fprintf(w, "  %-40s %d\n", d.Title, d.Connections)
		}
	}
	return nil
}

func writeIndexStats(w io.Writer, s *types.IndexStats) error {
	fmt.Fprintf(w, "Collection:                   %s\n", s.Collection)
	fmt.Fprintf(w, "Documents:                    %d\n", s.TotalDocuments)
	fmt.Fprintf(w, "Documents with relationships: %d\n", s.DocumentsWithRelationship)
	fmt.Fprintf(w, "Relationships:                %d\n", s.TotalRelationships)
	return nil
}

func writeRelationships(w io.Writer, r *types.Relationships) error {
	fmt.Fprintf(w, "%s (%s)\n", r.Document.Title, r.Document.Type)
	fmt.Fprintf(w, "\nLinks to (%d):\n", len(r.Outgoing))
	for _, d := range r.Outgoing {
		fmt.Fprintf(w, "  -> %s [%s] %s\n", d.Title, d.Type, d.ID)
	}
	fmt.Fprintf(w, "\nLinked from (%d):\n", len(r.Incoming))
	for _, d := range r.Incoming {
		fmt.Fprintf(w, "  <- %s [%s] %s\n", d.Title, d.Type, d.ID)
	}
	return nil
}

func writeVerifyReport(w io.Writer, r *types.VerifyReport) error {
	fmt.Fprintf(w, "Collection: %s\n", r.Collection)
	fmt.Fprintf(w, "Checked %d records, dimension %d\n", r.Checked, r.Dimension)
	if r.OK() {
		fmt.Fprintln(w, "OK")
		return nil
	}
	fmt.Fprintf(w, "%d problems:\n", len(r.Problems))
	for _, p := range r.Problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
	return nil
}

func writeIndexResult(w io.Writer, r *docgraph.IndexResult) error {
	fmt.Fprintf(w, "Indexed %d documents in %d batches (%s)\n", r.Documents, r.Batches, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Active collection: %s\n", r.Collection)
	if r.Previous != "" {
		fmt.Fprintf(w, "Replaced: %s\n", r.Previous)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
