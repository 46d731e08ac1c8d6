package types

// DocumentSummary is the per-document record returned for a query.
type DocumentSummary struct {
	DocID           string  `json:"doc_id" yaml:"doc_id"`
	Title           string  `json:"title" yaml:"title"`
	DocType         string  `json:"doc_type" yaml:"doc_type"`
	Category        string  `json:"category" yaml:"category"`
	Content         string  `json:"content" yaml:"content"`
	SimilarityScore float64 `json:"similarity_score" yaml:"similarity_score"`
	Depth           int     `json:"depth" yaml:"depth"`
}

// QueryResult is the full answer to a natural-language question.
type QueryResult struct {
	Question           string              `json:"question" yaml:"question"`
	RetrievedDocuments []DocumentSummary   `json:"retrieved_documents" yaml:"retrieved_documents"`
	RelatedDocuments   map[string][]string `json:"related_documents" yaml:"related_documents"`
	Context            string              `json:"context" yaml:"context"`
	Answer             string              `json:"answer" yaml:"answer"`
}

// IndexStats describes the active vector collection.
type IndexStats struct {
	Collection                string `json:"collection_name" yaml:"collection_name"`
	TotalDocuments            int    `json:"total_documents" yaml:"total_documents"`
	DocumentsWithRelationship int    `json:"documents_with_relationships" yaml:"documents_with_relationships"`
	TotalRelationships        int    `json:"total_relationships" yaml:"total_relationships"`
}

// VerifyReport is produced by checking a sample of stored vectors.
type VerifyReport struct {
	Collection string   `json:"collection" yaml:"collection"`
	Checked    int      `json:"checked" yaml:"checked"`
	Dimension  int      `json:"dimension" yaml:"dimension"`
	Problems   []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// OK reports whether the verification found no problems.
func (r *VerifyReport) OK() bool {
	return len(r.Problems) == 0
}
