package types

import (
	"errors"
	"path"
	"strings"
)

// Validation errors
var (
	ErrEmptyDocID    = errors.New("doc_id cannot be empty")
	ErrEmptyFilePath = errors.New("file_path cannot be empty")
	ErrEmptyQuestion = errors.New("question cannot be empty")
)

// DocumentExtension is the only file extension treated as a corpus document.
const DocumentExtension = ".md"

// DefaultTag is assigned when no classification rule matches a path.
const DefaultTag = "general"

// DocumentNode represents a single corpus document in the knowledge graph.
type DocumentNode struct {
	DocID    string `json:"doc_id" mapstructure:"doc_id"`
	Title    string `json:"title" mapstructure:"title"`
	Content  string `json:"content" mapstructure:"content"`
	FilePath string `json:"file_path" mapstructure:"file_path"`
	FileName string `json:"file_name" mapstructure:"file_name"`
	DocType  string `json:"doc_type" mapstructure:"doc_type"`
	Category string `json:"category" mapstructure:"category"`

	// RawLinks are link targets as written, anchors stripped and relative
	// segments normalized to corpus-root-relative form.
	RawLinks []string `json:"raw_links,omitempty" mapstructure:"raw_links"`
	// ResolvedLinks only ever holds DocIDs present in the current node set.
	ResolvedLinks []string `json:"resolved_links,omitempty" mapstructure:"resolved_links"`

	ExtractedFields map[string]string `json:"extracted_fields,omitempty" mapstructure:"extracted_fields"`
}

// Validate checks if the DocumentNode has all required fields set.
func (n *DocumentNode) Validate() error {
	if n.DocID == "" {
		return ErrEmptyDocID
	}
	if n.FilePath == "" {
		return ErrEmptyFilePath
	}
	return nil
}

// Metadata flattens the node into the metadata map stored next to its vector.
func (n *DocumentNode) Metadata() map[string]any {
	metadata := make(map[string]any, len(n.ExtractedFields)+7)
	for k, v := range n.ExtractedFields {
		metadata[k] = v
	}
	links := make([]string, len(n.ResolvedLinks))
	copy(links, n.ResolvedLinks)

	metadata["doc_id"] = n.DocID
	metadata["title"] = n.Title
	metadata["doc_type"] = n.DocType
	metadata["category"] = n.Category
	metadata["file_path"] = n.FilePath
	metadata["file_name"] = n.FileName
	metadata["linked_docs"] = links
	return metadata
}

// DocIDFromPath derives the stable identifier for a corpus-relative path.
// The extension is dropped and path separators become underscores.
func DocIDFromPath(relPath string) string {
	p := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	p = strings.TrimSuffix(p, DocumentExtension)
	return strings.ReplaceAll(p, "/", "_")
}

// RelationType names the relations the retriever traverses.
type RelationType string

const (
	// RelationLink is an explicit, directional hyperlink between documents.
	RelationLink RelationType = "LINK"
	// RelationSameType connects every pair of documents sharing a doc type.
	RelationSameType RelationType = "SAME_TYPE"
	// RelationSameCategory connects every pair of documents sharing a category.
	RelationSameCategory RelationType = "SAME_CATEGORY"
)

// DocumentRef is a lightweight pointer to a document used in relationship views.
type DocumentRef struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Type     string `json:"type" yaml:"type"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// Relationships lists the explicit links into and out of one document.
type Relationships struct {
	Document DocumentRef   `json:"document" yaml:"document"`
	Outgoing []DocumentRef `json:"linked_documents" yaml:"linked_documents"`
	Incoming []DocumentRef `json:"incoming_links" yaml:"incoming_links"`
}

// ConnectedDocument is one entry of the most-connected ranking.
type ConnectedDocument struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Type        string `json:"type" yaml:"type"`
	Connections int    `json:"connections" yaml:"connections"`
}

// GraphStats summarises a built graph.
type GraphStats struct {
	TotalDocuments     int                 `json:"total_documents" yaml:"total_documents"`
	TotalRelationships int                 `json:"total_relationships" yaml:"total_relationships"`
	ByType             map[string]int      `json:"documents_by_type" yaml:"documents_by_type"`
	ByCategory         map[string]int      `json:"documents_by_category" yaml:"documents_by_category"`
	MostConnected      []ConnectedDocument `json:"most_connected_documents" yaml:"most_connected_documents"`
}
