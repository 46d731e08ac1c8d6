package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestDocumentNodeValidation(t *testing.T) {
	tests := []struct {
		name    string
		node    DocumentNode
		wantErr error
	}{
		{
			name:    "valid node",
			node:    DocumentNode{DocID: "a_b", FilePath: "a/b.md"},
			wantErr: nil,
		},
		{
			name:    "empty doc id",
			node:    DocumentNode{FilePath: "a/b.md"},
			wantErr: ErrEmptyDocID,
		},
		{
			name:    "empty file path",
			node:    DocumentNode{DocID: "a_b"},
			wantErr: ErrEmptyFilePath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			if err != tt.wantErr {
				t.Errorf("DocumentNode.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDocIDFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"04_marketing/02_offerings/01_suborbital_experience.md", "04_marketing_02_offerings_01_suborbital_experience"},
		{"readme.md", "readme"},
		{"./a/b.md", "a_b"},
		{`a\b.md`, "a_b"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DocIDFromPath(tt.path); got != tt.want {
				t.Errorf("DocIDFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestDocumentNodeMetadata(t *testing.T) {
	node := &DocumentNode{
		DocID:           "a_b",
		Title:           "B",
		FilePath:        "a/b.md",
		FileName:        "b.md",
		DocType:         "offering",
		Category:        "marketing",
		ResolvedLinks:   []string{"c"},
		ExtractedFields: map[string]string{"version": "1.2"},
	}

	md := node.Metadata()
	if md["doc_id"] != "a_b" || md["doc_type"] != "offering" || md["category"] != "marketing" {
		t.Errorf("unexpected metadata: %v", md)
	}
	if md["version"] != "1.2" {
		t.Errorf("expected extracted field to be flattened, got %v", md["version"])
	}
	links, ok := md["linked_docs"].([]string)
	if !ok || len(links) != 1 || links[0] != "c" {
		t.Fatalf("expected linked_docs [c], got %v", md["linked_docs"])
	}

	links[0] = "mutated"
	if node.ResolvedLinks[0] != "c" {
		t.Error("metadata must not alias the node's resolved links")
	}
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	parseErr := fmt.Errorf("wrapped: %w", &ParseError{Path: "x.md", Err: errors.New("bad utf-8")})
	if !errors.Is(parseErr, ErrParseFailure) {
		t.Error("ParseError should match ErrParseFailure")
	}

	embErr := &EmbeddingError{Batch: 2, Err: errors.New("timeout")}
	if !errors.Is(embErr, ErrEmbedding) {
		t.Error("EmbeddingError should match ErrEmbedding")
	}
	if errors.Is(embErr, ErrVectorStore) {
		t.Error("EmbeddingError must not match ErrVectorStore")
	}

	vsErr := NewVectorStoreError("upsert", "docs", errors.New("disk full"))
	if !errors.Is(vsErr, ErrVectorStore) {
		t.Error("VectorStoreError should match ErrVectorStore")
	}
	if again := NewVectorStoreError("swap", "docs", vsErr); again != vsErr {
		t.Error("NewVectorStoreError should not double wrap")
	}
	if NewVectorStoreError("noop", "", nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestVerifyReportOK(t *testing.T) {
	r := &VerifyReport{}
	if !r.OK() {
		t.Error("empty report should be OK")
	}
	r.Problems = append(r.Problems, "binary vector")
	if r.OK() {
		t.Error("report with problems should not be OK")
	}
}
