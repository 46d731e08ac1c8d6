package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/soundprediction/docgraph/pkg/types"
)

// Config holds the classification rules. Nil rule lists use the defaults.
type Config struct {
	CategoryRules Rules
	TypeRules     Rules
}

// Key identifies the classification the rules produce. It is empty when both
// lists use the defaults.
func (c Config) Key() string {
	if c.CategoryRules == nil && c.TypeRules == nil {
		return ""
	}
	data, _ := json.Marshal([]Rules{c.CategoryRules, c.TypeRules})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Parser reads documents below one corpus root.
type Parser struct {
	root     string
	rootName string
	category Rules
	docType  Rules
}

// New creates a parser for the corpus rooted at root.
func New(root string, cfg Config) (*Parser, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus root: %w", err)
	}
	p := &Parser{
		root:     abs,
		rootName: filepath.Base(abs),
		category: cfg.CategoryRules,
		docType:  cfg.TypeRules,
	}
	if p.category == nil {
		p.category = DefaultCategoryRules
	}
	if p.docType == nil {
		p.docType = DefaultTypeRules
	}
	return p, nil
}

// Root returns the absolute corpus root.
func (p *Parser) Root() string {
	return p.root
}

// RelPath returns file's slash-separated path relative to the corpus root.
func (p *Parser) RelPath(file string) (string, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(p.root, file)
	}
	rel, err := filepath.Rel(p.root, file)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside the corpus root", file)
	}
	return rel, nil
}

// Parse reads and parses one document. file may be absolute or relative to
// the corpus root. Unreadable and non-UTF-8 files yield a *types.ParseError.
func (p *Parser) Parse(file string) (*types.DocumentNode, error) {
	rel, err := p.RelPath(file)
	if err != nil {
		return nil, &types.ParseError{Path: file, Err: err}
	}
	data, err := os.ReadFile(filepath.Join(p.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, &types.ParseError{Path: rel, Err: err}
	}
	return p.ParseContent(rel, data)
}

// ParseContent parses already-loaded bytes for the document at rel.
func (p *Parser) ParseContent(rel string, data []byte) (*types.DocumentNode, error) {
	if !utf8.Valid(data) {
		return nil, &types.ParseError{Path: rel, Err: fmt.Errorf("content is not valid UTF-8")}
	}
	content := strings.TrimPrefix(string(data), "\ufeff")

	node := &types.DocumentNode{
		DocID:           types.DocIDFromPath(rel),
		Title:           ExtractTitle(content, rel),
		Content:         content,
		FilePath:        rel,
		FileName:        path.Base(rel),
		DocType:         p.docType.Classify(rel),
		Category:        p.category.Classify(rel),
		RawLinks:        ExtractLinks(content, p.rootName),
		ExtractedFields: ExtractFields(content),
	}
	if err := node.Validate(); err != nil {
		return nil, &types.ParseError{Path: rel, Err: err}
	}
	return node, nil
}
