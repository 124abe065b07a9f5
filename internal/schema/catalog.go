// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package schema provides the table/column catalog backing query
// classification, routing, and prompt construction. Catalogs are built-in per
// database id and can be extended from YAML files. Search is deterministic
// keyword and column-name scoring; identical inputs always return identical
// snippets.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// Snippet is one schema context fragment returned by Search.
type Snippet struct {
	// Document is the human/LLM-readable description.
	Document string `json:"document"`
	// Metadata identifies what the document describes.
	Metadata Metadata `json:"metadata"`
}

// Metadata identifies the catalog object a snippet describes.
type Metadata struct {
	// Kind is "table", "column", or "relationship".
	Kind string `json:"kind"`
	// Table is set for table and column snippets.
	Table string `json:"table,omitempty"`
	// Column is set for column snippets.
	Column string `json:"column,omitempty"`
	// SourceTable is set for relationship snippets.
	SourceTable string `json:"source_table,omitempty"`
}

// Column describes one column of a catalog table.
type Column struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// Table describes one catalog table.
type Table struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
	Columns     []Column `yaml:"columns"`
}

// Relationship describes a join between two catalog tables.
type Relationship struct {
	SourceTable string `yaml:"source-table"`
	TargetTable string `yaml:"target-table"`
	Predicate   string `yaml:"predicate"`
	Description string `yaml:"description"`
}

// Catalog holds the schema for one database id.
type Catalog struct {
	DatabaseID    string         `yaml:"database-id"`
	Tables        []Table        `yaml:"tables"`
	Relationships []Relationship `yaml:"relationships"`
}

// catalogFile is the on-disk YAML shape for catalog extension files.
type catalogFile struct {
	Catalogs []Catalog `yaml:"catalogs"`
}

// Provider serves schema snippets for queries. It implements the
// SchemaContextProvider contract consumed by the classifier and orchestrator.
type Provider struct {
	catalogs map[string]*Catalog
}

// NewProvider builds a provider over the built-in catalogs.
func NewProvider() *Provider {
	p := &Provider{catalogs: make(map[string]*Catalog)}
	for _, c := range builtinCatalogs() {
		cat := c
		p.catalogs[c.DatabaseID] = &cat
	}
	return p
}

// LoadDir merges catalog YAML files from dir into the provider. Tables from
// files are appended to the matching built-in catalog, or form a new catalog
// when the database id is unknown.
func (p *Provider) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("schema: failed to read catalog dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("schema: failed to read %s: %w", entry.Name(), err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("schema: failed to parse %s: %w", entry.Name(), err)
		}
		for _, c := range file.Catalogs {
			if existing, ok := p.catalogs[c.DatabaseID]; ok {
				existing.Tables = append(existing.Tables, c.Tables...)
				existing.Relationships = append(existing.Relationships, c.Relationships...)
			} else {
				cat := c
				p.catalogs[c.DatabaseID] = &cat
			}
		}
	}
	return nil
}

// Catalog returns the catalog for a database id, or nil.
func (p *Provider) Catalog(dbID string) *Catalog {
	return p.catalogs[dbID]
}

// Search returns up to topK snippets relevant to the query text, ordered by
// descending score then catalog order. Scoring is pure keyword matching.
func (p *Provider) Search(query, dbID string, topK int) []Snippet {
	cat := p.catalogs[dbID]
	if cat == nil {
		return nil
	}
	if topK <= 0 {
		topK = 5
	}
	lower := strings.ToLower(query)
	tokens := tokenize(lower)

	type scored struct {
		snippet Snippet
		score   int
		order   int
	}
	var candidates []scored
	order := 0

	for _, t := range cat.Tables {
		score := 0
		if strings.Contains(lower, strings.ToLower(t.Name)) {
			score += 5
		}
		for _, kw := range t.Keywords {
			if containsToken(tokens, strings.ToLower(kw)) {
				score += 2
			}
		}
		for _, word := range tokenize(strings.ToLower(t.Description)) {
			if len(word) > 3 && containsToken(tokens, word) {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{
				snippet: Snippet{
					Document: fmt.Sprintf("Table %s: %s", t.Name, t.Description),
					Metadata: Metadata{Kind: "table", Table: t.Name},
				},
				score: score,
				order: order,
			})
		}
		order++
		for _, col := range t.Columns {
			colScore := 0
			if containsToken(tokens, strings.ToLower(col.Name)) {
				colScore += 4
			}
			for _, word := range tokenize(strings.ToLower(col.Description)) {
				if len(word) > 3 && containsToken(tokens, word) {
					colScore++
				}
			}
			if colScore > 0 {
				candidates = append(candidates, scored{
					snippet: Snippet{
						Document: fmt.Sprintf("Column %s.%s (%s): %s", t.Name, col.Name, col.Type, col.Description),
						Metadata: Metadata{Kind: "column", Table: t.Name, Column: col.Name},
					},
					score: colScore,
					order: order,
				})
			}
			order++
		}
	}

	for _, rel := range cat.Relationships {
		relScore := 0
		if strings.Contains(lower, strings.ToLower(rel.SourceTable)) || strings.Contains(lower, strings.ToLower(rel.TargetTable)) {
			relScore += 3
		}
		for _, word := range tokenize(strings.ToLower(rel.Description)) {
			if len(word) > 3 && containsToken(tokens, word) {
				relScore++
			}
		}
		if relScore > 0 {
			candidates = append(candidates, scored{
				snippet: Snippet{
					Document: fmt.Sprintf("Join %s -> %s ON %s: %s", rel.SourceTable, rel.TargetTable, rel.Predicate, rel.Description),
					Metadata: Metadata{Kind: "relationship", SourceTable: rel.SourceTable},
				},
				score: relScore,
				order: order,
			})
		}
		order++
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	out := make([]Snippet, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.snippet)
	}
	return out
}

// ColumnNames returns every column name in the catalog for dbID, upper-cased,
// in catalog order without duplicates.
func (p *Provider) ColumnNames(dbID string) []string {
	cat := p.catalogs[dbID]
	if cat == nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, t := range cat.Tables {
		for _, col := range t.Columns {
			upper := strings.ToUpper(col.Name)
			if !seen[upper] {
				seen[upper] = true
				names = append(names, upper)
			}
		}
	}
	return names
}

// Summary renders snippets into the plain-text schema summary given to the
// SQL generator prompt.
func Summary(snippets []Snippet) string {
	var b strings.Builder
	for _, s := range snippets {
		b.WriteString(s.Document)
		b.WriteString("\n")
	}
	return b.String()
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '_'
	})
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}
