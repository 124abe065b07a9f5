// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package classify maps free-text questions to a structured Classification
// (domain, complexity, intent, confidence, entities). Classification is pure
// and deterministic for identical inputs and schema context.
package classify

import (
	"regexp"
	"strings"

	"github.com/traylinx/sqlbridge/internal/schema"
)

// Complexity levels for a query.
const (
	ComplexitySimple   = "SIMPLE"
	ComplexityModerate = "MODERATE"
	ComplexityComplex  = "COMPLEX"
)

// Intent buckets for a query.
const (
	IntentReporting     = "REPORTING"
	IntentAnalytics     = "ANALYTICS"
	IntentOperational   = "OPERATIONAL"
	IntentInformational = "INFORMATIONAL"
)

// DomainGeneral is the fallback domain when neither schema context nor
// keyword scoring identifies one.
const DomainGeneral = "GENERAL"

// Classification is the inferred shape of a question. Immutable once built.
type Classification struct {
	Domain      string           `json:"domain"`
	Complexity  string           `json:"complexity"`
	Intent      string           `json:"intent"`
	Confidence  float64          `json:"confidence"`
	Entities    []string         `json:"entities"`
	SchemaRefs  []schema.Snippet `json:"schema_refs,omitempty"`
	TokenCount  int              `json:"token_count"`
	DomainScore int              `json:"domain_score"`
}

// Classifier performs keyword/schema-driven classification.
type Classifier struct {
	domainKeywords map[string][]string
	intentKeywords map[string][]string
}

// New creates a classifier with the built-in keyword tables.
func New() *Classifier {
	return &Classifier{
		domainKeywords: map[string][]string{
			"ERP": {
				"item", "items", "inventory", "stock", "onhand", "order", "orders",
				"sales", "shipment", "organization", "operating", "unit", "cost",
				"purchase", "supplier", "warehouse",
			},
			"FINANCE": {
				"invoice", "invoices", "payment", "payments", "journal", "ledger",
				"account", "accounts", "payable", "receivable", "balance", "period",
			},
		},
		intentKeywords: map[string][]string{
			IntentReporting: {
				"report", "list", "show", "display", "export", "summary", "total",
				"monthly", "daily",
			},
			IntentAnalytics: {
				"trend", "compare", "analysis", "analyze", "average", "growth",
				"top", "rank", "distribution", "percentage",
			},
			IntentOperational: {
				"update", "status", "pending", "open", "current", "today", "active",
				"outstanding",
			},
			IntentInformational: {
				"what", "which", "who", "when", "where", "how", "explain", "describe",
			},
		},
	}
}

// Classify maps text and optional schema context to a Classification.
// Domain resolution from schema snippets takes precedence over keyword
// scoring; keyword scoring requires at least two hits.
func (c *Classifier) Classify(text string, schemaContext []schema.Snippet) Classification {
	lower := strings.ToLower(text)
	tokens := tokenize(lower)

	domain, domainScore := c.classifyDomain(tokens, schemaContext)
	complexity := c.classifyComplexity(tokens)
	intent, intentScore := c.classifyIntent(tokens)
	entities := extractEntities(text, schemaContext)

	confidence := 0.5
	if len(tokens) > 15 {
		confidence += 0.1
	}
	if len(tokens) < 5 {
		confidence -= 0.1
	}
	switch {
	case domainScore >= 4:
		confidence += 0.2
	case domainScore >= 2:
		confidence += 0.1
	}
	if intentScore >= 2 {
		confidence += 0.15
	}
	confidence = clamp01(confidence)

	return Classification{
		Domain:      domain,
		Complexity:  complexity,
		Intent:      intent,
		Confidence:  confidence,
		Entities:    entities,
		SchemaRefs:  schemaContext,
		TokenCount:  len(tokens),
		DomainScore: domainScore,
	}
}

// classifyDomain resolves the domain from schema snippets first (table-name
// prefix), then keyword scoring with a two-hit minimum.
func (c *Classifier) classifyDomain(tokens []string, schemaContext []schema.Snippet) (string, int) {
	for _, snip := range schemaContext {
		table := snip.Metadata.Table
		if table == "" {
			table = snip.Metadata.SourceTable
		}
		if table == "" {
			continue
		}
		if domain := schema.DomainForTable(table); domain != "" {
			return domain, c.scoreKeywords(tokens, c.domainKeywords[domain])
		}
	}

	bestDomain := DomainGeneral
	bestScore := 0
	// Deterministic order: check domains alphabetically.
	for _, domain := range []string{"ERP", "FINANCE"} {
		score := c.scoreKeywords(tokens, c.domainKeywords[domain])
		if score > bestScore {
			bestDomain = domain
			bestScore = score
		}
	}
	if bestScore < 2 {
		return DomainGeneral, bestScore
	}
	return bestDomain, bestScore
}

// complexTerms and moderateTerms drive keyword-frequency complexity bands.
var (
	complexTerms = []string{
		"join", "correlate", "nested", "subquery", "pivot", "cumulative",
		"year-over-year", "variance", "forecast", "breakdown", "cohort",
	}
	moderateTerms = []string{
		"group", "grouped", "aggregate", "sum", "count", "average", "between",
		"filter", "sorted", "per",
	}
	simpleTerms = []string{"list", "show", "all", "get"}
)

func (c *Classifier) classifyComplexity(tokens []string) string {
	complexHits := c.scoreKeywords(tokens, complexTerms)
	moderateHits := c.scoreKeywords(tokens, moderateTerms)
	simpleHits := c.scoreKeywords(tokens, simpleTerms)

	switch {
	case complexHits >= 2:
		return ComplexityComplex
	case moderateHits >= 2:
		return ComplexityModerate
	case simpleHits >= 1:
		return ComplexitySimple
	}
	// Keyword evidence inconclusive; fall back to length bands.
	switch {
	case len(tokens) > 20:
		return ComplexityComplex
	case len(tokens) > 10:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

var interrogatives = []string{"what", "which", "who", "when", "where", "why", "how"}

// classifyIntent picks the highest-scoring bucket; ties favor REPORTING via
// evaluation order. Interrogative tokens force INFORMATIONAL only when no
// bucket scored at all.
func (c *Classifier) classifyIntent(tokens []string) (string, int) {
	best := IntentReporting
	bestScore := 0
	for _, intent := range []string{IntentReporting, IntentAnalytics, IntentOperational, IntentInformational} {
		score := c.scoreKeywords(tokens, c.intentKeywords[intent])
		if score > bestScore {
			best = intent
			bestScore = score
		}
	}
	if bestScore == 0 {
		for _, q := range interrogatives {
			if containsToken(tokens, q) {
				return IntentInformational, 0
			}
		}
	}
	return best, bestScore
}

func (c *Classifier) scoreKeywords(tokens []string, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		if containsToken(tokens, kw) {
			score++
		}
	}
	return score
}

var (
	quotedRe  = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	idTokenRe = regexp.MustCompile(`^(?:\d+|[A-Z]{2,}[-_]?\d+|[A-Za-z]+\d+)$`)
)

// extractEntities collects quoted substrings, numeric/ID-like tokens, and up
// to five schema column names appearing verbatim in the text.
func extractEntities(text string, schemaContext []schema.Snippet) []string {
	var entities []string
	seen := make(map[string]bool)
	add := func(e string) {
		if e == "" || seen[e] {
			return
		}
		seen[e] = true
		entities = append(entities, e)
	}

	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			add(m[1])
		} else {
			add(m[2])
		}
	}
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ".,;:?!()")
		if idTokenRe.MatchString(tok) {
			add(tok)
		}
	}

	lower := strings.ToLower(text)
	columns := 0
	for _, snip := range schemaContext {
		if snip.Metadata.Column == "" || columns >= 5 {
			continue
		}
		if strings.Contains(lower, strings.ToLower(snip.Metadata.Column)) {
			add(snip.Metadata.Column)
			columns++
		}
	}
	return entities
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_' && r != '-'
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

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
