// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package routing decides which execution module and backing database a query
// is sent to. The decision cascade has six mutually exclusive tiers, highest
// precedence first: explicit mode, explicit database, high-confidence
// classification, entity evidence, keyword/rule patterns, default.
package routing

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/sqlbridge/internal/classify"
)

// Routing tier names recorded on each decision.
const (
	TierExplicitMode = "explicit_mode"
	TierExplicitDB   = "explicit_db"
	TierClassifier   = "classifier"
	TierEntity       = "entity"
	TierPattern      = "pattern"
	TierDefault      = "default"
)

// Module identifiers.
const (
	ModuleERP     = "ERP_R12"
	ModuleFinance = "FINANCE"
	ModuleGeneral = "GENERAL"
)

// Decision is where a query is sent. Immutable once returned.
type Decision struct {
	Module     string  `json:"module"`
	Database   string  `json:"database"`
	Confidence float64 `json:"confidence"`
	Tier       string  `json:"tier"`
	Reason     string  `json:"reason"`
}

// Classifier is the classification dependency. Errors are swallowed by the
// router: a failing classifier disables the classifier and entity tiers only.
type Classifier interface {
	Classify(text string) (classify.Classification, error)
}

// Router implements the decision cascade.
type Router struct {
	classifier      Classifier
	rules           *RuleSet
	defaultModule   string
	defaultDatabase string
}

// New creates a router. rules may be nil when no rule files are configured;
// the built-in patterns still apply.
func New(classifier Classifier, rules *RuleSet, defaultModule, defaultDatabase string) *Router {
	if defaultModule == "" {
		defaultModule = ModuleGeneral
	}
	if defaultDatabase == "" {
		defaultDatabase = "default"
	}
	return &Router{
		classifier:      classifier,
		rules:           rules,
		defaultModule:   defaultModule,
		defaultDatabase: defaultDatabase,
	}
}

// explicitModes maps user-facing mode names to modules and databases.
var explicitModes = map[string]Decision{
	"ERP":     {Module: ModuleERP, Database: "erp_r12"},
	"FINANCE": {Module: ModuleFinance, Database: "default"},
	"GENERAL": {Module: ModuleGeneral, Database: "default"},
}

// databaseModules maps a database id to the module that owns it.
var databaseModules = map[string]string{
	"erp_r12": ModuleERP,
	"default": ModuleGeneral,
}

// domainModules maps a classified domain to its module and database.
var domainModules = map[string]Decision{
	"ERP":     {Module: ModuleERP, Database: "erp_r12"},
	"FINANCE": {Module: ModuleFinance, Database: "default"},
}

// Route evaluates the cascade and returns the first matching tier's decision.
func (r *Router) Route(text, explicitMode, explicitDB string) Decision {
	// Tier 1: explicit mode override.
	if explicitMode != "" {
		if d, ok := explicitModes[strings.ToUpper(explicitMode)]; ok {
			d.Confidence = 1.0
			d.Tier = TierExplicitMode
			d.Reason = fmt.Sprintf("explicit mode %q selected", explicitMode)
			return d
		}
		log.Warnf("routing: unknown explicit mode %q ignored", explicitMode)
	}

	// Tier 2: explicit database override.
	if explicitDB != "" {
		module, ok := databaseModules[explicitDB]
		if !ok {
			module = r.defaultModule
		}
		return Decision{
			Module:     module,
			Database:   explicitDB,
			Confidence: 0.95,
			Tier:       TierExplicitDB,
			Reason:     fmt.Sprintf("explicit database %q selected", explicitDB),
		}
	}

	cls, clsErr := r.classify(text)

	// Tier 3: high-confidence classification.
	if clsErr == nil && cls.Confidence > 0.7 {
		if d, ok := domainModules[cls.Domain]; ok {
			d.Confidence = min(cls.Confidence+0.1, 1.0)
			d.Tier = TierClassifier
			d.Reason = fmt.Sprintf("classified as %s with confidence %.2f", cls.Domain, cls.Confidence)
			return d
		}
	}

	// Tier 4: entity evidence with moderate classification confidence.
	if clsErr == nil && len(cls.Entities) > 0 && cls.Confidence > 0.5 {
		if d, ok := domainModules[cls.Domain]; ok {
			d.Confidence = min(cls.Confidence+0.05, 1.0)
			d.Tier = TierEntity
			d.Reason = fmt.Sprintf("%d entities detected in %s domain", len(cls.Entities), cls.Domain)
			return d
		}
	}

	// Tier 5: keyword/rule patterns at fixed confidence.
	if d, ok := r.matchPatterns(text); ok {
		d.Confidence = 0.85
		d.Tier = TierPattern
		return d
	}

	// Tier 6: default route.
	return Decision{
		Module:     r.defaultModule,
		Database:   r.defaultDatabase,
		Confidence: 0.6,
		Tier:       TierDefault,
		Reason:     "no routing evidence; default module",
	}
}

func (r *Router) classify(text string) (classify.Classification, error) {
	if r.classifier == nil {
		return classify.Classification{}, fmt.Errorf("routing: no classifier configured")
	}
	cls, err := r.classifier.Classify(text)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Debug("routing: classifier unavailable, skipping classifier tiers")
		return classify.Classification{}, err
	}
	return cls, nil
}

// builtinPatterns back the pattern tier when no rule file matches.
var builtinPatterns = []struct {
	keywords []string
	decision Decision
	reason   string
}{
	{
		keywords: []string{"operating unit", "onhand", "on-hand", "item cost", "sales order", "inventory"},
		decision: Decision{Module: ModuleERP, Database: "erp_r12"},
		reason:   "ERP keyword pattern matched",
	},
	{
		keywords: []string{"invoice", "journal", "ledger", "payable", "receivable"},
		decision: Decision{Module: ModuleFinance, Database: "default"},
		reason:   "finance keyword pattern matched",
	},
}

func (r *Router) matchPatterns(text string) (Decision, bool) {
	if r.rules != nil {
		if d, ok := r.rules.Match(text); ok {
			return d, true
		}
	}
	lower := strings.ToLower(text)
	for _, p := range builtinPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				d := p.decision
				d.Reason = p.reason
				return d, true
			}
		}
	}
	return Decision{}, false
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
