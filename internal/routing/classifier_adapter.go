// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package routing

import (
	"github.com/traylinx/sqlbridge/internal/classify"
	"github.com/traylinx/sqlbridge/internal/schema"
)

// SchemaClassifier adapts the pure classifier to the router's Classifier
// contract by resolving schema context first. Databases are probed in order;
// the first catalog producing snippets wins.
type SchemaClassifier struct {
	classifier *classify.Classifier
	provider   *schema.Provider
	databases  []string
}

// NewSchemaClassifier builds the adapter. databases defaults to probing
// erp_r12 then default.
func NewSchemaClassifier(classifier *classify.Classifier, provider *schema.Provider, databases ...string) *SchemaClassifier {
	if len(databases) == 0 {
		databases = []string{"erp_r12", "default"}
	}
	return &SchemaClassifier{classifier: classifier, provider: provider, databases: databases}
}

// Classify implements the router's Classifier contract.
func (sc *SchemaClassifier) Classify(text string) (classify.Classification, error) {
	var snippets []schema.Snippet
	for _, db := range sc.databases {
		if snippets = sc.provider.Search(text, db, 5); len(snippets) > 0 {
			break
		}
	}
	return sc.classifier.Classify(text, snippets), nil
}
