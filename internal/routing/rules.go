// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package routing

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"
)

// Rule is one data-driven pattern for the pattern tier. Condition is an
// expr-lang expression evaluated against RuleEnv; a rule with an empty
// condition falls back to substring matching on Keywords.
type Rule struct {
	// Name identifies the rule in logs and decision reasons.
	Name string `yaml:"name"`
	// Condition is an expr expression, e.g. `Lower contains "warehouse"`.
	Condition string `yaml:"condition"`
	// Keywords are matched as lowercase substrings when Condition is empty.
	Keywords []string `yaml:"keywords"`
	// Module receives queries matched by this rule.
	Module string `yaml:"module"`
	// Database backs the module for this rule.
	Database string `yaml:"database"`
	// Priority orders evaluation; higher runs first.
	Priority int `yaml:"priority"`
}

// RuleEnv is the expression environment a rule condition sees.
type RuleEnv struct {
	// Text is the raw query text.
	Text string
	// Lower is the lowercased query text.
	Lower string
	// Length is the number of whitespace-separated tokens.
	Length int
}

type compiledRule struct {
	rule    Rule
	program *vm.Program
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// RuleSet holds compiled routing rules loaded from a directory of YAML files.
// Reload is safe to call concurrently with Match.
type RuleSet struct {
	dir     string
	mu      sync.RWMutex
	rules   []compiledRule
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// LoadRules reads and compiles every rule file in dir.
func LoadRules(dir string) (*RuleSet, error) {
	rs := &RuleSet{dir: dir, done: make(chan struct{})}
	if err := rs.Reload(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Reload re-reads the rule directory and swaps in the new rule set atomically.
func (rs *RuleSet) Reload() error {
	entries, err := os.ReadDir(rs.dir)
	if err != nil {
		return fmt.Errorf("routing: failed to read rules dir: %w", err)
	}

	var compiled []compiledRule
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(rs.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("routing: failed to read rule file %s: %w", entry.Name(), err)
		}
		var file ruleFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("routing: failed to parse rule file %s: %w", entry.Name(), err)
		}
		for _, rule := range file.Rules {
			cr := compiledRule{rule: rule}
			if rule.Condition != "" {
				program, err := expr.Compile(rule.Condition, expr.Env(RuleEnv{}), expr.AsBool())
				if err != nil {
					log.WithFields(log.Fields{"rule": rule.Name, "error": err}).Warn("routing: skipping rule with invalid condition")
					continue
				}
				cr.program = program
			}
			compiled = append(compiled, cr)
		}
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].rule.Priority > compiled[j].rule.Priority
	})

	rs.mu.Lock()
	rs.rules = compiled
	rs.mu.Unlock()
	log.WithFields(log.Fields{"rules": len(compiled), "dir": rs.dir}).Info("routing: rules loaded")
	return nil
}

// Match evaluates rules in priority order and returns the first hit.
func (rs *RuleSet) Match(text string) (Decision, bool) {
	env := RuleEnv{
		Text:   text,
		Lower:  strings.ToLower(text),
		Length: len(strings.Fields(text)),
	}

	rs.mu.RLock()
	rules := rs.rules
	rs.mu.RUnlock()

	for _, cr := range rules {
		matched := false
		if cr.program != nil {
			out, err := expr.Run(cr.program, env)
			if err != nil {
				log.WithFields(log.Fields{"rule": cr.rule.Name, "error": err}).Debug("routing: rule evaluation failed")
				continue
			}
			matched, _ = out.(bool)
		} else {
			for _, kw := range cr.rule.Keywords {
				if strings.Contains(env.Lower, strings.ToLower(kw)) {
					matched = true
					break
				}
			}
		}
		if matched {
			return Decision{
				Module:   cr.rule.Module,
				Database: cr.rule.Database,
				Reason:   fmt.Sprintf("rule %q matched", cr.rule.Name),
			}, true
		}
	}
	return Decision{}, false
}

// Watch starts a background goroutine reloading the rule set whenever the
// directory changes. Stop with Close.
func (rs *RuleSet) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("routing: failed to create watcher: %w", err)
	}
	if err := watcher.Add(rs.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("routing: failed to watch rules dir: %w", err)
	}
	rs.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if err := rs.Reload(); err != nil {
					log.WithFields(log.Fields{"error": err}).Warn("routing: rule reload failed")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithFields(log.Fields{"error": err}).Warn("routing: watcher error")
			case <-rs.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the directory watcher.
func (rs *RuleSet) Close() {
	close(rs.done)
	if rs.watcher != nil {
		_ = rs.watcher.Close()
	}
}
