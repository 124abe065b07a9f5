// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hybrid orchestrates the two SQL-generation paths. Per request the
// flow is ROUTE -> API_ATTEMPT -> {API_SUCCESS | API_EMPTY -> OPTIMIZE_RETRY
// -> {OPTIMIZED_SUCCESS | OPTIMIZED_EMPTY -> LOCAL_FALLBACK} | API_FAILED ->
// LOCAL_FALLBACK} -> DONE. No error ever escapes Process; every outcome is a
// ProcessingResult with a terminal processing mode.
package hybrid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/sqlbridge/internal/classify"
	"github.com/traylinx/sqlbridge/internal/dbconn"
	"github.com/traylinx/sqlbridge/internal/engine"
	"github.com/traylinx/sqlbridge/internal/generator"
	"github.com/traylinx/sqlbridge/internal/history"
	"github.com/traylinx/sqlbridge/internal/routing"
	"github.com/traylinx/sqlbridge/internal/schema"
	"github.com/traylinx/sqlbridge/internal/sqlfix"
)

// Mode is the terminal processing mode of a request. Set exactly once on the
// returned result and never changed afterwards.
type Mode string

const (
	ModeAPI           Mode = "api"
	ModeLocalFallback Mode = "local_fallback"
	ModeLocalGeneral  Mode = "local_general"
	ModeError         Mode = "error"
)

// Request is one query to process.
type Request struct {
	RequestID    string
	Query        string
	ExplicitMode string
	ExplicitDB   string
	Page         int
	PageSize     int
	// Cancelled is the caller-owned cooperative cancellation token.
	Cancelled engine.Token
}

// ProcessingResult is the terminal answer envelope.
type ProcessingResult struct {
	SQL                string            `json:"sql,omitempty"`
	Result             *engine.Result    `json:"result,omitempty"`
	Summary            string            `json:"summary,omitempty"`
	Mode               Mode              `json:"processing_mode"`
	ModelUsed          string            `json:"model_used,omitempty"`
	Routing            routing.Decision  `json:"routing"`
	SelectionReasoning string            `json:"selection_reasoning"`
	Elapsed            time.Duration     `json:"-"`
	ElapsedMs          int64             `json:"elapsed_ms"`
	Error              string            `json:"error,omitempty"`
	Cancelled          bool              `json:"cancelled,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Rewriter applies user plugins to a normalized statement before validation.
type Rewriter interface {
	Rewrite(sql string) (string, error)
}

// Sink receives terminal results, e.g. the history store.
type Sink interface {
	Record(rec history.Record)
}

// Orchestrator wires the pipeline together.
type Orchestrator struct {
	router     *routing.Router
	classifier *classify.Classifier
	provider   *schema.Provider
	apiGen     generator.SQLGenerator
	localGen   generator.SQLGenerator
	summarizer generator.Summarizer
	engine     *engine.Engine
	databases  *dbconn.Manager
	rewriter   Rewriter
	sink       Sink
	stats      *Stats
	modelName  string
}

// Options carries the optional collaborators.
type Options struct {
	// APIGenerator may be nil when no external generator is configured; every
	// query then takes a local path.
	APIGenerator generator.SQLGenerator
	// Summarizer may be nil; the deterministic fallback summary is used.
	Summarizer generator.Summarizer
	// Rewriter may be nil; plugin rewriting is skipped.
	Rewriter Rewriter
	// Sink may be nil; results are not recorded.
	Sink Sink
	// ModelName labels API-generated results.
	ModelName string
}

// New creates the orchestrator.
func New(router *routing.Router, classifier *classify.Classifier, provider *schema.Provider,
	localGen generator.SQLGenerator, eng *engine.Engine, databases *dbconn.Manager, opts Options) *Orchestrator {
	return &Orchestrator{
		router:     router,
		classifier: classifier,
		provider:   provider,
		apiGen:     opts.APIGenerator,
		localGen:   localGen,
		summarizer: opts.Summarizer,
		engine:     eng,
		databases:  databases,
		rewriter:   opts.Rewriter,
		sink:       opts.Sink,
		stats:      &Stats{},
		modelName:  opts.ModelName,
	}
}

// Stats returns the orchestrator's counters.
func (o *Orchestrator) Stats() *Stats { return o.stats }

// Process runs the full pipeline for one request. It never returns an error
// or panics: every failure is folded into the result's mode and error fields.
func (o *Orchestrator) Process(ctx context.Context, req Request) (result *ProcessingResult) {
	start := time.Now()
	logger := log.WithFields(log.Fields{"request_id": req.RequestID})

	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(log.Fields{"panic": r}).Error("hybrid: recovered from panic")
			result = &ProcessingResult{
				Mode:               ModeError,
				Error:              fmt.Sprintf("internal error: %v", r),
				SelectionReasoning: "panic recovered at orchestrator boundary",
			}
		}
		result.Elapsed = time.Since(start)
		result.ElapsedMs = result.Elapsed.Milliseconds()
		o.stats.record(result.Mode)
		o.record(req, result)
	}()

	decision := o.router.Route(req.Query, req.ExplicitMode, req.ExplicitDB)
	logger.WithFields(log.Fields{"module": decision.Module, "tier": decision.Tier, "confidence": decision.Confidence}).Info("hybrid: routed")

	// A non-primary route skips the API path entirely.
	if decision.Module == routing.ModuleGeneral {
		result = o.processLocal(ctx, req, decision, ModeLocalGeneral, "routed to general-purpose module")
		return result
	}

	result = o.processAPI(ctx, req, decision, logger)
	return result
}

// processAPI is the API_ATTEMPT branch, including the zero-row optimization
// retry and fallback transitions.
func (o *Orchestrator) processAPI(ctx context.Context, req Request, decision routing.Decision, logger *log.Entry) *ProcessingResult {
	if o.apiGen == nil {
		return o.processLocal(ctx, req, decision, ModeLocalFallback, "no API generator configured")
	}

	snippets := o.provider.Search(req.Query, decision.Database, 8)
	cls := o.classifier.Classify(req.Query, snippets)

	resp := o.apiGen.GenerateSQL(ctx, req.Query, schema.Summary(snippets))
	if !resp.Success {
		logger.WithFields(log.Fields{"error": resp.Error}).Warn("hybrid: API generation failed")
		res := o.processLocal(ctx, req, decision, ModeLocalFallback, "API generation failed: "+resp.Error)
		return res
	}

	normalizer := sqlfix.Normalizer{HistoricalIntent: historicalIntent(req.Query, cls)}
	gen := normalizer.Prepare(resp.Content, sqlfix.SourceAPI)
	gen.Cleaned = o.applyRewriter(gen.Cleaned, logger)
	gen.Valid = sqlfix.Validate(gen.Cleaned)
	if !gen.Valid {
		logger.WithFields(log.Fields{"raw_len": len(resp.Content)}).Warn("hybrid: API SQL failed validation")
		return o.processLocal(ctx, req, decision, ModeLocalFallback, "API SQL failed validation")
	}

	db, err := o.databases.Handle(decision.Database)
	if err != nil {
		return o.processLocal(ctx, req, decision, ModeLocalFallback, err.Error())
	}

	execResult, err := o.engine.Execute(ctx, db, gen.Cleaned, req.Page, req.PageSize, req.Cancelled)
	if err != nil {
		if errors.Is(err, engine.ErrCancelled) {
			return cancelledResult(decision)
		}
		logger.WithFields(log.Fields{"error": err}).Warn("hybrid: API path execution failed")
		res := o.processLocal(ctx, req, decision, ModeLocalFallback, "API path execution failed")
		if res.Metadata == nil {
			res.Metadata = make(map[string]string)
		}
		res.Metadata["api_error"] = err.Error()
		return res
	}

	if execResult.RowCount > 0 {
		return o.success(ctx, req, decision, gen.Cleaned, execResult, ModeAPI, o.modelName,
			"API-generated SQL executed successfully")
	}

	// API_EMPTY: exactly one optimization pass over the original statement.
	original := execResult
	if optimized, changed := sqlfix.Broaden(gen.Cleaned); changed && sqlfix.Validate(optimized) {
		optResult, optErr := o.engine.Execute(ctx, db, optimized, req.Page, req.PageSize, req.Cancelled)
		if optErr == nil && optResult.RowCount > 0 {
			res := o.success(ctx, req, decision, optimized, optResult, ModeAPI, o.modelName,
				"broadened API SQL recovered a non-empty result")
			res.Metadata = map[string]string{"optimized": "true"}
			return res
		}
		if optErr != nil && errors.Is(optErr, engine.ErrCancelled) {
			return cancelledResult(decision)
		}
	}

	// OPTIMIZED_EMPTY: give the local path one shot. When it also comes back
	// empty or fails, the original unoptimized API result is the answer:
	// empty results are not failures, and the original SQL is the most
	// faithful rendering of the question.
	local := o.processLocal(ctx, req, decision, ModeLocalFallback, "API result empty after optimization")
	if local.Mode != ModeError && local.Result != nil && local.Result.RowCount > 0 {
		return local
	}
	res := o.success(ctx, req, decision, gen.Cleaned, original, ModeAPI, o.modelName,
		"returning original API result; optimization and local fallback were both empty")
	res.Metadata = map[string]string{"optimization_exhausted": "true"}
	return res
}

// processLocal is the LOCAL_FALLBACK / LOCAL_GENERAL branch.
func (o *Orchestrator) processLocal(ctx context.Context, req Request, decision routing.Decision, mode Mode, reason string) *ProcessingResult {
	resp := o.localGen.GenerateSQL(ctx, req.Query, "")
	if !resp.Success {
		return &ProcessingResult{
			Mode:               ModeError,
			Routing:            decision,
			Error:              resp.Error,
			SelectionReasoning: reason + "; local generation failed",
		}
	}

	normalizer := sqlfix.Normalizer{}
	gen := normalizer.Prepare(resp.Content, sqlfix.SourceLocal)
	gen.Cleaned = o.applyRewriter(gen.Cleaned, log.WithFields(log.Fields{"request_id": req.RequestID}))
	if !sqlfix.Validate(gen.Cleaned) {
		return &ProcessingResult{
			Mode:               ModeError,
			Routing:            decision,
			Error:              "locally generated SQL failed validation",
			SelectionReasoning: reason,
		}
	}

	db, err := o.databases.Handle(decision.Database)
	if err != nil {
		return &ProcessingResult{
			Mode:               ModeError,
			Routing:            decision,
			Error:              err.Error(),
			SelectionReasoning: reason,
		}
	}

	execResult, err := o.engine.Execute(ctx, db, gen.Cleaned, req.Page, req.PageSize, req.Cancelled)
	if err != nil {
		if errors.Is(err, engine.ErrCancelled) {
			return cancelledResult(decision)
		}
		return &ProcessingResult{
			Mode:               ModeError,
			Routing:            decision,
			Error:              err.Error(),
			SelectionReasoning: reason + "; local execution failed",
		}
	}

	return o.success(ctx, req, decision, gen.Cleaned, execResult, mode, "local-rules", reason)
}

// success assembles a terminal result. The summary is requested only for
// non-empty results; summarizer failures substitute the deterministic
// fallback and never block the response.
func (o *Orchestrator) success(ctx context.Context, req Request, decision routing.Decision,
	sql string, execResult *engine.Result, mode Mode, model, reasoning string) *ProcessingResult {
	summary := ""
	if execResult.RowCount > 0 {
		if o.summarizer != nil {
			summary = o.safeSummarize(ctx, req.Query, execResult, sql)
		}
		if summary == "" {
			summary = generator.FallbackSummary(execResult.RowCount)
		}
	} else {
		summary = generator.FallbackSummary(0)
	}

	return &ProcessingResult{
		SQL:                sql,
		Result:             execResult,
		Summary:            summary,
		Mode:               mode,
		ModelUsed:          model,
		Routing:            decision,
		SelectionReasoning: reasoning,
	}
}

func (o *Orchestrator) safeSummarize(ctx context.Context, query string, execResult *engine.Result, sql string) (summary string) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"panic": r}).Warn("hybrid: summarizer panicked")
			summary = ""
		}
	}()
	return o.summarizer.Summarize(ctx, query, execResult.Columns, execResult.Rows, sql)
}

func (o *Orchestrator) applyRewriter(sql string, logger *log.Entry) string {
	if o.rewriter == nil {
		return sql
	}
	rewritten, err := o.rewriter.Rewrite(sql)
	if err != nil {
		logger.WithFields(log.Fields{"error": err}).Warn("hybrid: plugin rewrite failed, keeping original")
		return sql
	}
	return rewritten
}

func (o *Orchestrator) record(req Request, res *ProcessingResult) {
	if o.sink == nil {
		return
	}
	rec := history.Record{
		Query:          req.Query,
		SQL:            res.SQL,
		ProcessingMode: string(res.Mode),
		ModelUsed:      res.ModelUsed,
		Module:         res.Routing.Module,
		Database:       res.Routing.Database,
		Confidence:     res.Routing.Confidence,
		ElapsedMs:      res.ElapsedMs,
		Error:          res.Error,
		Metadata:       res.Metadata,
	}
	if res.Result != nil {
		rec.RowCount = res.Result.RowCount
	}
	o.sink.Record(rec)
}

func cancelledResult(decision routing.Decision) *ProcessingResult {
	return &ProcessingResult{
		Mode:               ModeError,
		Routing:            decision,
		Error:              engine.ErrCancelled.Error(),
		Cancelled:          true,
		SelectionReasoning: "cancellation requested by caller",
	}
}

// historicalKeywords trigger the restrictive-date broadening repair during
// normalization.
var historicalKeywords = []string{"history", "historical", "trend", "last year", "past", "sales analysis", "over time"}

func historicalIntent(query string, cls classify.Classification) bool {
	if cls.Intent == classify.IntentAnalytics {
		return true
	}
	lower := strings.ToLower(query)
	for _, kw := range historicalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
