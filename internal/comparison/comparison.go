// Package comparison runs quota-gated candidate comparisons: it extracts
// candidate text, dispatches one provider call, normalizes and ranks the
// result and only then consumes quota.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/hirelytics/internal/ai"
	"github.com/spigell/hirelytics/internal/analysis"
	"github.com/spigell/hirelytics/internal/candidates"
	"github.com/spigell/hirelytics/internal/logger"
	"github.com/spigell/hirelytics/internal/plan"
	"github.com/spigell/hirelytics/internal/ranking"
)

// Ledgers hands out the quota ledger of a user.
type Ledgers interface {
	Ledger(ctx context.Context, user string) (*plan.Ledger, error)
}

// Credentials resolves the API key for a provider.
type Credentials interface {
	Lookup(scope string) (string, error)
}

type Deps struct {
	Ledgers     Ledgers
	Candidates  candidates.Source
	Cache       candidates.AnalysisCache
	Extractor   candidates.Extractor
	Registry    *ai.Registry
	Credentials Credentials
	Concurrency int
	Logger      *zap.Logger
	Now         func() time.Time
	NewRunID    func() string
}

type Request struct {
	UserID       string
	ProjectID    string
	CandidateIDs []string
	Config       ai.Config
}

// Ranking is a ranked analysis merged with its candidate record.
type Ranking struct {
	ranking.Entry
	UploadedAt time.Time `json:"uploadedAt"`
}

type Metadata struct {
	RunID          string      `json:"runId"`
	Provider       ai.Provider `json:"provider"`
	Model          string      `json:"model"`
	AnalysisDate   time.Time   `json:"analysisDate"`
	CandidateCount int         `json:"candidateCount"`
}

// Skipped is a candidate left out because its resume could not be read.
type Skipped struct {
	CandidateID string `json:"candidateId"`
	Name        string `json:"name"`
	Reason      string `json:"reason"`
}

type Result struct {
	Rankings []Ranking `json:"rankings"`
	Insights []string  `json:"insights"`
	Metadata Metadata  `json:"metadata"`
	Skipped  []Skipped `json:"skipped,omitempty"`
}

type Orchestrator struct {
	deps   Deps
	logger *zap.Logger
}

func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Ledgers == nil:
		return nil, errors.New("quota ledgers are required")
	case deps.Candidates == nil:
		return nil, errors.New("candidate source is required")
	case deps.Extractor == nil:
		return nil, errors.New("text extractor is required")
	case deps.Registry == nil:
		return nil, errors.New("provider registry is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}

	return &Orchestrator{deps: deps, logger: logger.WithFields(deps.Logger)}, nil
}

// Run compares the requested candidates. Quota is consumed only when a
// result is returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	ids := dedupe(req.CandidateIDs)
	if len(ids) < MinCandidates {
		return nil, &InsufficientCandidatesError{Selected: len(ids)}
	}

	runID := o.deps.NewRunID()
	log := logger.WithFields(o.logger, logger.RunFields(runID, req.UserID, req.ProjectID)...)

	ledger, err := o.deps.Ledgers.Ledger(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	release := ledger.Hold()
	defer release()

	if limits := ledger.Limits(); len(ids) > limits.CandidateLimit {
		return nil, &CandidateLimitError{Plan: ledger.Snapshot().Plan, Selected: len(ids), Limit: limits.CandidateLimit}
	}
	if !ledger.CanRunComparison() {
		return nil, &QuotaExceededError{Snapshot: ledger.Snapshot()}
	}

	analyzer, cfg, err := o.prepare(req.Config)
	if err != nil {
		return nil, err
	}
	log = logger.WithCommonFields(log, string(cfg.Provider), ai.ResolveModel(analyzer, cfg))

	all, err := o.deps.Candidates.GetCandidates(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	selected, err := candidates.Select(all, req.ProjectID, ids)
	if err != nil {
		return nil, err
	}

	normalizer := candidates.Normalizer{Extractor: o.deps.Extractor, Concurrency: o.deps.Concurrency, Logger: log}
	batch, report, err := normalizer.Normalize(ctx, selected)
	if err != nil {
		return nil, err
	}
	if report.Left == 0 {
		return nil, &AllExtractionsFailedError{Failures: report.Failures}
	}

	log.Info("dispatching comparison",
		zap.Int("selected", report.Initial),
		zap.Int("skipped", report.Dropped),
		zap.Int("candidates", report.Left),
	)

	native, err := analyzer.Analyze(ctx, batch, cfg)
	if err != nil {
		log.Warn("provider call failed", zap.Error(err))
		return nil, err
	}

	analyses, err := analysis.Normalize(native, batch)
	if err != nil {
		log.Warn("provider result rejected", zap.Error(err))
		return nil, err
	}

	entries := ranking.Rank(analyses)
	result := o.assemble(runID, cfg, analyzer, selected, entries, report)

	if err := ledger.RecordComparison(ctx); err != nil {
		log.Warn("comparison recorded in memory but not persisted", zap.Error(err))
	}

	o.cache(ctx, log, req.ProjectID, analyses)

	log.Info("comparison completed",
		zap.Int("ranked", len(result.Rankings)),
		zap.String("top_candidate", result.Rankings[0].CandidateID),
		zap.Int("top_score", result.Rankings[0].Score),
	)

	return result, nil
}

// prepare validates the configuration and resolves the analyzer and its key.
// Nothing here touches the network.
func (o *Orchestrator) prepare(cfg ai.Config) (ai.Analyzer, ai.Config, error) {
	provider, err := ai.ParseProvider(string(cfg.Provider))
	if err != nil {
		return nil, cfg, err
	}
	cfg.Provider = provider

	if err := cfg.Validate(); err != nil {
		return nil, cfg, &ConfigError{Err: err}
	}

	analyzer, err := o.deps.Registry.Lookup(provider)
	if err != nil {
		return nil, cfg, err
	}

	if cfg.APIKey == "" && ai.RequiresKey(analyzer) {
		if o.deps.Credentials == nil {
			return nil, cfg, &ConfigError{Err: fmt.Errorf("no credentials configured for %s", provider)}
		}
		key, err := o.deps.Credentials.Lookup(string(provider))
		if err != nil {
			return nil, cfg, &ConfigError{Err: err}
		}
		cfg.APIKey = key
	}

	return analyzer, cfg, nil
}

func (o *Orchestrator) assemble(runID string, cfg ai.Config, analyzer ai.Analyzer, selected []candidates.Candidate, entries []ranking.Entry, report candidates.Report) *Result {
	uploaded := make(map[string]time.Time, len(selected))
	for _, c := range selected {
		uploaded[c.ID] = c.UploadedAt
	}

	rankings := make([]Ranking, 0, len(entries))
	for _, e := range entries {
		rankings = append(rankings, Ranking{Entry: e, UploadedAt: uploaded[e.CandidateID]})
	}

	var skipped []Skipped
	for _, f := range report.Failures {
		skipped = append(skipped, Skipped{CandidateID: f.CandidateID, Name: f.Name, Reason: f.Err.Error()})
	}

	return &Result{
		Rankings: rankings,
		Insights: ranking.Insights(cfg.Provider, entries, report.Skipped()),
		Metadata: Metadata{
			RunID:          runID,
			Provider:       cfg.Provider,
			Model:          ai.ResolveModel(analyzer, cfg),
			AnalysisDate:   o.deps.Now().UTC(),
			CandidateCount: len(rankings),
		},
		Skipped: skipped,
	}
}

func (o *Orchestrator) cache(ctx context.Context, log *zap.Logger, projectID string, analyses []analysis.CandidateAnalysis) {
	if o.deps.Cache == nil {
		return
	}
	for _, a := range analyses {
		if err := o.deps.Cache.SaveAnalysis(ctx, projectID, a.CandidateID, a); err != nil {
			log.Warn("failed to cache analysis", zap.String("candidate_id", a.CandidateID), zap.Error(err))
		}
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
