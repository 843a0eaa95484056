// Package candidates holds candidate records, resume text extraction and the
// project directory store.
package candidates

import (
	"context"
	"fmt"
	"time"

	"github.com/spigell/hirelytics/internal/analysis"
)

// Candidate is an uploaded applicant of one project.
type Candidate struct {
	ID         string
	Name       string
	Resume     []byte
	Character  []byte
	UploadedAt time.Time

	// Analyzed is the last analysis of this candidate, if any.
	Analyzed *analysis.CandidateAnalysis
}

// Source lists the candidates of a project.
type Source interface {
	GetCandidates(ctx context.Context, projectID string) ([]Candidate, error)
}

// AnalysisCache stores the latest analysis of a candidate, overwriting older ones.
type AnalysisCache interface {
	SaveAnalysis(ctx context.Context, projectID, candidateID string, a analysis.CandidateAnalysis) error
}

// Store is a Source with an attached analysis cache.
type Store interface {
	Source
	AnalysisCache
}

// AnalysisLoader reads back the cached analyses of a project, keyed by candidate id.
type AnalysisLoader interface {
	LoadAnalyses(ctx context.Context, projectID string) (map[string]analysis.CandidateAnalysis, error)
}

// WithAnalyses returns a Source whose candidates carry the analyses held by
// loader. A cached analysis replaces whatever src attached.
func WithAnalyses(src Source, loader AnalysisLoader) Source {
	return &analyzedSource{src: src, loader: loader}
}

type analyzedSource struct {
	src    Source
	loader AnalysisLoader
}

func (s *analyzedSource) GetCandidates(ctx context.Context, projectID string) ([]Candidate, error) {
	all, err := s.src.GetCandidates(ctx, projectID)
	if err != nil {
		return nil, err
	}

	cached, err := s.loader.LoadAnalyses(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load cached analyses of project %s: %w", projectID, err)
	}

	out := make([]Candidate, len(all))
	for i, c := range all {
		if a, ok := cached[c.ID]; ok {
			c.Analyzed = &a
		}
		out[i] = c
	}
	return out, nil
}

// ExtractionError means the resume of one candidate could not be turned into text.
// The candidate is dropped from the run; the run itself continues.
type ExtractionError struct {
	CandidateID string
	Name        string
	Err         error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract resume of candidate %s (%s): %v", e.CandidateID, e.Name, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NotFoundError is returned when a project or candidate does not exist.
type NotFoundError struct {
	ProjectID   string
	CandidateID string
}

func (e *NotFoundError) Error() string {
	if e.CandidateID == "" {
		return fmt.Sprintf("project %s not found", e.ProjectID)
	}
	return fmt.Sprintf("candidate %s not found in project %s", e.CandidateID, e.ProjectID)
}

// Select picks candidates by id in the order of ids.
func Select(all []Candidate, projectID string, ids []string) ([]Candidate, error) {
	byID := make(map[string]Candidate, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, &NotFoundError{ProjectID: projectID, CandidateID: id}
		}
		out = append(out, c)
	}
	return out, nil
}
