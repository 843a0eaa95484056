// Package analysis turns provider-native entries into the common candidate analysis shape.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/spigell/hirelytics/internal/ai"
)

const (
	MinScore = 0
	MaxScore = 100
)

// CandidateAnalysis is the provider independent result for one candidate.
// Sub-score categories the provider did not return are absent from the maps.
type CandidateAnalysis struct {
	CandidateID string         `json:"candidateId" yaml:"candidate-id"`
	Name        string         `json:"name" yaml:"name"`
	Score       int            `json:"score" yaml:"score"`
	Skills      map[string]int `json:"skills" yaml:"skills"`
	Personality map[string]int `json:"personality" yaml:"personality"`
	CulturalFit *int           `json:"culturalFit,omitempty" yaml:"cultural-fit,omitempty"`
	Summary     string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Embedding   []float64      `json:"embedding,omitempty" yaml:"-"`
}

// InvariantViolationError reports a missing or out of range score.
type InvariantViolationError struct {
	CandidateID string
	Field       string
	Value       float64
	Missing     bool
}

func (e *InvariantViolationError) Error() string {
	if e.Missing {
		return fmt.Sprintf("candidate %s: %s is missing", e.CandidateID, e.Field)
	}
	return fmt.Sprintf("candidate %s: %s=%v is outside [%d,%d]", e.CandidateID, e.Field, e.Value, MinScore, MaxScore)
}

// Normalize pairs entries with candidates positionally. Output order equals input order.
// Values are rounded half away from zero and then range checked; nothing is clamped.
func Normalize(result ai.NativeResult, candidates []ai.Candidate) ([]CandidateAnalysis, error) {
	if result == nil {
		return nil, &ai.ParseError{Reason: "no provider result"}
	}

	entries := result.Entries()
	if len(entries) != len(candidates) {
		return nil, &ai.ParseError{
			Provider: result.Source(),
			Reason:   fmt.Sprintf("expected %d entries, got %d", len(candidates), len(entries)),
		}
	}

	var vectors [][]float64
	if emb, ok := result.(*ai.EmbeddingResult); ok {
		vectors = emb.Vectors
	}

	out := make([]CandidateAnalysis, 0, len(entries))
	for i, entry := range entries {
		c := candidates[i]

		a, err := normalizeEntry(c, entry)
		if err != nil {
			return nil, err
		}
		if i < len(vectors) {
			a.Embedding = vectors[i]
		}
		out = append(out, a)
	}

	return out, nil
}

func normalizeEntry(c ai.Candidate, e ai.Entry) (CandidateAnalysis, error) {
	if e.Score == nil {
		return CandidateAnalysis{}, &InvariantViolationError{CandidateID: c.ID, Field: "score", Missing: true}
	}

	score, err := checkScore(c.ID, "score", *e.Score)
	if err != nil {
		return CandidateAnalysis{}, err
	}

	skills, err := checkGroup(c.ID, "skills", e.Skills)
	if err != nil {
		return CandidateAnalysis{}, err
	}

	personality, err := checkGroup(c.ID, "personality", e.Personality)
	if err != nil {
		return CandidateAnalysis{}, err
	}

	a := CandidateAnalysis{
		CandidateID: c.ID,
		Name:        c.Name,
		Score:       score,
		Skills:      skills,
		Personality: personality,
		Summary:     e.Summary,
	}

	if e.CulturalFit != nil {
		fit, err := checkScore(c.ID, "culturalFit", *e.CulturalFit)
		if err != nil {
			return CandidateAnalysis{}, err
		}
		a.CulturalFit = &fit
	}

	return a, nil
}

func checkGroup(id, group string, values map[string]float64) (map[string]int, error) {
	out := make(map[string]int, len(values))

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := checkScore(id, group+"."+k, values[k])
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func checkScore(id, field string, v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InvariantViolationError{CandidateID: id, Field: field, Value: v}
	}
	r := math.Round(v)
	if r < MinScore || r > MaxScore {
		return 0, &InvariantViolationError{CandidateID: id, Field: field, Value: v}
	}
	return int(r), nil
}
