// Package synthetic provides an offline analyzer for dry runs and tests.
// Scores are a hash of the candidate text and say nothing about the candidate.
package synthetic

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/spigell/hirelytics/internal/ai"
)

var (
	skillNames       = []string{"technical", "communication", "leadership", "creativity"}
	personalityNames = []string{"analytical", "collaborative", "innovative"}
)

// Model is reported as the model of synthetic runs.
const Model = "fnv-synthetic"

type Scorer struct{}

func New() *Scorer {
	return &Scorer{}
}

func (s *Scorer) RequiresKey() bool { return false }

func (s *Scorer) DefaultModel() string { return Model }

func (s *Scorer) Analyze(ctx context.Context, candidates []ai.Candidate, _ ai.Config) (ai.NativeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("candidate batch must not be empty")
	}

	entries := make([]ai.Entry, 0, len(candidates))
	for _, c := range candidates {
		entries = append(entries, Score(c))
	}
	return &ai.SyntheticResult{Items: entries}, nil
}

// Score derives a stable entry for a single candidate.
func Score(c ai.Candidate) ai.Entry {
	seed := c.ID + "\x00" + c.ResumeText + "\x00" + c.CharacterText

	e := ai.Entry{
		Score:       ai.Float(value(seed, "score")),
		Skills:      make(map[string]float64, len(skillNames)),
		Personality: make(map[string]float64, len(personalityNames)),
	}
	for _, n := range skillNames {
		e.Skills[n] = value(seed, n)
	}
	for _, n := range personalityNames {
		e.Personality[n] = value(seed, n)
	}
	return e
}

func value(seed, category string) float64 {
	h := fnv.New64a()
	h.Write([]byte(category))
	h.Write([]byte{0})
	h.Write([]byte(seed))
	return float64(h.Sum64() % 101)
}
