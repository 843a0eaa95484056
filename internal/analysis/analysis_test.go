package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/spigell/hirelytics/internal/ai"
)

var pair = []ai.Candidate{{ID: "c1", Name: "Ada"}, {ID: "c2", Name: "Grace"}}

func TestNormalizePreservesOrderAndBoundaries(t *testing.T) {
	res := &ai.CompletionResult{Provider: ai.ProviderOpenAI, Items: []ai.Entry{
		{
			Score:       ai.Float(0),
			Skills:      map[string]float64{"technical": 0, "communication": 100, "leadership": 0, "creativity": 100},
			Personality: map[string]float64{"analytical": 100, "collaborative": 0, "innovative": 100},
			CulturalFit: ai.Float(100),
		},
		{Score: ai.Float(100), Skills: map[string]float64{"technical": 99.5}},
	}}

	got, err := Normalize(res, pair)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got[0].CandidateID != "c1" || got[1].CandidateID != "c2" {
		t.Fatalf("order not preserved: %+v", got)
	}
	if got[0].Score != 0 || got[1].Score != 100 {
		t.Fatalf("boundary scores changed: %d, %d", got[0].Score, got[1].Score)
	}
	if got[0].Skills["communication"] != 100 || got[0].Personality["collaborative"] != 0 || *got[0].CulturalFit != 100 {
		t.Fatalf("boundary sub-scores changed: %+v", got[0])
	}
	if got[1].Skills["technical"] != 100 {
		t.Fatalf("expected 99.5 to round to 100, got %d", got[1].Skills["technical"])
	}
	if got[1].Name != "Grace" {
		t.Fatalf("name not attached: %+v", got[1])
	}
}

func TestNormalizeMissingCategoriesStayAbsent(t *testing.T) {
	res := &ai.GenerationResult{Provider: ai.ProviderCohere, Items: []ai.Entry{
		{Score: ai.Float(50), Skills: map[string]float64{"technical": 70}},
		{Score: ai.Float(60)},
	}}

	got, err := Normalize(res, pair)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := got[0].Skills["leadership"]; ok {
		t.Fatalf("missing category should stay absent: %v", got[0].Skills)
	}
	if len(got[1].Skills) != 0 || len(got[1].Personality) != 0 || got[1].CulturalFit != nil {
		t.Fatalf("expected empty groups: %+v", got[1])
	}
}

func TestNormalizeRejectsInvalidScores(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		entry ai.Entry
		field string
	}{
		{name: "missing score", entry: ai.Entry{}, field: "score"},
		{name: "above range", entry: ai.Entry{Score: ai.Float(100.6)}, field: "score"},
		{name: "below range", entry: ai.Entry{Score: ai.Float(-1)}, field: "score"},
		{name: "nan", entry: ai.Entry{Score: ai.Float(math.NaN())}, field: "score"},
		{name: "skill", entry: ai.Entry{Score: ai.Float(5), Skills: map[string]float64{"technical": 120}}, field: "skills.technical"},
		{name: "trait", entry: ai.Entry{Score: ai.Float(5), Personality: map[string]float64{"innovative": -3}}, field: "personality.innovative"},
		{name: "cultural fit", entry: ai.Entry{Score: ai.Float(5), CulturalFit: ai.Float(101)}, field: "culturalFit"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := &ai.SyntheticResult{Items: []ai.Entry{{Score: ai.Float(10)}, tc.entry}}
			_, err := Normalize(res, pair)

			var violation *InvariantViolationError
			if !errors.As(err, &violation) {
				t.Fatalf("expected InvariantViolationError, got %v", err)
			}
			if violation.CandidateID != "c2" || violation.Field != tc.field {
				t.Fatalf("unexpected violation: %+v", violation)
			}
		})
	}
}

func TestNormalizeAttachesEmbeddings(t *testing.T) {
	res := &ai.EmbeddingResult{
		Provider: ai.ProviderJina,
		Vectors:  [][]float64{{0.1}, {0.2}},
		Items:    []ai.Entry{{Score: ai.Float(40)}, {Score: ai.Float(41)}},
	}

	got, err := Normalize(res, pair)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got[1].Embedding) != 1 || got[1].Embedding[0] != 0.2 {
		t.Fatalf("embedding not attached: %+v", got[1])
	}
}

func TestNormalizeCountMismatch(t *testing.T) {
	_, err := Normalize(&ai.SyntheticResult{Items: []ai.Entry{{Score: ai.Float(1)}}}, pair)
	var parseErr *ai.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
