package synthetic

import (
	"context"
	"reflect"
	"testing"

	"github.com/spigell/hirelytics/internal/ai"
)

func TestScorerIsDeterministic(t *testing.T) {
	batch := []ai.Candidate{{ID: "a", ResumeText: "x"}, {ID: "b", ResumeText: "y"}}

	first, err := New().Analyze(context.Background(), batch, ai.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := New().Analyze(context.Background(), batch, ai.Config{})

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("synthetic scores differ between runs")
	}

	for _, e := range first.Entries() {
		if *e.Score < 0 || *e.Score > 100 || len(e.Skills) != 4 || len(e.Personality) != 3 {
			t.Fatalf("unexpected entry: %+v", e)
		}
	}

	if ai.RequiresKey(New()) {
		t.Fatalf("synthetic scorer must not require a key")
	}
}

func TestScorerRejectsEmptyBatch(t *testing.T) {
	if _, err := New().Analyze(context.Background(), nil, ai.Config{}); err == nil {
		t.Fatalf("expected error for empty batch")
	}
}
