package candidates

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spigell/hirelytics/internal/analysis"
)

func TestDirStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewDirStore(root)

	early := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	if _, err := store.Put(ctx, "backend", Candidate{ID: "zed", Name: "Zed", Resume: []byte("cv"), UploadedAt: early}, ".TXT"); err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := store.Put(ctx, "backend", Candidate{Name: "Amy", Character: []byte("curious"), UploadedAt: late}, "")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if second.ID == "" {
		t.Fatal("expected a generated id")
	}

	got, err := store.GetCandidates(ctx, "backend")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].ID != "zed" || got[1].ID != second.ID {
		t.Fatalf("expected upload order, got %+v", got)
	}
	if string(got[0].Resume) != "cv" || got[0].Name != "Zed" || !got[0].UploadedAt.Equal(early) {
		t.Fatalf("unexpected first candidate: %+v", got[0])
	}
	if _, err := os.Stat(filepath.Join(root, "backend", "zed", "resume.txt")); err != nil {
		t.Fatalf("resume file not written with normalized extension: %v", err)
	}
	if len(got[1].Resume) != 0 || string(got[1].Character) != "curious" {
		t.Fatalf("unexpected second candidate: %+v", got[1])
	}

	fit := 80
	a := analysis.CandidateAnalysis{
		CandidateID: "zed",
		Name:        "Zed",
		Score:       77,
		Skills:      map[string]int{"technical": 90},
		Personality: map[string]int{"analytical": 60},
		CulturalFit: &fit,
		Embedding:   []float64{0.5},
	}
	if err := store.SaveAnalysis(ctx, "backend", "zed", a); err != nil {
		t.Fatalf("save analysis: %v", err)
	}

	got, err = store.GetCandidates(ctx, "backend")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	cached := got[0].Analyzed
	if cached == nil || cached.Score != 77 || cached.Skills["technical"] != 90 || *cached.CulturalFit != 80 {
		t.Fatalf("analysis not cached: %+v", cached)
	}
	if cached.Embedding != nil {
		t.Fatalf("embeddings are not cached on disk: %v", cached.Embedding)
	}
}

func TestDirStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := NewDirStore(t.TempDir())

	_, err := store.GetCandidates(ctx, "missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.ProjectID != "missing" {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	if _, err := store.GetCandidates(ctx, "../etc"); err == nil {
		t.Fatal("expected invalid project id error")
	}

	if _, err := store.Put(ctx, "p", Candidate{ID: "a/b"}, ""); err == nil {
		t.Fatal("expected invalid candidate id error")
	}

	err = store.SaveAnalysis(ctx, "p", "ghost", analysis.CandidateAnalysis{})
	if !errors.As(err, &nf) || nf.CandidateID != "ghost" {
		t.Fatalf("expected NotFoundError for ghost, got %v", err)
	}
}
