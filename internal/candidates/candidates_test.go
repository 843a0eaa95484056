package candidates

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hirelytics/internal/analysis"
)

func TestDocumentExtractor(t *testing.T) {
	t.Parallel()

	ex := NewDocumentExtractor(zap.NewNop())

	cases := []struct {
		name    string
		data    []byte
		want    string
		wantErr error
		anyErr  bool
	}{
		{name: "plain text", data: []byte("  Go developer, 7 years\n"), want: "Go developer, 7 years"},
		{name: "bom", data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("Résumé")...), want: "Résumé"},
		{name: "whitespace only", data: []byte(" \n\t "), wantErr: ErrEmptyText},
		{name: "broken pdf", data: []byte("%PDF-1.4\nthis is not a real document"), anyErr: true},
		{name: "image", data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), anyErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ex.ExtractText(context.Background(), tc.data)
			switch {
			case tc.wantErr != nil:
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
			case tc.anyErr:
				if err == nil {
					t.Fatalf("expected an error, got text %q", got)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tc.want {
					t.Fatalf("got %q, want %q", got, tc.want)
				}
			}
		})
	}
}

func TestDecodeTextReplacesInvalidBytes(t *testing.T) {
	got := decodeText([]byte{'o', 'k', 0xff, '!'})
	if got != "ok�!" {
		t.Fatalf("unexpected decoding %q", got)
	}
}

func TestNormalizeDropsFailedExtractions(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	ex := ExtractorFunc(func(_ context.Context, data []byte) (string, error) {
		switch string(data) {
		case "broken":
			return "", errors.New("corrupt pdf")
		case "slow":
			time.Sleep(20 * time.Millisecond)
		}
		return "text:" + string(data), nil
	})

	in := []Candidate{
		{ID: "a", Name: "Ada", Resume: []byte("slow"), Character: []byte(" calm ")},
		{ID: "b", Name: "Bob", Resume: []byte("broken")},
		{ID: "c", Name: "Cy", Resume: []byte("fast")},
	}

	out, report, err := Normalizer{Extractor: ex, Concurrency: 3, Logger: zap.New(core)}.Normalize(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "c" {
		t.Fatalf("unexpected survivors: %+v", out)
	}
	if out[0].ResumeText != "text:slow" || out[0].CharacterText != "calm" {
		t.Fatalf("unexpected record: %+v", out[0])
	}
	if report.Initial != 3 || report.Dropped != 1 || report.Left != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].CandidateID != "b" {
		t.Fatalf("failure not reported: %+v", report.Failures)
	}
	if got := report.Skipped(); len(got) != 1 || got[0] != "Bob" {
		t.Fatalf("unexpected skipped list: %v", got)
	}
	if logs.FilterMessage("skipping candidate with unreadable resume").Len() != 1 {
		t.Fatalf("expected a warning for the skipped candidate, got %v", logs.All())
	}
}

func TestNormalizeWithoutResume(t *testing.T) {
	called := false
	ex := ExtractorFunc(func(context.Context, []byte) (string, error) {
		called = true
		return "", errors.New("should not be called")
	})

	out, report, err := Normalizer{Extractor: ex}.Normalize(context.Background(), []Candidate{{ID: "x", Character: []byte("notes")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatal("extractor called for a candidate without resume")
	}
	if len(out) != 1 || out[0].ResumeText != "" || out[0].CharacterText != "notes" || report.Dropped != 0 {
		t.Fatalf("unexpected result %+v %+v", out, report)
	}
}

func TestNormalizeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := ExtractorFunc(func(ctx context.Context, _ []byte) (string, error) {
		return "", ctx.Err()
	})

	_, _, err := Normalizer{Extractor: ex}.Normalize(ctx, []Candidate{{ID: "a", Resume: []byte("x")}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSelectKeepsRequestedOrder(t *testing.T) {
	all := []Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	got, err := Select(all, "p1", []string{"c", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].ID != "c" || got[1].ID != "a" {
		t.Fatalf("unexpected order: %+v", got)
	}

	_, err = Select(all, "p1", []string{"a", "zz"})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.CandidateID != "zz" {
		t.Fatalf("expected NotFoundError for zz, got %v", err)
	}
}

type staticSource []Candidate

func (s staticSource) GetCandidates(context.Context, string) ([]Candidate, error) {
	return s, nil
}

type cachedAnalyses struct {
	byProject map[string]map[string]analysis.CandidateAnalysis
	err       error
}

func (c cachedAnalyses) LoadAnalyses(_ context.Context, projectID string) (map[string]analysis.CandidateAnalysis, error) {
	return c.byProject[projectID], c.err
}

func TestWithAnalysesAttachesCachedResults(t *testing.T) {
	stale := &analysis.CandidateAnalysis{CandidateID: "a", Score: 10}
	src := staticSource{{ID: "a", Analyzed: stale}, {ID: "b"}, {ID: "c"}}
	cache := cachedAnalyses{byProject: map[string]map[string]analysis.CandidateAnalysis{
		"p1": {
			"a": {CandidateID: "a", Score: 77},
			"c": {CandidateID: "c", Score: 42},
		},
	}}

	got, err := WithAnalyses(src, cache).GetCandidates(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		id    string
		score int
	}{
		{id: "a", score: 77},
		{id: "b", score: -1},
		{id: "c", score: 42},
	}
	for i, tt := range tests {
		c := got[i]
		if c.ID != tt.id {
			t.Fatalf("position %d: expected %s, got %s", i, tt.id, c.ID)
		}
		if tt.score < 0 {
			if c.Analyzed != nil {
				t.Fatalf("%s: expected no analysis, got %+v", c.ID, c.Analyzed)
			}
			continue
		}
		if c.Analyzed == nil || c.Analyzed.Score != tt.score {
			t.Fatalf("%s: expected score %d, got %+v", c.ID, tt.score, c.Analyzed)
		}
	}

	if src[0].Analyzed != stale {
		t.Fatalf("source slice was modified")
	}
}

func TestWithAnalysesLoadError(t *testing.T) {
	cache := cachedAnalyses{err: errors.New("connection refused")}

	_, err := WithAnalyses(staticSource{{ID: "a"}}, cache).GetCandidates(context.Background(), "p1")
	if err == nil || !errors.Is(err, cache.err) {
		t.Fatalf("expected wrapped load error, got %v", err)
	}
}
