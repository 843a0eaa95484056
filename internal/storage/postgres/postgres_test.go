package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/hirelytics/internal/analysis"
	"github.com/spigell/hirelytics/internal/plan"
)

func TestUsageRowMapping(t *testing.T) {
	start := time.Date(2026, time.May, 4, 8, 0, 0, 0, time.UTC)

	fresh := plan.NewState(start)
	row := usageRow("alice", fresh)
	assert.Equal(t, "alice", row.UserID)
	assert.Equal(t, "hire0", row.Plan)
	assert.Nil(t, row.LastComparisonDate, "never compared maps to NULL")
	assert.Equal(t, fresh, row.state())

	used := plan.State{Plan: plan.TierPro, Usage: plan.Usage{
		ComparisonsThisWeek: 4,
		ComparisonsToday:    2,
		LastComparisonDate:  start.Add(26 * time.Hour),
		WeekStartDate:       start,
	}}
	row = usageRow("bob", used)
	require.NotNil(t, row.LastComparisonDate)
	assert.Equal(t, used, row.state())
}

func TestAnalysisRowMapping(t *testing.T) {
	fit := 55
	in := analysis.CandidateAnalysis{
		CandidateID: "c1",
		Name:        "Ada",
		Score:       91,
		Skills:      map[string]int{"technical": 95, "leadership": 40},
		Personality: map[string]int{"innovative": 88},
		CulturalFit: &fit,
		Summary:     "strong systems background",
		Embedding:   []float64{0.25, -0.5},
	}

	row, err := analysisRow("p1", "c1", in)
	require.NoError(t, err)
	assert.Equal(t, "p1", row.ProjectID)
	assert.Equal(t, 91, row.Score)

	out, err := row.analysis()
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = candidateAnalysis{ProjectID: "p1", CandidateID: "c2", Data: "{"}.analysis()
	assert.ErrorContains(t, err, "p1/c2")
}

func TestAnalysesByCandidate(t *testing.T) {
	var rows []candidateAnalysis
	for _, a := range []analysis.CandidateAnalysis{
		{CandidateID: "c1", Name: "Ada", Score: 91},
		{CandidateID: "c2", Name: "Bob", Score: 64},
	} {
		row, err := analysisRow("p1", a.CandidateID, a)
		require.NoError(t, err)
		rows = append(rows, row)
	}

	got, err := analysesByCandidate(rows)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 91, got["c1"].Score)
	assert.Equal(t, "Bob", got["c2"].Name)

	empty, err := analysesByCandidate(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	rows = append(rows, candidateAnalysis{ProjectID: "p1", CandidateID: "c3", Data: "not json"})
	_, err = analysesByCandidate(rows)
	assert.ErrorContains(t, err, "p1/c3")
}
