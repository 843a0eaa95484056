// Package ranking orders normalized analyses and produces presentation insights.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/hirelytics/internal/ai"
	"github.com/spigell/hirelytics/internal/analysis"
)

// Entry is a ranked analysis. Rank starts at 1 and equal scores never share a rank.
type Entry struct {
	Rank int `json:"rank"`
	analysis.CandidateAnalysis
}

// Rank sorts by score descending. Equal scores keep their input (selection) order.
// The input slice is not modified.
func Rank(analyses []analysis.CandidateAnalysis) []Entry {
	entries := make([]Entry, len(analyses))
	for i, a := range analyses {
		entries[i] = Entry{CandidateAnalysis: a}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

const advisory = "Scores are decision support; review the top candidates' materials before shortlisting"

// Insights returns static messages describing a finished run. The result is never empty.
func Insights(provider ai.Provider, entries []Entry, skipped []string) []string {
	insights := []string{
		fmt.Sprintf("Analysis completed using %s", strings.ToUpper(string(provider))),
		fmt.Sprintf("%d candidates ranked by overall compatibility score", len(entries)),
	}

	if len(entries) > 0 {
		top := entries[0]
		insights = append(insights, fmt.Sprintf("Top candidate: %s (%d)", displayName(top), top.Score))
	}

	if provider == ai.ProviderJina {
		insights = append(insights, "Embedding-derived scores are approximate and less precise than generative analysis")
	}

	if len(skipped) > 0 {
		insights = append(insights, fmt.Sprintf("Skipped %d candidate(s) with unreadable resumes: %s",
			len(skipped), strings.Join(skipped, ", ")))
	}

	return append(insights, advisory)
}

func displayName(e Entry) string {
	if strings.TrimSpace(e.Name) != "" {
		return e.Name
	}
	return e.CandidateID
}
