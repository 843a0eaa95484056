// Package plan implements subscription tiers and the per-user comparison quota ledger.
package plan

import (
	"fmt"
	"strings"
)

// Tier is a subscription plan.
type Tier string

const (
	TierFree Tier = "hire0"
	TierPlus Tier = "hire+"
	TierPro  Tier = "hire%"
)

// Limits bounds what a tier may do. All values are positive.
type Limits struct {
	CandidateLimit    int `json:"candidateLimit"`
	WeeklyComparisons int `json:"weeklyComparisons"`
	DailyComparisons  int `json:"dailyComparisons"`
}

var table = map[Tier]Limits{
	TierFree: {CandidateLimit: 5, WeeklyComparisons: 1, DailyComparisons: 1},
	TierPlus: {CandidateLimit: 10, WeeklyComparisons: 5, DailyComparisons: 1},
	TierPro:  {CandidateLimit: 20, WeeklyComparisons: 10, DailyComparisons: 2},
}

// Tiers lists every known tier from the smallest to the largest.
func Tiers() []Tier {
	return []Tier{TierFree, TierPlus, TierPro}
}

// ParseTier accepts a tier name case-insensitively.
func ParseTier(value string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := table[t]; !ok {
		return "", fmt.Errorf("unknown plan %q (expected one of hire0, hire+, hire%%)", value)
	}
	return t, nil
}

// LimitsFor returns the limits of a tier. Unknown tiers get the free limits.
func LimitsFor(t Tier) Limits {
	if l, ok := table[t]; ok {
		return l
	}
	return table[TierFree]
}
