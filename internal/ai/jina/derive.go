package jina

import (
	"math"

	"github.com/spigell/hirelytics/internal/ai"
)

// categories fixes the order in which vector components are assigned to scores.
var categories = []string{
	"score",
	"technical", "communication", "leadership", "creativity",
	"analytical", "collaborative", "innovative",
}

// spread scales strided component means before squashing them into (0,1).
// Embedding components are small, so means cluster around zero.
const spread = 40.0

// Derive maps an embedding vector onto the rubric categories.
// Category k takes the mean of components k, k+8, k+16, ... and passes it through a logistic curve,
// so every value lands in [0,100] and the same vector always yields the same scores.
func Derive(vec []float64) ai.Entry {
	values := make([]float64, len(categories))
	for k := range categories {
		var sum float64
		var n int
		for i := k; i < len(vec); i += len(categories) {
			if math.IsNaN(vec[i]) || math.IsInf(vec[i], 0) {
				continue
			}
			sum += vec[i]
			n++
		}
		mean := 0.0
		if n > 0 {
			mean = sum / float64(n)
		}
		values[k] = math.Round(100 / (1 + math.Exp(-mean*spread)))
	}

	return ai.Entry{
		Score: ai.Float(values[0]),
		Skills: map[string]float64{
			"technical":     values[1],
			"communication": values[2],
			"leadership":    values[3],
			"creativity":    values[4],
		},
		Personality: map[string]float64{
			"analytical":    values[5],
			"collaborative": values[6],
			"innovative":    values[7],
		},
	}
}
