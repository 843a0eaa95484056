// Package jina embeds candidate texts through a Jina style embeddings endpoint.
//
// Embedding providers do not score anything. Scores are derived from the vectors with a fixed
// deterministic policy (see Derive): they are structurally valid but carry much less signal than
// the rubric based text generation providers and must not be read as an evaluation of the resume.
package jina

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hirelytics/internal/ai"
	"github.com/spigell/hirelytics/internal/ai/transport"
	"github.com/spigell/hirelytics/internal/logger"
)

const (
	DefaultURL   = "https://api.jina.ai/v1/embeddings"
	DefaultModel = "jina-embeddings-v2-base-en"
)

type request struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type response struct {
	Data []struct {
		Index     *int      `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

type Analyzer struct {
	url    string
	client *transport.Client
	logger *zap.Logger
}

func New(url string, log *zap.Logger) *Analyzer {
	if url = strings.TrimSpace(url); url == "" {
		url = DefaultURL
	}
	log = logger.WithFields(log)
	return &Analyzer{
		url:    url,
		client: transport.New(ai.ProviderJina, log),
		logger: log,
	}
}

func (a *Analyzer) DefaultModel() string { return DefaultModel }

func (a *Analyzer) Analyze(ctx context.Context, candidates []ai.Candidate, cfg ai.Config) (ai.NativeResult, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("candidate batch must not be empty")
	}
	cfg = cfg.WithDefaults(DefaultModel)

	inputs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		inputs = append(inputs, strings.TrimSpace(c.ResumeText+" "+c.CharacterText))
	}

	log := logger.WithCommonFields(a.logger, string(ai.ProviderJina), cfg.Model)
	log.Debug("embeddings request", zap.Int("inputs", len(inputs)))

	var resp response
	if err := a.client.PostJSON(ctx, a.url, cfg.APIKey, request{Input: inputs, Model: cfg.Model}, &resp); err != nil {
		return nil, err
	}

	vectors, err := orderedVectors(resp, len(candidates))
	if err != nil {
		return nil, &ai.ParseError{Provider: ai.ProviderJina, Reason: err.Error()}
	}

	entries := make([]ai.Entry, 0, len(vectors))
	for _, v := range vectors {
		entries = append(entries, Derive(v))
	}

	log.Debug("derived placeholder scores from embeddings", zap.Int("dimensions", len(vectors[0])))

	return &ai.EmbeddingResult{Provider: ai.ProviderJina, Model: cfg.Model, Vectors: vectors, Items: entries}, nil
}

// orderedVectors aligns embeddings with the input order, honouring explicit indexes when present.
func orderedVectors(resp response, expected int) ([][]float64, error) {
	if len(resp.Data) != expected {
		return nil, fmt.Errorf("expected %d embeddings, got %d", expected, len(resp.Data))
	}

	data := resp.Data
	indexed := true
	for _, d := range data {
		if d.Index == nil {
			indexed = false
			break
		}
	}
	if indexed {
		sort.SliceStable(data, func(i, j int) bool { return *data[i].Index < *data[j].Index })
		for i, d := range data {
			if *d.Index != i {
				return nil, fmt.Errorf("embedding indexes are not a permutation of the inputs")
			}
		}
	}

	out := make([][]float64, 0, len(data))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", i)
		}
		out = append(out, d.Embedding)
	}
	return out, nil
}
