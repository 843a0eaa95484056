// Package cohere scores candidate batches through a Cohere style text generation endpoint.
package cohere

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/hirelytics/internal/ai"
	"github.com/spigell/hirelytics/internal/ai/rubric"
	"github.com/spigell/hirelytics/internal/ai/transport"
	"github.com/spigell/hirelytics/internal/logger"
	"github.com/spigell/hirelytics/internal/utils"
)

const (
	DefaultURL   = "https://api.cohere.ai/v1/generate"
	DefaultModel = "command"
)

type request struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type response struct {
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
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
		client: transport.New(ai.ProviderCohere, log),
		logger: log,
	}
}

func (a *Analyzer) DefaultModel() string { return DefaultModel }

func (a *Analyzer) Analyze(ctx context.Context, candidates []ai.Candidate, cfg ai.Config) (ai.NativeResult, error) {
	cfg = cfg.WithDefaults(DefaultModel)

	prompt, err := rubric.Prompt(candidates)
	if err != nil {
		return nil, err
	}

	log := logger.WithCommonFields(a.logger, string(ai.ProviderCohere), cfg.Model)
	log.Debug("generate request",
		zap.Int("candidates", len(candidates)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
	)

	var resp response
	err = a.client.PostJSON(ctx, a.url, cfg.APIKey, request{
		Model:       cfg.Model,
		Prompt:      prompt,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Generations) == 0 {
		return nil, &ai.ParseError{Provider: ai.ProviderCohere, Reason: "no generations returned"}
	}

	text := resp.Generations[0].Text
	entries, err := rubric.ParseEntries(ai.ProviderCohere, text, len(candidates))
	if err != nil {
		log.Debug("unparseable generation", zap.String("text_preview", utils.TruncateForLog(text, a.client.MaxLogLen)))
		return nil, err
	}

	return &ai.GenerationResult{Provider: ai.ProviderCohere, Text: text, Items: entries}, nil
}
