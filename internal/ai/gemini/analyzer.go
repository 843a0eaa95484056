// Package gemini scores candidate batches with Google Gemini models.
package gemini

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/hirelytics/internal/ai"
	"github.com/spigell/hirelytics/internal/ai/rubric"
	"github.com/spigell/hirelytics/internal/logger"
	"github.com/spigell/hirelytics/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string, settings Settings) (string, error)
}

type generatorFactory func(ctx context.Context, apiKey, model string) (contentGenerator, error)

const defaultMaxLogLength = 200

type Analyzer struct {
	newGenerator generatorFactory
	logger       *zap.Logger
	maxLogLen    int
}

func NewAnalyzer(log *zap.Logger, maxLogLength int) *Analyzer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Analyzer{
		newGenerator: func(ctx context.Context, apiKey, model string) (contentGenerator, error) {
			return NewGenerator(ctx, apiKey, model)
		},
		logger:    logger.WithFields(log),
		maxLogLen: maxLogLength,
	}
}

func (a *Analyzer) DefaultModel() string { return DefaultModel }

func (a *Analyzer) Analyze(ctx context.Context, candidates []ai.Candidate, cfg ai.Config) (ai.NativeResult, error) {
	cfg = cfg.WithDefaults(DefaultModel)

	user, err := rubric.UserMessage(candidates)
	if err != nil {
		return nil, err
	}

	generator, err := a.newGenerator(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, &ai.ConfigError{Provider: ai.ProviderGemini, Err: err}
	}

	log := logger.WithCommonFields(a.logger, string(ai.ProviderGemini), cfg.Model)
	log.Debug("gemini generate content request",
		zap.Int("candidates", len(candidates)),
		zap.Int("prompt_length", utf8.RuneCountInString(user)),
		zap.String("prompt_preview", utils.TruncateForLog(user, a.maxLogLen)),
	)

	raw, err := generator.GenerateContent(ctx, user, Settings{
		SystemInstruction: rubric.SystemInstruction(),
		Temperature:       cfg.Temperature,
		MaxOutputTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, classify(err)
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	entries, err := rubric.ParseEntries(ai.ProviderGemini, raw, len(candidates))
	if err != nil {
		return nil, err
	}

	return &ai.GenerationResult{Provider: ai.ProviderGemini, Text: raw, Items: entries}, nil
}

// classify maps genai client errors onto the provider error taxonomy.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.HTTPError{Provider: ai.ProviderGemini, Status: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ai.HTTPError{Provider: ai.ProviderGemini, Status: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return &ai.TransportError{Provider: ai.ProviderGemini, Err: err}
}
