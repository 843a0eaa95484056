// Package openai scores candidate batches through an OpenAI style chat-completion endpoint.
package openai

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
	DefaultURL   = "https://api.openai.com/v1/chat/completions"
	DefaultModel = "gpt-4"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type Analyzer struct {
	url    string
	client *transport.Client
	logger *zap.Logger
}

// New returns an analyzer posting to url, or DefaultURL when empty.
func New(url string, log *zap.Logger) *Analyzer {
	if url = strings.TrimSpace(url); url == "" {
		url = DefaultURL
	}
	log = logger.WithFields(log)
	return &Analyzer{
		url:    url,
		client: transport.New(ai.ProviderOpenAI, log),
		logger: log,
	}
}

func (a *Analyzer) DefaultModel() string { return DefaultModel }

func (a *Analyzer) Analyze(ctx context.Context, candidates []ai.Candidate, cfg ai.Config) (ai.NativeResult, error) {
	cfg = cfg.WithDefaults(DefaultModel)

	user, err := rubric.UserMessage(candidates)
	if err != nil {
		return nil, err
	}

	req := request{
		Model: cfg.Model,
		Messages: []message{
			{Role: "system", Content: rubric.SystemInstruction()},
			{Role: "user", Content: user},
		},
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	log := logger.WithCommonFields(a.logger, string(ai.ProviderOpenAI), cfg.Model)
	log.Debug("chat completion request",
		zap.Int("candidates", len(candidates)),
		zap.Int("prompt_length", utf8.RuneCountInString(user)),
		zap.String("prompt_preview", utils.TruncateForLog(user, a.client.MaxLogLen)),
	)

	var resp response
	if err := a.client.PostJSON(ctx, a.url, cfg.APIKey, req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, &ai.ParseError{Provider: ai.ProviderOpenAI, Reason: "no choices returned"}
	}

	content := resp.Choices[0].Message.Content
	entries, err := rubric.ParseEntries(ai.ProviderOpenAI, content, len(candidates))
	if err != nil {
		log.Debug("unparseable completion", zap.String("content_preview", utils.TruncateForLog(content, a.client.MaxLogLen)))
		return nil, err
	}

	return &ai.CompletionResult{Provider: ai.ProviderOpenAI, Content: content, Items: entries}, nil
}
