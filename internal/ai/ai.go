package ai

import (
	"context"
	"fmt"
	"strings"
)

// Provider names an external scoring backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderCohere    Provider = "cohere"
	ProviderJina      Provider = "jina"
	ProviderGemini    Provider = "gemini"
	ProviderSynthetic Provider = "synthetic"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// ParseProvider converts user input into a known provider.
func ParseProvider(value string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(value)))
	switch p {
	case ProviderOpenAI, ProviderCohere, ProviderJina, ProviderGemini, ProviderSynthetic:
		return p, nil
	default:
		return "", &InvalidProviderError{Value: value}
	}
}

// Config is the provider configuration for a single comparison run.
// It is never persisted and the key never leaves the process.
type Config struct {
	Provider    Provider `json:"provider"`
	APIKey      string   `json:"-"`
	Model       string   `json:"model"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"maxTokens"`
}

// Validate checks the numeric domains of the configuration.
func (c Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature must be within [0,1], got %v", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

// WithDefaults fills an unset model. Temperature and token budget are
// checked by Validate and never defaulted here.
func (c Config) WithDefaults(model string) Config {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = model
	}
	return c
}

func (c Config) String() string {
	key := "<unset>"
	if c.APIKey != "" {
		key = "<redacted>"
	}
	return fmt.Sprintf("provider=%s model=%s temperature=%.2f max_tokens=%d api_key=%s",
		c.Provider, c.Model, c.Temperature, c.MaxTokens, key)
}

// Candidate is the flat text record sent to providers.
type Candidate struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ResumeText    string `json:"resumeText"`
	CharacterText string `json:"characterText"`
}

// Entry is one provider-native per-candidate analysis, positionally aligned with the request batch.
// Nil Score means the provider omitted it.
type Entry struct {
	Score       *float64
	Skills      map[string]float64
	Personality map[string]float64
	CulturalFit *float64
	Summary     string
}

// NativeResult is the closed set of provider outputs.
type NativeResult interface {
	Source() Provider
	Entries() []Entry
	native()
}

// CompletionResult is produced by chat-completion providers.
type CompletionResult struct {
	Provider Provider
	Content  string
	Items    []Entry
}

// GenerationResult is produced by prompt-generation providers.
type GenerationResult struct {
	Provider Provider
	Text     string
	Items    []Entry
}

// EmbeddingResult carries one vector per candidate and the entries derived from them.
type EmbeddingResult struct {
	Provider Provider
	Model    string
	Vectors  [][]float64
	Items    []Entry
}

// SyntheticResult is produced by the deterministic offline scorer.
type SyntheticResult struct {
	Items []Entry
}

func (r *CompletionResult) Source() Provider { return r.Provider }
func (r *CompletionResult) Entries() []Entry { return r.Items }
func (r *CompletionResult) native()          {}

func (r *GenerationResult) Source() Provider { return r.Provider }
func (r *GenerationResult) Entries() []Entry { return r.Items }
func (r *GenerationResult) native()          {}

func (r *EmbeddingResult) Source() Provider { return r.Provider }
func (r *EmbeddingResult) Entries() []Entry { return r.Items }
func (r *EmbeddingResult) native()          {}

func (r *SyntheticResult) Source() Provider { return ProviderSynthetic }
func (r *SyntheticResult) Entries() []Entry { return r.Items }
func (r *SyntheticResult) native()          {}

// Analyzer performs exactly one batched provider call per invocation.
type Analyzer interface {
	Analyze(ctx context.Context, candidates []Candidate, cfg Config) (NativeResult, error)
}

// KeyOptional is implemented by analyzers that run without credentials.
type KeyOptional interface {
	RequiresKey() bool
}

// RequiresKey reports whether the analyzer needs an API key.
func RequiresKey(a Analyzer) bool {
	if k, ok := a.(KeyOptional); ok {
		return k.RequiresKey()
	}
	return true
}

// ModelDefaulter is implemented by analyzers that pick a model when none is configured.
type ModelDefaulter interface {
	DefaultModel() string
}

// ResolveModel returns the model a run with cfg will use.
func ResolveModel(a Analyzer, cfg Config) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	if d, ok := a.(ModelDefaulter); ok {
		return d.DefaultModel()
	}
	return ""
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
