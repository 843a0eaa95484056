package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hirelytics/internal/ai"
	"github.com/spigell/hirelytics/internal/ai/cohere"
	"github.com/spigell/hirelytics/internal/ai/gemini"
	"github.com/spigell/hirelytics/internal/ai/jina"
	"github.com/spigell/hirelytics/internal/ai/openai"
	"github.com/spigell/hirelytics/internal/ai/synthetic"
	"github.com/spigell/hirelytics/internal/candidates"
	"github.com/spigell/hirelytics/internal/comparison"
	"github.com/spigell/hirelytics/internal/logger"
	"github.com/spigell/hirelytics/internal/plan"
	"github.com/spigell/hirelytics/internal/secrets"
	"github.com/spigell/hirelytics/internal/storage/postgres"
)

// services is everything a command needs, built from the config.
type services struct {
	config   *Config
	logger   *zap.Logger
	book     *plan.Book
	projects *candidates.DirStore
	// source is projects with cached analyses from the configured store attached.
	source   candidates.Source
	orch     *comparison.Orchestrator
	defaults ai.Config
	closers  []func() error
}

func (s *services) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			s.logger.Warn("closing resources", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}

// mustSetup builds services or exits, the way every command starts.
func mustSetup(ctx context.Context, allowSynthetic bool) *services {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	s, err := setup(ctx, config, logger, allowSynthetic)
	if err != nil {
		logger.Fatal("initializing", zap.Error(err))
	}
	return s
}

func setup(ctx context.Context, config *Config, log *zap.Logger, allowSynthetic bool) (*services, error) {
	s := &services{config: config, logger: log}

	loc := time.Local
	if tz := strings.TrimSpace(config.Plan.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("plan timezone: %w", err)
		}
		loc = l
	}

	s.projects = candidates.NewDirStore(config.ProjectsDir)
	s.source = s.projects
	var cache candidates.AnalysisCache = s.projects

	var store plan.Store
	switch strings.ToLower(config.Plan.Store) {
	case "", "file":
		fs, err := plan.NewFileStore(config.Plan.Path)
		if err != nil {
			return nil, err
		}
		store = fs
	case "postgres":
		if config.Plan.DSN == "" {
			return nil, fmt.Errorf("plan.dsn is required for the postgres store")
		}
		pg, err := postgres.Open(config.Plan.DSN, log.Named("postgres"))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pg.Close)
		store = pg
		cache = pg
		s.source = candidates.WithAnalyses(s.projects, pg)
	case "memory":
		store = plan.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown plan store %q (expected file, postgres or memory)", config.Plan.Store)
	}

	s.book = plan.NewBook(store, log.Named("plan"), plan.WithLocation(loc))

	registry := newRegistry(config.AI, log, allowSynthetic || config.AI.AllowSynthetic)

	orch, err := comparison.New(comparison.Deps{
		Ledgers:     s.book,
		Candidates:  s.source,
		Cache:       cache,
		Extractor:   candidates.NewDocumentExtractor(log.Named("extract")),
		Registry:    registry,
		Credentials: newKeyring(config.AI),
		Concurrency: config.ExtractConcurrency,
		Logger:      log.Named("comparison"),
	})
	if err != nil {
		return nil, err
	}
	s.orch = orch

	s.defaults = ai.Config{
		Provider:    ai.Provider(strings.ToLower(config.AI.Provider)),
		Model:       config.AI.Model,
		Temperature: config.AI.Temperature,
		MaxTokens:   config.AI.MaxTokens,
	}

	log.Debug("services ready",
		zap.String("plan_store", config.Plan.Store),
		zap.String("projects_dir", config.ProjectsDir),
		zap.Any("providers", registry.Providers()),
		zap.Stringer("ai_defaults", s.defaults),
	)

	return s, nil
}

func providerConfig(pc *ProviderConfig) ProviderConfig {
	if pc == nil {
		return ProviderConfig{}
	}
	return *pc
}

func newRegistry(cfg *AIConfig, log *zap.Logger, allowSynthetic bool) *ai.Registry {
	r := ai.NewRegistry()
	r.Register(ai.ProviderOpenAI, openai.New(providerConfig(cfg.OpenAI).BaseURL, log))
	r.Register(ai.ProviderCohere, cohere.New(providerConfig(cfg.Cohere).BaseURL, log))
	r.Register(ai.ProviderJina, jina.New(providerConfig(cfg.Jina).BaseURL, log))
	r.Register(ai.ProviderGemini, gemini.NewAnalyzer(log, cfg.MaxLogLength))
	if allowSynthetic {
		r.Register(ai.ProviderSynthetic, synthetic.New())
	}
	return r
}

// newKeyring registers one secret source per provider. Config values win
// over <PROVIDER>_API_KEY and <PROVIDER>_API_KEY_FILE environment variables.
func newKeyring(cfg *AIConfig) *secrets.Keyring {
	k := secrets.NewKeyring()
	for p, pc := range map[ai.Provider]*ProviderConfig{
		ai.ProviderOpenAI: cfg.OpenAI,
		ai.ProviderCohere: cfg.Cohere,
		ai.ProviderJina:   cfg.Jina,
		ai.ProviderGemini: cfg.Gemini,
	} {
		c := providerConfig(pc)
		env := strings.ToUpper(string(p)) + "_API_KEY"
		src := secrets.Source{Value: c.APIKey, File: c.APIKeyFile}
		if src.Value == "" {
			src.Value = os.Getenv(env)
		}
		if src.File == "" {
			src.File = os.Getenv(env + "_FILE")
		}
		k.Add(string(p), src)
	}
	return k
}
