package cmd

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hirelytics/internal/ai"
)

const (
	app       = "hirelytics"
	envPrefix = "HIRELYTICS"
)

type Config struct {
	AI          *AIConfig     `mapstructure:"ai"`
	Plan        *PlanConfig   `mapstructure:"plan"`
	Server      *ServerConfig `mapstructure:"server"`
	ProjectsDir string        `mapstructure:"projects-dir"`
	// ExtractConcurrency bounds parallel resume extraction.
	ExtractConcurrency int `mapstructure:"extract-concurrency"`
}

type AIConfig struct {
	Provider       string  `mapstructure:"provider"`
	Model          string  `mapstructure:"model"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max-tokens"`
	AllowSynthetic bool    `mapstructure:"allow-synthetic"`
	MaxLogLength   int     `mapstructure:"max-log-length"`

	OpenAI *ProviderConfig `mapstructure:"openai"`
	Cohere *ProviderConfig `mapstructure:"cohere"`
	Jina   *ProviderConfig `mapstructure:"jina"`
	Gemini *ProviderConfig `mapstructure:"gemini"`
}

type ProviderConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url"`
}

type PlanConfig struct {
	// Store is one of file, postgres or memory.
	Store    string `mapstructure:"store"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	User     string `mapstructure:"user"`
	Timezone string `mapstructure:"timezone"`
}

type ServerConfig struct {
	Listen      string `mapstructure:"listen"`
	DefaultUser string `mapstructure:"default-user"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hirelytics ranks project candidates with a pluggable AI provider under plan quotas",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hirelytics.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("user", "u", "", "user whose plan and quota are used")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("plan.user", rootCmd.PersistentFlags().Lookup("user"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.temperature", ai.DefaultTemperature)
	viper.SetDefault("ai.max-tokens", ai.DefaultMaxTokens)
	viper.SetDefault("ai.max-log-length", 200)
	viper.SetDefault("plan.store", "file")
	viper.SetDefault("plan.path", ".hirelytics/plans")
	viper.SetDefault("plan.user", "default")
	viper.SetDefault("projects-dir", "projects")
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.default-user", "default")
	viper.SetDefault("extract-concurrency", 4)
}

func initConfig() {
	// .env is optional; it only feeds *_API_KEY variables and HIRELYTICS_ overrides.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine, everything has a default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.Plan == nil {
		config.Plan = &PlanConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}
