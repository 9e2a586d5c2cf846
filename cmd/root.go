package cmd

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "hh-matcher"
	envPrefix = "HH_MATCHER"
)

type Config struct {
	Database  *DatabaseConfig  `mapstructure:"database"`
	Embedding *EmbeddingConfig `mapstructure:"embedding"`
	Match     *MatchConfig     `mapstructure:"match"`
	// ExtraSkills extends the built-in skill vocabulary.
	ExtraSkills []string `mapstructure:"extra-skills"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	DSNFile      string `mapstructure:"dsn-file"`
	MaxOpenConns int    `mapstructure:"max-open-conns"`
}

type EmbeddingConfig struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	Workers   int           `mapstructure:"workers"`
	CacheSize int           `mapstructure:"cache-size"`
	Gemini    *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey            string  `mapstructure:"api-key"`
	APIKeyFile        string  `mapstructure:"api-key-file"`
	MaxRetries        int     `mapstructure:"max-retries"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	MaxLogLength      int     `mapstructure:"max-log-length"`
}

type MatchConfig struct {
	TopK          int           `mapstructure:"top-k"`
	MinSimilarity float64       `mapstructure:"min-similarity"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-matcher ranks candidates against job postings by semantic similarity and skill overlap",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults also registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.dsn-file", "")
	v.SetDefault("database.max-open-conns", 10)

	v.SetDefault("embedding.provider", "hashing")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.workers", 1)
	v.SetDefault("embedding.cache-size", 1024)
	v.SetDefault("embedding.gemini.api-key", "")
	v.SetDefault("embedding.gemini.api-key-file", "")
	v.SetDefault("embedding.gemini.max-retries", 3)
	v.SetDefault("embedding.gemini.requests-per-second", 5)
	v.SetDefault("embedding.gemini.max-log-length", 200)

	v.SetDefault("match.top-k", 10)
	v.SetDefault("match.min-similarity", 0.5)
	v.SetDefault("match.timeout", 30*time.Second)

	v.SetDefault("extra-skills", []string{})
}

func initConfig() {
	// version does not need any configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %s", err)
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

	// A missing default config file is fine, a broken one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}
	if config.Database == nil {
		config.Database = &DatabaseConfig{}
	}
	if config.Embedding == nil {
		config.Embedding = &EmbeddingConfig{}
	}
	if config.Embedding.Gemini == nil {
		config.Embedding.Gemini = &GeminiConfig{}
	}
	if config.Match == nil {
		config.Match = &MatchConfig{}
	}
	return config, nil
}
