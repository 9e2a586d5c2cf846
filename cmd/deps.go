package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/embedding"
	"github.com/spigell/hh-matcher/internal/embedding/gemini"
	"github.com/spigell/hh-matcher/internal/embedding/hashing"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/secrets"
	"github.com/spigell/hh-matcher/internal/store"
)

// deps holds what a command needs. Fields stay nil unless requested.
type deps struct {
	config   *Config
	logger   *zap.Logger
	store    *store.Store
	provider *embedding.Provider
}

// setup builds the logger and config, then opens the store and the embedding
// provider when asked. Failures are fatal.
func setup(ctx context.Context, withStore, withEmbedding bool) *deps {
	l, err := logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
		Name:  app,
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	d := &deps{config: config, logger: l}

	if withStore {
		dsn, err := resolveDSN(config.Database)
		if err != nil {
			l.Fatal("loading database dsn", zap.Error(err),
				zap.String("hint", "set database.dsn-file, HH_MATCHER_DATABASE_DSN or DATABASE_URL"))
		}
		d.store, err = store.Open(ctx, dsn, store.Options{MaxOpenConns: config.Database.MaxOpenConns}, l)
		if err != nil {
			l.Fatal("opening the store", zap.Error(err))
		}
	}

	if withEmbedding {
		d.provider, err = newProvider(config.Embedding, l)
		if err != nil {
			l.Fatal("creating the embedding provider", zap.Error(err))
		}
	}

	return d
}

func (d *deps) close() {
	if d.provider != nil {
		if err := d.provider.Close(); err != nil {
			d.logger.Warn("closing the embedding provider", zap.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("closing the store", zap.Error(err))
		}
	}
	_ = d.logger.Sync()
}

// modelName is the name embeddings are stored under for the configured provider.
func (d *deps) modelName() string {
	if d.provider != nil {
		return d.provider.ModelName()
	}
	return d.config.Embedding.Model
}

func resolveDSN(cfg *DatabaseConfig) (string, error) {
	return secrets.Load(secrets.Source{
		Name:  "database dsn",
		Value: cfg.DSN,
		File:  cfg.DSNFile,
		Env:   "DATABASE_URL",
	})
}

func newProvider(cfg *EmbeddingConfig, l *zap.Logger) (*embedding.Provider, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	model := strings.TrimSpace(cfg.Model)

	var loader embedding.Loader
	switch provider {
	case "", "hashing":
		provider = "hashing"
		model = hashing.ModelName(cfg.Dimension)
		loader = hashing.Loader(cfg.Dimension)
	case "gemini":
		if model == "" || hashing.IsModelName(model) {
			model = gemini.DefaultModel
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.gemini.api-key-file or GEMINI_API_KEY)", err)
		}
		loader = gemini.Loader(gemini.Config{
			APIKey:            apiKey,
			Model:             model,
			Dimension:         cfg.Dimension,
			MaxRetries:        cfg.Gemini.MaxRetries,
			RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
			MaxLogLength:      cfg.Gemini.MaxLogLength,
		}, logger.WithEmbedding(l, provider, model))
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	return embedding.New(embedding.Config{
		Provider:   provider,
		Model:      model,
		Dimension:  cfg.Dimension,
		Workers:    cfg.Workers,
		CacheSize:  cfg.CacheSize,
		LogPreview: cfg.Gemini.MaxLogLength,
	}, loader, l)
}

// redacted returns a copy of config that is safe to log.
func redacted(config *Config) *Config {
	c := *config
	db := *config.Database
	if db.DSN != "" {
		db.DSN = "<redacted>"
	}
	c.Database = &db

	emb := *config.Embedding
	g := *config.Embedding.Gemini
	if g.APIKey != "" {
		g.APIKey = "<redacted>"
	}
	emb.Gemini = &g
	c.Embedding = &emb
	return &c
}
