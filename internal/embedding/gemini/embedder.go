package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/spigell/hh-matcher/internal/embedding"
	"github.com/spigell/hh-matcher/internal/utils"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-embedding-001"

const (
	defaultTaskType   = "SEMANTIC_SIMILARITY"
	defaultMaxRetries = 3
	defaultLogLength  = 200

	// maxBatch is the largest number of contents the API accepts in one call.
	maxBatch = 100
)

// embedContenter is the part of genai.Models used here.
type embedContenter interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Config configures the embedder.
type Config struct {
	APIKey            string
	Model             string
	Dimension         int
	TaskType          string
	MaxRetries        int
	RequestsPerSecond float64
	MaxLogLength      int
}

// Embedder implements embedding.Model on top of the Gemini embedding API.
type Embedder struct {
	models       embedContenter
	model        string
	dimension    int
	taskType     string
	maxRetries   int
	maxLogLength int
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker
	logger       *zap.Logger
	newBackOff   func() backoff.BackOff
}

// NewEmbedder creates an embedder configured for the Gemini API backend.
func NewEmbedder(ctx context.Context, cfg Config, logger *zap.Logger) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("gemini embedding dimension must be positive, got %d", cfg.Dimension)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, cfg, logger), nil
}

// Loader adapts NewEmbedder to embedding.Loader.
func Loader(cfg Config, logger *zap.Logger) embedding.Loader {
	return func(ctx context.Context) (embedding.Model, error) {
		return NewEmbedder(ctx, cfg, logger)
	}
}

func newEmbedder(models embedContenter, cfg Config, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	taskType := strings.TrimSpace(cfg.TaskType)
	if taskType == "" {
		taskType = defaultTaskType
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	maxLogLength := cfg.MaxLogLength
	if maxLogLength <= 0 {
		maxLogLength = defaultLogLength
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	e := &Embedder{
		models:       models,
		model:        model,
		dimension:    cfg.Dimension,
		taskType:     taskType,
		maxRetries:   maxRetries,
		maxLogLength: maxLogLength,
		limiter:      rate.NewLimiter(limit, 1),
		logger:       logger.Named("gemini"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return b
		},
	}

	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gemini-embed",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return e
}

func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}

func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) Close() error { return nil }

// Embed sends texts in batches of at most maxBatch and returns one vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e == nil || e.models == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dim := int32(e.dimension)
	config := &genai.EmbedContentConfig{
		TaskType:             e.taskType,
		OutputDimensionality: &dim,
	}

	attempt := 0
	var resp *genai.EmbedContentResponse
	operation := func() error {
		attempt++
		if err := e.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		result, err := e.breaker.Execute(func() (interface{}, error) {
			return e.models.EmbedContent(ctx, e.model, contents, config)
		})
		if err != nil {
			if !isRetryable(err) {
				return backoff.Permanent(err)
			}
			e.logger.Warn("embed request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", e.maxRetries),
				zap.String("first_text", utils.Preview(texts[0], e.maxLogLength)),
				zap.Error(err),
			)
			return err
		}

		resp = result.(*genai.EmbedContentResponse)
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), uint64(e.maxRetries-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d texts", embedding.ErrMalformedVector, got, len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("%w: gemini returned an empty embedding at %d", embedding.ErrMalformedVector, i)
		}
		out[i] = append([]float32(nil), emb.Values...)
	}

	e.logger.Debug("embedded batch",
		zap.String("model", e.model),
		zap.Int("count", len(texts)),
	)

	return out, nil
}

// isRetryable reports whether err is a transient API failure worth another attempt.
func isRetryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
