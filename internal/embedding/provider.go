// Package embedding turns text into fixed-length vectors through a pluggable model.
//
// A Provider loads its models lazily on the first request and then serves every
// request through a small pool of workers, each holding its own model instance.
// Results are cached by text.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/utils"
)

const defaultLogPreview = 80

var (
	// ErrMalformedVector is returned when a model yields a vector of the wrong length or with non-finite values.
	ErrMalformedVector = errors.New("malformed embedding vector")
	// ErrClosed is returned by requests made after Close.
	ErrClosed = errors.New("embedding provider is closed")
)

// Model is a loaded embedding model. Implementations need not be safe for
// concurrent use; the provider gives each worker its own instance.
type Model interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Close() error
}

// Loader loads one model instance. It is called once per worker on first use.
type Loader func(ctx context.Context) (Model, error)

// Config describes the provider. Dimension is required.
type Config struct {
	Provider   string
	Model      string
	Dimension  int
	Workers    int
	CacheSize  int
	LogPreview int
}

type task struct {
	ctx    context.Context
	texts  []string
	result chan<- taskResult
}

type taskResult struct {
	vectors [][]float32
	err     error
}

// Provider is safe for concurrent use.
type Provider struct {
	cfg    Config
	load   Loader
	logger *zap.Logger
	cache  *lru.Cache[string, []float32]

	started atomic.Bool
	startMu sync.Mutex

	// sendMu guards tasks against being closed while a request is queued.
	sendMu sync.RWMutex
	closed bool
	tasks  chan task
	models []Model
	wg     sync.WaitGroup
}

// New validates cfg and returns a provider. No model is loaded until the first request.
func New(cfg Config, load Loader, log *zap.Logger) (*Provider, error) {
	if load == nil {
		return nil, errors.New("embedding loader is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.LogPreview <= 0 {
		cfg.LogPreview = defaultLogPreview
	}

	p := &Provider{
		cfg:    cfg,
		load:   load,
		logger: logger.WithEmbedding(log, cfg.Provider, cfg.Model),
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []float32](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
		p.cache = cache
	}

	return p, nil
}

// Dimension is the length of every vector the provider returns.
func (p *Provider) Dimension() int {
	return p.cfg.Dimension
}

// ModelName identifies the model the vectors come from.
func (p *Provider) ModelName() string {
	return p.cfg.Model
}

// Embed returns the vector for one text. Empty or whitespace-only text yields a
// zero vector without touching the model.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per input text, in input order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	pending := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			p.logger.Warn("empty text, returning zero vector", zap.Int("index", i))
			out[i] = make([]float32, p.cfg.Dimension)
			continue
		}
		if vector, ok := p.cached(text); ok {
			out[i] = vector
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		return out, nil
	}

	batch := make([]string, len(pending))
	for j, i := range pending {
		batch[j] = texts[i]
	}

	p.logger.Debug("embedding texts",
		zap.Int("count", len(batch)),
		zap.String("first", utils.Preview(batch[0], p.cfg.LogPreview)),
	)

	vectors, err := p.submit(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("%w: model returned %d vectors for %d texts", ErrMalformedVector, len(vectors), len(batch))
	}

	for j, i := range pending {
		if err := p.validate(vectors[j]); err != nil {
			return nil, err
		}
		vector := append([]float32(nil), vectors[j]...)
		out[i] = vector
		if p.cache != nil {
			p.cache.Add(texts[i], append([]float32(nil), vector...))
		}
	}

	return out, nil
}

// Close stops the workers and releases the loaded models. Later requests fail with ErrClosed.
func (p *Provider) Close() error {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	p.sendMu.Lock()
	if p.closed {
		p.sendMu.Unlock()
		return nil
	}
	p.closed = true
	if p.tasks != nil {
		close(p.tasks)
	}
	p.sendMu.Unlock()

	p.wg.Wait()

	var errs []error
	for _, model := range p.models {
		if err := model.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.models = nil

	return errors.Join(errs...)
}

func (p *Provider) cached(text string) ([]float32, bool) {
	if p.cache == nil {
		return nil, false
	}
	vector, ok := p.cache.Get(text)
	if !ok {
		return nil, false
	}
	return append([]float32(nil), vector...), true
}

func (p *Provider) validate(vector []float32) error {
	if len(vector) != p.cfg.Dimension {
		return fmt.Errorf("%w: expected %d values, got %d", ErrMalformedVector, p.cfg.Dimension, len(vector))
	}
	for i, v := range vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: non-finite value at %d", ErrMalformedVector, i)
		}
	}
	return nil
}

// start loads the models and launches the workers exactly once. A failed load
// leaves the provider unstarted so a later request can try again.
func (p *Provider) start(ctx context.Context) error {
	if p.started.Load() {
		return nil
	}

	p.startMu.Lock()
	defer p.startMu.Unlock()

	if p.started.Load() {
		return nil
	}

	p.sendMu.RLock()
	closed := p.closed
	p.sendMu.RUnlock()
	if closed {
		return ErrClosed
	}

	models := make([]Model, 0, p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		model, err := p.load(ctx)
		if err == nil && model.Dimension() != p.cfg.Dimension {
			_ = model.Close()
			err = fmt.Errorf("model dimension %d does not match configured %d", model.Dimension(), p.cfg.Dimension)
		}
		if err != nil {
			for _, loaded := range models {
				_ = loaded.Close()
			}
			return fmt.Errorf("load embedding model: %w", err)
		}
		models = append(models, model)
	}

	p.tasks = make(chan task)
	p.models = models
	for _, model := range models {
		p.wg.Add(1)
		go p.work(model)
	}

	p.logger.Info("embedding model loaded",
		zap.Int("workers", len(models)),
		zap.Int("dimension", p.cfg.Dimension),
	)

	p.started.Store(true)
	return nil
}

func (p *Provider) work(model Model) {
	defer p.wg.Done()
	for t := range p.tasks {
		if err := t.ctx.Err(); err != nil {
			t.result <- taskResult{err: err}
			continue
		}
		vectors, err := model.Embed(t.ctx, t.texts)
		t.result <- taskResult{vectors: vectors, err: err}
	}
}

func (p *Provider) submit(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.start(ctx); err != nil {
		return nil, err
	}

	result := make(chan taskResult, 1)

	p.sendMu.RLock()
	if p.closed {
		p.sendMu.RUnlock()
		return nil, ErrClosed
	}
	select {
	case p.tasks <- task{ctx: ctx, texts: texts, result: result}:
	case <-ctx.Done():
		p.sendMu.RUnlock()
		return nil, ctx.Err()
	}
	p.sendMu.RUnlock()

	select {
	case res := <-result:
		if res.err != nil {
			return nil, fmt.Errorf("embed %d texts: %w", len(texts), res.err)
		}
		return res.vectors, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
