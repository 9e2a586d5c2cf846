// Package matching ranks jobs for a candidate and candidates for a job.
//
// A query reads the anchor's stored embedding, scans every embedded entity of
// the opposite kind, scores each by cosine similarity, keeps those at or above
// the threshold, sorts them and stores the top results.
package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/embedding"
	"github.com/spigell/hh-matcher/internal/entity"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/similarity"
	"github.com/spigell/hh-matcher/internal/skills"
	"github.com/spigell/hh-matcher/internal/store"
)

const (
	MinTopK = 1
	MaxTopK = 100
)

var (
	// ErrInvalidArgument reports a topK or minSimilarity outside its range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrComputation wraps failures that leave a query without a trustworthy ranking.
	ErrComputation = errors.New("match computation failed")
)

// Corpus is the read side of a query. The store scans linearly; an index can
// take its place as long as it yields the same entities.
type Corpus interface {
	GetCandidate(ctx context.Context, id string) (*entity.Candidate, error)
	GetJob(ctx context.Context, id string) (*entity.Job, error)
	GetEmbedding(ctx context.Context, kind entity.Kind, ownerID, model string) ([]float32, error)
	ScanCandidates(ctx context.Context, model string, fn func(entity.Candidate, []float32) error) error
	ScanJobs(ctx context.Context, model string, fn func(entity.Job, []float32) error) error
}

// ResultWriter stores a batch of results atomically.
type ResultWriter interface {
	UpsertMatches(ctx context.Context, results []entity.MatchResult) error
}

// Ranker is safe for concurrent use.
type Ranker struct {
	corpus  Corpus
	results ResultWriter
	model   string
	logger  *zap.Logger
}

// NewRanker returns a ranker comparing embeddings stored under model.
func NewRanker(corpus Corpus, results ResultWriter, model string, log *zap.Logger) *Ranker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ranker{
		corpus:  corpus,
		results: results,
		model:   model,
		logger:  log.Named("ranker"),
	}
}

// scored is one opposite-side entity that passed the threshold.
type scored[T any] struct {
	id    string
	score float64
	item  T
}

// MatchCandidateToJobs ranks jobs for a candidate. An unknown candidate, or
// one without an embedding, yields an empty list.
func (r *Ranker) MatchCandidateToJobs(ctx context.Context, candidateID string, topK int, minSimilarity float64) ([]JobMatch, error) {
	if err := validate(topK, minSimilarity); err != nil {
		return nil, err
	}
	log := logger.WithFields(r.logger, logger.QueryFields(string(entity.KindCandidate), candidateID)...)
	started := time.Now()

	candidate, err := r.corpus.GetCandidate(ctx, candidateID)
	if err != nil {
		return anchorMissing[JobMatch](log, err)
	}
	anchor, err := r.corpus.GetEmbedding(ctx, entity.KindCandidate, candidateID, r.model)
	if err != nil {
		return anchorMissing[JobMatch](log, err)
	}
	if err := checkVector(anchor, len(anchor)); err != nil {
		return nil, fmt.Errorf("%w: candidate %s: %w", ErrComputation, candidateID, err)
	}

	var (
		jobs    []entity.Job
		vectors [][]float32
	)
	err = r.corpus.ScanJobs(ctx, r.model, func(job entity.Job, vector []float32) error {
		if err := checkVector(vector, len(anchor)); err != nil {
			return fmt.Errorf("job %s: %w", job.ID, err)
		}
		jobs = append(jobs, job)
		vectors = append(vectors, vector)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrComputation, err)
	}

	ranked := rank(anchor, vectors, jobs, func(j entity.Job) string { return j.ID }, topK, minSimilarity)

	matches := make([]JobMatch, 0, len(ranked))
	rows := make([]entity.MatchResult, 0, len(ranked))
	for _, s := range ranked {
		overlap := skills.Overlap(candidate.Skills, s.item.RequiredSkills)
		matches = append(matches, JobMatch{
			JobID:           s.item.ID,
			JobTitle:        s.item.Title,
			Company:         s.item.Company,
			SimilarityScore: s.score,
			SkillOverlap:    overlap,
			Location:        s.item.Location,
			JobType:         s.item.JobType,
		})
		rows = append(rows, entity.MatchResult{
			CandidateID:     candidateID,
			JobID:           s.item.ID,
			SimilarityScore: persistedScore(s.score),
			SkillOverlap:    overlap,
		})
	}

	r.persist(ctx, log, rows)
	log.Info("ranked jobs",
		zap.Int("scanned", len(jobs)),
		zap.Int("returned", len(matches)),
		zap.Duration("took", time.Since(started)),
	)
	return matches, nil
}

// MatchJobToCandidates ranks candidates for a job. The skill overlap still uses
// the job's required skills as the denominator.
func (r *Ranker) MatchJobToCandidates(ctx context.Context, jobID string, topK int, minSimilarity float64) ([]CandidateMatch, error) {
	if err := validate(topK, minSimilarity); err != nil {
		return nil, err
	}
	log := logger.WithFields(r.logger, logger.QueryFields(string(entity.KindJob), jobID)...)
	started := time.Now()

	job, err := r.corpus.GetJob(ctx, jobID)
	if err != nil {
		return anchorMissing[CandidateMatch](log, err)
	}
	anchor, err := r.corpus.GetEmbedding(ctx, entity.KindJob, jobID, r.model)
	if err != nil {
		return anchorMissing[CandidateMatch](log, err)
	}
	if err := checkVector(anchor, len(anchor)); err != nil {
		return nil, fmt.Errorf("%w: job %s: %w", ErrComputation, jobID, err)
	}

	var (
		candidates []entity.Candidate
		vectors    [][]float32
	)
	err = r.corpus.ScanCandidates(ctx, r.model, func(c entity.Candidate, vector []float32) error {
		if err := checkVector(vector, len(anchor)); err != nil {
			return fmt.Errorf("candidate %s: %w", c.ID, err)
		}
		candidates = append(candidates, c)
		vectors = append(vectors, vector)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrComputation, err)
	}

	ranked := rank(anchor, vectors, candidates, func(c entity.Candidate) string { return c.ID }, topK, minSimilarity)

	matches := make([]CandidateMatch, 0, len(ranked))
	rows := make([]entity.MatchResult, 0, len(ranked))
	for _, s := range ranked {
		overlap := skills.Overlap(s.item.Skills, job.RequiredSkills)
		matches = append(matches, CandidateMatch{
			CandidateID:     s.item.ID,
			CandidateName:   s.item.Name,
			Email:           s.item.Email,
			SimilarityScore: s.score,
			SkillOverlap:    overlap,
			ExperienceYears: s.item.ExperienceYears,
		})
		rows = append(rows, entity.MatchResult{
			CandidateID:     s.item.ID,
			JobID:           jobID,
			SimilarityScore: persistedScore(s.score),
			SkillOverlap:    overlap,
		})
	}

	r.persist(ctx, log, rows)
	log.Info("ranked candidates",
		zap.Int("scanned", len(candidates)),
		zap.Int("returned", len(matches)),
		zap.Duration("took", time.Since(started)),
	)
	return matches, nil
}

// rank scores every item against anchor, drops those below minSimilarity and
// returns at most topK, best first. Equal scores are ordered by id.
func rank[T any](anchor []float32, vectors [][]float32, items []T, id func(T) string, topK int, minSimilarity float64) []scored[T] {
	if len(items) == 0 {
		return nil
	}

	sims := similarity.Matrix([][]float32{anchor}, vectors)[0]

	kept := make([]scored[T], 0, len(items))
	for i, sim := range sims {
		if sim < minSimilarity {
			continue
		}
		kept = append(kept, scored[T]{id: id(items[i]), score: skills.Round2(sim * 100), item: items[i]})
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].id < kept[j].id
	})

	if len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

func (r *Ranker) persist(ctx context.Context, log *zap.Logger, rows []entity.MatchResult) {
	if r.results == nil || len(rows) == 0 {
		return
	}
	if err := r.results.UpsertMatches(ctx, rows); err != nil {
		log.Warn("failed to store match results", zap.Int("count", len(rows)), zap.Error(err))
	}
}

func anchorMissing[T any](log *zap.Logger, err error) ([]T, error) {
	if errors.Is(err, store.ErrNotFound) {
		log.Info("anchor or its embedding not found", zap.Error(err))
		return []T{}, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrComputation, err)
}

func validate(topK int, minSimilarity float64) error {
	if topK < MinTopK || topK > MaxTopK {
		return fmt.Errorf("%w: top-k must be within [%d, %d], got %d", ErrInvalidArgument, MinTopK, MaxTopK, topK)
	}
	if math.IsNaN(minSimilarity) || minSimilarity < 0 || minSimilarity > 1 {
		return fmt.Errorf("%w: min similarity must be within [0, 1], got %v", ErrInvalidArgument, minSimilarity)
	}
	return nil
}

func checkVector(vector []float32, dimension int) error {
	if len(vector) == 0 || len(vector) != dimension {
		return fmt.Errorf("%w: expected %d values, got %d", embedding.ErrMalformedVector, dimension, len(vector))
	}
	for _, v := range vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: non-finite value", embedding.ErrMalformedVector)
		}
	}
	return nil
}

// persistedScore converts a 0..100 score to the stored 0..1 scale.
func persistedScore(score float64) float64 {
	return math.Min(1, math.Max(0, score/100))
}
