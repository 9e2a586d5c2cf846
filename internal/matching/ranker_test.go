package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hh-matcher/internal/embedding"
	"github.com/spigell/hh-matcher/internal/entity"
	"github.com/spigell/hh-matcher/internal/store"
)

const testModel = "test-model"

type fakeCorpus struct {
	candidates map[string]entity.Candidate
	jobs       map[string]entity.Job
	vectors    map[string][]float32
	scanErr    error
}

func newFakeCorpus() *fakeCorpus {
	return &fakeCorpus{
		candidates: map[string]entity.Candidate{},
		jobs:       map[string]entity.Job{},
		vectors:    map[string][]float32{},
	}
}

func (f *fakeCorpus) addCandidate(c entity.Candidate, v []float32) {
	f.candidates[c.ID] = c
	if v != nil {
		f.vectors["candidate/"+c.ID] = v
	}
}

func (f *fakeCorpus) addJob(j entity.Job, v []float32) {
	f.jobs[j.ID] = j
	if v != nil {
		f.vectors["job/"+j.ID] = v
	}
}

func (f *fakeCorpus) GetCandidate(_ context.Context, id string) (*entity.Candidate, error) {
	c, ok := f.candidates[id]
	if !ok {
		return nil, fmt.Errorf("candidate %s: %w", id, store.ErrNotFound)
	}
	return &c, nil
}

func (f *fakeCorpus) GetJob(_ context.Context, id string) (*entity.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, store.ErrNotFound)
	}
	return &j, nil
}

func (f *fakeCorpus) GetEmbedding(_ context.Context, kind entity.Kind, id, model string) ([]float32, error) {
	v, ok := f.vectors[string(kind)+"/"+id]
	if !ok || model != testModel {
		return nil, fmt.Errorf("%s %s embedding: %w", kind, id, store.ErrNotFound)
	}
	return v, nil
}

// Rows are yielded in reverse id order so ranking cannot lean on scan order.
func (f *fakeCorpus) ScanCandidates(_ context.Context, _ string, fn func(entity.Candidate, []float32) error) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	for _, id := range reverseKeys(f.candidates) {
		v, ok := f.vectors["candidate/"+id]
		if !ok {
			continue
		}
		if err := fn(f.candidates[id], v); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeCorpus) ScanJobs(_ context.Context, _ string, fn func(entity.Job, []float32) error) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	for _, id := range reverseKeys(f.jobs) {
		v, ok := f.vectors["job/"+id]
		if !ok {
			continue
		}
		if err := fn(f.jobs[id], v); err != nil {
			return err
		}
	}
	return nil
}

func reverseKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

type fakeWriter struct {
	batches [][]entity.MatchResult
	err     error
}

func (w *fakeWriter) UpsertMatches(_ context.Context, results []entity.MatchResult) error {
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, results)
	return nil
}

// unit returns a 2-d vector at the given cosine to (1, 0).
func unit(cos float64) []float32 {
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

func jobCorpus() *fakeCorpus {
	corpus := newFakeCorpus()
	corpus.addCandidate(entity.Candidate{ID: "c-1", Name: "Ann", Skills: []string{"Python", "SQL"}}, []float32{1, 0})
	corpus.addJob(entity.Job{ID: "j-a", Title: "Data engineer", RequiredSkills: []string{"Python", "Docker", "SQL"}}, unit(0.95))
	corpus.addJob(entity.Job{ID: "j-b", Title: "Analyst", RequiredSkills: []string{"SQL"}}, unit(0.8))
	corpus.addJob(entity.Job{ID: "j-c", Title: "Nurse"}, unit(0.3))
	corpus.addJob(entity.Job{ID: "j-d", Title: "Opposite"}, []float32{-1, 0})
	corpus.addJob(entity.Job{ID: "j-e", Title: "No embedding"}, nil)
	return corpus
}

func TestMatchCandidateToJobs(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	r := NewRanker(jobCorpus(), writer, testModel, zap.NewNop())

	matches, err := r.MatchCandidateToJobs(context.Background(), "c-1", 10, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %+v", matches)
	}
	if matches[0].JobID != "j-a" || matches[1].JobID != "j-b" {
		t.Fatalf("unexpected order: %+v", matches)
	}
	if matches[0].SimilarityScore != 95 {
		t.Fatalf("expected score 95, got %v", matches[0].SimilarityScore)
	}

	overlap := matches[0].SkillOverlap
	if overlap.OverlapCount != 2 || overlap.OverlapPercentage != 66.67 || !reflect.DeepEqual(overlap.MissingSkills, []string{"docker"}) {
		t.Fatalf("unexpected overlap: %+v", overlap)
	}

	if len(writer.batches) != 1 || len(writer.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2 rows, got %+v", writer.batches)
	}
	for _, row := range writer.batches[0] {
		if row.SimilarityScore < 0 || row.SimilarityScore > 1 {
			t.Fatalf("persisted score out of range: %+v", row)
		}
		if row.CandidateID != "c-1" {
			t.Fatalf("unexpected candidate id in row: %+v", row)
		}
	}
	if writer.batches[0][0].SimilarityScore != 0.95 {
		t.Fatalf("expected persisted score 0.95, got %v", writer.batches[0][0].SimilarityScore)
	}
}

func TestMatchRespectsTopK(t *testing.T) {
	t.Parallel()

	r := NewRanker(jobCorpus(), nil, testModel, nil)
	for topK := 1; topK <= 4; topK++ {
		matches, err := r.MatchCandidateToJobs(context.Background(), "c-1", topK, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) > topK {
			t.Fatalf("topK %d: got %d matches", topK, len(matches))
		}
	}
}

func TestMatchThresholdIsMonotonic(t *testing.T) {
	t.Parallel()

	r := NewRanker(jobCorpus(), nil, testModel, nil)

	previous := math.MaxInt
	for _, threshold := range []float64{0, 0.25, 0.5, 0.8, 0.9, 0.96, 1} {
		matches, err := r.MatchCandidateToJobs(context.Background(), "c-1", MaxTopK, threshold)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) > previous {
			t.Fatalf("threshold %v grew the result set to %d", threshold, len(matches))
		}
		for _, m := range matches {
			if m.SimilarityScore/100 < threshold-0.005 {
				t.Fatalf("threshold %v: %s scored %v", threshold, m.JobID, m.SimilarityScore)
			}
		}
		previous = len(matches)
	}
}

func TestMatchNoTargetCrossesThreshold(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	corpus := newFakeCorpus()
	corpus.addCandidate(entity.Candidate{ID: "c-1"}, []float32{1, 0})
	corpus.addJob(entity.Job{ID: "j-1"}, unit(0.6))

	r := NewRanker(corpus, writer, testModel, nil)
	matches, err := r.MatchCandidateToJobs(context.Background(), "c-1", 5, 0.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", matches)
	}
	if len(writer.batches) != 0 {
		t.Fatalf("expected nothing persisted, got %+v", writer.batches)
	}
}

func TestMatchTieBreaksByID(t *testing.T) {
	t.Parallel()

	corpus := newFakeCorpus()
	corpus.addCandidate(entity.Candidate{ID: "c-1"}, []float32{1, 0})
	corpus.addJob(entity.Job{ID: "job-2"}, unit(0.875))
	corpus.addJob(entity.Job{ID: "job-10"}, unit(0.875))
	corpus.addJob(entity.Job{ID: "job-1"}, unit(0.875))

	r := NewRanker(corpus, nil, testModel, nil)

	for run := 0; run < 5; run++ {
		matches, err := r.MatchCandidateToJobs(context.Background(), "c-1", 10, 0.5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := []string{matches[0].JobID, matches[1].JobID, matches[2].JobID}
		if !reflect.DeepEqual(got, []string{"job-1", "job-10", "job-2"}) {
			t.Fatalf("run %d: unexpected order %v", run, got)
		}
		for _, m := range matches {
			if m.SimilarityScore != 87.5 {
				t.Fatalf("expected 87.5, got %v", m.SimilarityScore)
			}
		}
	}
}

func TestMatchUnknownAnchorReturnsEmpty(t *testing.T) {
	t.Parallel()

	corpus := jobCorpus()
	corpus.addCandidate(entity.Candidate{ID: "c-no-vector"}, nil)
	r := NewRanker(corpus, nil, testModel, nil)

	for _, id := range []string{"missing", "c-no-vector"} {
		matches, err := r.MatchCandidateToJobs(context.Background(), id, 10, 0)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", id, err)
		}
		if len(matches) != 0 {
			t.Fatalf("%s: expected no matches, got %+v", id, matches)
		}
	}

	candidates, err := r.MatchJobToCandidates(context.Background(), "missing", 10, 0)
	if err != nil || len(candidates) != 0 {
		t.Fatalf("expected empty result, got %+v, %v", candidates, err)
	}
}

func TestMatchValidatesArguments(t *testing.T) {
	t.Parallel()

	r := NewRanker(jobCorpus(), nil, testModel, nil)
	tests := []struct {
		topK int
		min  float64
	}{
		{topK: 0, min: 0.5},
		{topK: 101, min: 0.5},
		{topK: 10, min: -0.1},
		{topK: 10, min: 1.5},
		{topK: 10, min: math.NaN()},
	}

	for _, tt := range tests {
		if _, err := r.MatchCandidateToJobs(context.Background(), "c-1", tt.topK, tt.min); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("topK=%d min=%v: expected ErrInvalidArgument, got %v", tt.topK, tt.min, err)
		}
		if _, err := r.MatchJobToCandidates(context.Background(), "j-a", tt.topK, tt.min); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("topK=%d min=%v: expected ErrInvalidArgument, got %v", tt.topK, tt.min, err)
		}
	}
}

func TestMatchPersistenceFailureStillReturnsList(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	writer := &fakeWriter{err: errors.New("database is down")}
	r := NewRanker(jobCorpus(), writer, testModel, zap.New(core))

	matches, err := r.MatchCandidateToJobs(context.Background(), "c-1", 10, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	entries := logs.FilterMessage("failed to store match results").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %v", logs.All())
	}
	if got := entries[0].ContextMap()["anchor_id"]; got != "c-1" {
		t.Fatalf("expected anchor_id field, got %v", got)
	}
}

func TestMatchComputationFailureIsReturned(t *testing.T) {
	t.Parallel()

	t.Run("malformed corpus vector", func(t *testing.T) {
		t.Parallel()
		writer := &fakeWriter{}
		corpus := jobCorpus()
		corpus.addJob(entity.Job{ID: "j-bad"}, []float32{1, 0, 0})

		r := NewRanker(corpus, writer, testModel, nil)
		_, err := r.MatchCandidateToJobs(context.Background(), "c-1", 10, 0)
		if !errors.Is(err, ErrComputation) || !errors.Is(err, embedding.ErrMalformedVector) {
			t.Fatalf("expected computation error, got %v", err)
		}
		if len(writer.batches) != 0 {
			t.Fatalf("expected nothing persisted, got %+v", writer.batches)
		}
	})

	t.Run("non-finite anchor", func(t *testing.T) {
		t.Parallel()
		corpus := jobCorpus()
		corpus.addCandidate(entity.Candidate{ID: "c-nan"}, []float32{float32(math.NaN()), 0})

		r := NewRanker(corpus, nil, testModel, nil)
		if _, err := r.MatchCandidateToJobs(context.Background(), "c-nan", 10, 0); !errors.Is(err, ErrComputation) {
			t.Fatalf("expected computation error, got %v", err)
		}
	})

	t.Run("scan failure", func(t *testing.T) {
		t.Parallel()
		corpus := jobCorpus()
		corpus.scanErr = errors.New("connection refused")

		r := NewRanker(corpus, nil, testModel, nil)
		if _, err := r.MatchJobToCandidates(context.Background(), "j-a", 10, 0); !errors.Is(err, ErrComputation) {
			t.Fatalf("expected computation error, got %v", err)
		}
	})
}

func TestMatchJobToCandidatesUsesJobDenominator(t *testing.T) {
	t.Parallel()

	corpus := newFakeCorpus()
	corpus.addJob(entity.Job{ID: "j-1", RequiredSkills: []string{"Python", "Docker", "SQL"}}, []float32{1, 0})
	corpus.addCandidate(entity.Candidate{ID: "c-1", Name: "Ann", Email: "ann@example.com", Skills: []string{"Python", "SQL"}, ExperienceYears: 4}, unit(0.9))
	corpus.addCandidate(entity.Candidate{ID: "c-2", Name: "Bob", Skills: []string{"Python", "SQL", "Go", "Rust", "Kafka", "Redis"}}, unit(0.7))

	writer := &fakeWriter{}
	r := NewRanker(corpus, writer, testModel, nil)
	matches, err := r.MatchJobToCandidates(context.Background(), "j-1", 10, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(matches) != 2 || matches[0].CandidateID != "c-1" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	if matches[0].Email != "ann@example.com" || matches[0].ExperienceYears != 4 {
		t.Fatalf("unexpected candidate fields: %+v", matches[0])
	}
	for _, m := range matches {
		if m.SkillOverlap.OverlapPercentage != 66.67 {
			t.Fatalf("%s: expected 66.67 against the job's skills, got %v", m.CandidateID, m.SkillOverlap.OverlapPercentage)
		}
	}

	if len(writer.batches) != 1 {
		t.Fatalf("expected one persisted batch, got %d", len(writer.batches))
	}
	for _, row := range writer.batches[0] {
		if row.JobID != "j-1" {
			t.Fatalf("unexpected job id in row: %+v", row)
		}
	}
}
