// Package store persists candidates, jobs, their embeddings and match results in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/entity"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is safe for concurrent use.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string, opts Options, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return New(db, logger), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("store")}
}

func (s *Store) Close() error {
	return s.db.Close()
}

type candidateRow struct {
	entity.Candidate
	Vector pgvector.Vector `db:"vector"`
}

type jobRow struct {
	entity.Job
	Vector pgvector.Vector `db:"vector"`
}

const (
	candidateColumns = `c.id, c.name, c.email, c.phone, c.skills, c.experience_years, c.education, c.raw_text, c.created_at, c.updated_at`
	jobColumns       = `j.id, j.title, j.company, j.description, j.required_skills, j.experience_required, j.location, j.job_type, j.seniority_level, j.domain, j.created_at, j.updated_at`
)

func (s *Store) GetCandidate(ctx context.Context, id string) (*entity.Candidate, error) {
	var c entity.Candidate
	err := s.db.GetContext(ctx, &c, `SELECT `+candidateColumns+` FROM candidates c WHERE c.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get candidate %s: %w", id, err)
	}
	return &c, nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	var j entity.Job
	err := s.db.GetContext(ctx, &j, `SELECT `+jobColumns+` FROM jobs j WHERE j.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &j, nil
}

// ListCandidates returns every candidate, oldest first.
func (s *Store) ListCandidates(ctx context.Context) ([]entity.Candidate, error) {
	candidates := []entity.Candidate{}
	if err := s.db.SelectContext(ctx, &candidates, `SELECT `+candidateColumns+` FROM candidates c ORDER BY c.created_at, c.id`); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return candidates, nil
}

// ListJobs returns every job, oldest first.
func (s *Store) ListJobs(ctx context.Context) ([]entity.Job, error) {
	jobs := []entity.Job{}
	if err := s.db.SelectContext(ctx, &jobs, `SELECT `+jobColumns+` FROM jobs j ORDER BY j.created_at, j.id`); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

const upsertCandidate = `
INSERT INTO candidates (id, name, email, phone, skills, experience_years, education, raw_text)
VALUES (:id, :name, :email, :phone, :skills, :experience_years, :education, :raw_text)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    email = EXCLUDED.email,
    phone = EXCLUDED.phone,
    skills = EXCLUDED.skills,
    experience_years = EXCLUDED.experience_years,
    education = EXCLUDED.education,
    raw_text = EXCLUDED.raw_text,
    updated_at = now()`

const upsertJob = `
INSERT INTO jobs (id, title, company, description, required_skills, experience_required, location, job_type, seniority_level, domain)
VALUES (:id, :title, :company, :description, :required_skills, :experience_required, :location, :job_type, :seniority_level, :domain)
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    company = EXCLUDED.company,
    description = EXCLUDED.description,
    required_skills = EXCLUDED.required_skills,
    experience_required = EXCLUDED.experience_required,
    location = EXCLUDED.location,
    job_type = EXCLUDED.job_type,
    seniority_level = EXCLUDED.seniority_level,
    domain = EXCLUDED.domain,
    updated_at = now()`

// SaveCandidate upserts the candidate and its embedding in one transaction.
func (s *Store) SaveCandidate(ctx context.Context, c *entity.Candidate, emb entity.Embedding) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, upsertCandidate, c); err != nil {
			return fmt.Errorf("upsert candidate %s: %w", c.ID, err)
		}
		return upsertEmbedding(ctx, tx, entity.KindCandidate, c.ID, emb)
	})
}

// SaveJob upserts the job and its embedding in one transaction.
func (s *Store) SaveJob(ctx context.Context, j *entity.Job, emb entity.Embedding) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, upsertJob, j); err != nil {
			return fmt.Errorf("upsert job %s: %w", j.ID, err)
		}
		return upsertEmbedding(ctx, tx, entity.KindJob, j.ID, emb)
	})
}

func upsertEmbedding(ctx context.Context, tx *sqlx.Tx, kind entity.Kind, ownerID string, emb entity.Embedding) error {
	table, column := embeddingTable(kind)
	query := fmt.Sprintf(`
INSERT INTO %[1]s (%[2]s, model_name, vector)
VALUES ($1, $2, $3)
ON CONFLICT (%[2]s, model_name) DO UPDATE SET
    vector = EXCLUDED.vector,
    updated_at = now()`, table, column)

	if _, err := tx.ExecContext(ctx, query, ownerID, emb.ModelName, pgvector.NewVector(emb.Vector)); err != nil {
		return fmt.Errorf("upsert %s embedding %s: %w", kind, ownerID, err)
	}
	return nil
}

// GetEmbedding returns the stored vector of one owner under one model.
func (s *Store) GetEmbedding(ctx context.Context, kind entity.Kind, ownerID, model string) ([]float32, error) {
	table, column := embeddingTable(kind)
	query := fmt.Sprintf(`SELECT vector FROM %s WHERE %s = $1 AND model_name = $2`, table, column)

	var vector pgvector.Vector
	if err := s.db.GetContext(ctx, &vector, query, ownerID, model); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s embedding: %w", kind, ownerID, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s %s embedding: %w", kind, ownerID, err)
	}
	return vector.Slice(), nil
}

// ScanCandidates calls fn for every candidate with an embedding under model, ordered by id.
// Iteration stops at the first error returned by fn or when ctx is done.
func (s *Store) ScanCandidates(ctx context.Context, model string, fn func(entity.Candidate, []float32) error) error {
	rows, err := s.db.QueryxContext(ctx, `SELECT `+candidateColumns+`, e.vector
FROM candidates c
JOIN candidate_embeddings e ON e.candidate_id = c.id AND e.model_name = $1
ORDER BY c.id`, model)
	if err != nil {
		return fmt.Errorf("scan candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var row candidateRow
		if err := rows.StructScan(&row); err != nil {
			return fmt.Errorf("scan candidate row: %w", err)
		}
		if err := fn(row.Candidate, row.Vector.Slice()); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ScanJobs calls fn for every job with an embedding under model, ordered by id.
// Iteration stops at the first error returned by fn or when ctx is done.
func (s *Store) ScanJobs(ctx context.Context, model string, fn func(entity.Job, []float32) error) error {
	rows, err := s.db.QueryxContext(ctx, `SELECT `+jobColumns+`, e.vector
FROM jobs j
JOIN job_embeddings e ON e.job_id = j.id AND e.model_name = $1
ORDER BY j.id`, model)
	if err != nil {
		return fmt.Errorf("scan jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var row jobRow
		if err := rows.StructScan(&row); err != nil {
			return fmt.Errorf("scan job row: %w", err)
		}
		if err := fn(row.Job, row.Vector.Slice()); err != nil {
			return err
		}
	}
	return rows.Err()
}

const upsertMatch = `
INSERT INTO match_results (candidate_id, job_id, similarity_score, skill_overlap)
VALUES ($1, $2, $3, $4)
ON CONFLICT (candidate_id, job_id) DO UPDATE SET
    similarity_score = EXCLUDED.similarity_score,
    skill_overlap = EXCLUDED.skill_overlap,
    updated_at = now()`

// UpsertMatches writes all results in one transaction: either every row is
// stored or none is. A repeated (candidate, job) pair is updated in place.
func (s *Store) UpsertMatches(ctx context.Context, results []entity.MatchResult) error {
	if len(results) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, upsertMatch)
		if err != nil {
			return fmt.Errorf("prepare match upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range results {
			if r.SimilarityScore < 0 || r.SimilarityScore > 1 {
				return fmt.Errorf("match %s/%s: similarity score %v outside [0,1]", r.CandidateID, r.JobID, r.SimilarityScore)
			}
			if _, err := stmt.ExecContext(ctx, r.CandidateID, r.JobID, r.SimilarityScore, r.SkillOverlap); err != nil {
				return fmt.Errorf("upsert match %s/%s: %w", r.CandidateID, r.JobID, err)
			}
		}

		s.logger.Debug("stored match results", zap.Int("count", len(results)))
		return nil
	})
}

// ListMatches returns the stored results of one candidate or job, best first.
func (s *Store) ListMatches(ctx context.Context, kind entity.Kind, id string) ([]entity.MatchResult, error) {
	var query string
	switch kind {
	case entity.KindCandidate:
		query = `SELECT candidate_id, job_id, similarity_score, skill_overlap, created_at, updated_at
FROM match_results WHERE candidate_id = $1 ORDER BY similarity_score DESC, job_id`
	case entity.KindJob:
		query = `SELECT candidate_id, job_id, similarity_score, skill_overlap, created_at, updated_at
FROM match_results WHERE job_id = $1 ORDER BY similarity_score DESC, candidate_id`
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	results := []entity.MatchResult{}
	if err := s.db.SelectContext(ctx, &results, query, id); err != nil {
		return nil, fmt.Errorf("list %s %s matches: %w", kind, id, err)
	}
	return results, nil
}

// DeleteCandidate removes a candidate together with its embeddings and match results.
func (s *Store) DeleteCandidate(ctx context.Context, id string) error {
	return s.delete(ctx, "candidates", entity.KindCandidate, id)
}

// DeleteJob removes a job together with its embeddings and match results.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	return s.delete(ctx, "jobs", entity.KindJob, id)
}

func (s *Store) delete(ctx context.Context, table string, kind entity.Kind, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	s.logger.Info("deleted", zap.String("kind", string(kind)), zap.String("id", id))
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func embeddingTable(kind entity.Kind) (table, column string) {
	if kind == entity.KindJob {
		return "job_embeddings", "job_id"
	}
	return "candidate_embeddings", "candidate_id"
}
