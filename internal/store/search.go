package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/entity"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 200
)

// ErrInvalidFilter is returned for a filter that cannot be turned into a query.
var ErrInvalidFilter = errors.New("invalid search filter")

// CandidateFilter narrows a candidate search. Zero fields are ignored.
type CandidateFilter struct {
	Name          string
	Skills        []string
	MinExperience *float64
	MaxExperience *float64
	Limit         int
}

// JobFilter narrows a job search. Title, Company and Location are substring
// matches; JobType, SeniorityLevel and Domain are exact.
type JobFilter struct {
	Title          string
	Company        string
	Location       string
	JobType        string
	SeniorityLevel string
	Domain         string
	Skills         []string
	MinExperience  *float64
	MaxExperience  *float64
	Limit          int
}

// conditions collects AND-ed predicates with named arguments.
type conditions struct {
	where []string
	args  map[string]any
}

func newConditions() *conditions {
	return &conditions{args: map[string]any{}}
}

func (c *conditions) bind(value any) string {
	name := "p" + strconv.Itoa(len(c.args))
	c.args[name] = value
	return ":" + name
}

func (c *conditions) contains(column, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	c.where = append(c.where, fmt.Sprintf(`%s ILIKE %s ESCAPE '\'`, column, c.bind("%"+escapeLike(value)+"%")))
}

func (c *conditions) equals(column, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	c.where = append(c.where, fmt.Sprintf(`%s = %s`, column, c.bind(value)))
}

func (c *conditions) between(column string, lo, hi *float64) {
	if lo != nil {
		c.where = append(c.where, fmt.Sprintf(`%s >= %s`, column, c.bind(*lo)))
	}
	if hi != nil {
		c.where = append(c.where, fmt.Sprintf(`%s <= %s`, column, c.bind(*hi)))
	}
}

// hasSkills requires every skill to be present in the array column, ignoring case.
func (c *conditions) hasSkills(column string, skills []string) {
	for _, skill := range skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		c.where = append(c.where, fmt.Sprintf(`EXISTS (SELECT 1 FROM unnest(%s) AS s WHERE lower(s) = %s)`, column, c.bind(skill)))
	}
}

func (c *conditions) sql() string {
	if len(c.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.where, " AND ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func searchLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultSearchLimit, nil
	}
	if limit < 1 || limit > MaxSearchLimit {
		return 0, fmt.Errorf("%w: limit must be within [1, %d], got %d", ErrInvalidFilter, MaxSearchLimit, limit)
	}
	return limit, nil
}

func checkRange(lo, hi *float64) error {
	if lo != nil && *lo < 0 {
		return fmt.Errorf("%w: min experience must not be negative", ErrInvalidFilter)
	}
	if hi != nil && *hi < 0 {
		return fmt.Errorf("%w: max experience must not be negative", ErrInvalidFilter)
	}
	if lo != nil && hi != nil && *lo > *hi {
		return fmt.Errorf("%w: min experience %v is above max experience %v", ErrInvalidFilter, *lo, *hi)
	}
	return nil
}

// SearchCandidates returns candidates matching every set field of f, oldest first.
func (s *Store) SearchCandidates(ctx context.Context, f CandidateFilter) ([]entity.Candidate, error) {
	limit, err := searchLimit(f.Limit)
	if err != nil {
		return nil, err
	}
	if err := checkRange(f.MinExperience, f.MaxExperience); err != nil {
		return nil, err
	}

	c := newConditions()
	c.contains("c.name", f.Name)
	c.between("c.experience_years", f.MinExperience, f.MaxExperience)
	c.hasSkills("c.skills", f.Skills)

	query := `SELECT ` + candidateColumns + ` FROM candidates c` + c.sql() +
		` ORDER BY c.created_at, c.id LIMIT ` + c.bind(limit)

	candidates := []entity.Candidate{}
	if err := s.selectNamed(ctx, &candidates, query, c.args); err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}

	s.logger.Debug("candidate search", zap.Int("filters", len(c.where)), zap.Int("found", len(candidates)))
	return candidates, nil
}

// SearchJobs returns jobs matching every set field of f, oldest first.
func (s *Store) SearchJobs(ctx context.Context, f JobFilter) ([]entity.Job, error) {
	limit, err := searchLimit(f.Limit)
	if err != nil {
		return nil, err
	}
	if err := checkRange(f.MinExperience, f.MaxExperience); err != nil {
		return nil, err
	}

	c := newConditions()
	c.contains("j.title", f.Title)
	c.contains("j.company", f.Company)
	c.contains("j.location", f.Location)
	c.equals("j.job_type", f.JobType)
	c.equals("j.seniority_level", f.SeniorityLevel)
	c.equals("j.domain", f.Domain)
	c.between("j.experience_required", f.MinExperience, f.MaxExperience)
	c.hasSkills("j.required_skills", f.Skills)

	query := `SELECT ` + jobColumns + ` FROM jobs j` + c.sql() +
		` ORDER BY j.created_at, j.id LIMIT ` + c.bind(limit)

	jobs := []entity.Job{}
	if err := s.selectNamed(ctx, &jobs, query, c.args); err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}

	s.logger.Debug("job search", zap.Int("filters", len(c.where)), zap.Int("found", len(jobs)))
	return jobs, nil
}

func (s *Store) selectNamed(ctx context.Context, dest any, query string, args map[string]any) error {
	bound, values, err := s.db.BindNamed(query, args)
	if err != nil {
		return err
	}
	return s.db.SelectContext(ctx, dest, bound, values...)
}
