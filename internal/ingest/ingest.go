// Package ingest turns raw candidate and job records into stored entities with embeddings.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/entity"
	"github.com/spigell/hh-matcher/internal/skills"
)

const (
	defaultCompany  = "Not specified"
	defaultLocation = "Remote"
)

// CandidateInput is a candidate as written in an ingest file. Empty fields are
// derived from Text where possible.
type CandidateInput struct {
	ID              string   `mapstructure:"id"`
	Name            string   `mapstructure:"name"`
	Email           string   `mapstructure:"email"`
	Phone           string   `mapstructure:"phone"`
	Skills          []string `mapstructure:"skills"`
	ExperienceYears *float64 `mapstructure:"experience_years"`
	Education       string   `mapstructure:"education"`
	Text            string   `mapstructure:"text"`
}

// JobInput is a job as written in an ingest file. Empty fields are derived from
// the title and description.
type JobInput struct {
	ID                 string   `mapstructure:"id"`
	Title              string   `mapstructure:"title"`
	Company            string   `mapstructure:"company"`
	Description        string   `mapstructure:"description"`
	RequiredSkills     []string `mapstructure:"required_skills"`
	ExperienceRequired *float64 `mapstructure:"experience_required"`
	Location           string   `mapstructure:"location"`
	JobType            string   `mapstructure:"job_type"`
	SeniorityLevel     string   `mapstructure:"seniority_level"`
	Domain             string   `mapstructure:"domain"`
}

// Embedder produces the vector stored with each entity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// Saver stores an entity together with its embedding.
type Saver interface {
	SaveCandidate(ctx context.Context, c *entity.Candidate, emb entity.Embedding) error
	SaveJob(ctx context.Context, j *entity.Job, emb entity.Embedding) error
}

type Ingester struct {
	extractor *skills.Extractor
	embedder  Embedder
	saver     Saver
	logger    *zap.Logger
	newID     func() string
}

func New(extractor *skills.Extractor, embedder Embedder, saver Saver, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractor == nil {
		extractor = skills.New()
	}
	return &Ingester{
		extractor: extractor,
		embedder:  embedder,
		saver:     saver,
		logger:    logger.Named("ingest"),
		newID:     uuid.NewString,
	}
}

// candidateNamespace derives candidate ids from emails.
var candidateNamespace = uuid.MustParse("b3d0e6a2-7c41-4f0e-8d2a-5e9f1c6a4b37")

// CandidateIDFromEmail is the id a candidate without one gets, so the same
// person ingested again overwrites the stored record.
func CandidateIDFromEmail(email string) string {
	return uuid.NewSHA1(candidateNamespace, []byte(strings.ToLower(strings.TrimSpace(email)))).String()
}

// Candidate derives the missing fields of in without storing anything.
func (i *Ingester) Candidate(in CandidateInput) (*entity.Candidate, error) {
	raw := strings.TrimSpace(in.Text)

	c := &entity.Candidate{
		ID:        strings.TrimSpace(in.ID),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Skills:    trimAll(in.Skills),
		Education: strings.TrimSpace(in.Education),
		RawText:   skills.CleanText(raw),
	}

	if c.Name == "" {
		c.Name = ExtractName(raw)
	}
	if c.Name == "" {
		return nil, errors.New("candidate needs a name or a text to take it from")
	}
	if c.Email == "" {
		c.Email = skills.ExtractEmail(raw)
	}
	if c.Phone == "" {
		c.Phone = skills.ExtractPhone(raw)
	}
	if len(c.Skills) == 0 {
		c.Skills = i.extractor.ExtractSkills(raw)
	}
	if in.ExperienceYears != nil {
		c.ExperienceYears = *in.ExperienceYears
	} else {
		c.ExperienceYears = skills.ExtractExperienceYears(raw)
	}
	if c.Education == "" && raw != "" {
		c.Education = ExtractEducation(raw)
	}
	if c.ID == "" && c.Email != "" {
		c.ID = CandidateIDFromEmail(c.Email)
	}
	if c.ID == "" {
		c.ID = i.newID()
	}

	return c, nil
}

// Job derives the missing fields of in without storing anything.
func (i *Ingester) Job(in JobInput) (*entity.Job, error) {
	j := &entity.Job{
		ID:             strings.TrimSpace(in.ID),
		Title:          strings.TrimSpace(in.Title),
		Company:        strings.TrimSpace(in.Company),
		Description:    strings.TrimSpace(in.Description),
		RequiredSkills: trimAll(in.RequiredSkills),
		Location:       strings.TrimSpace(in.Location),
		JobType:        strings.TrimSpace(in.JobType),
		SeniorityLevel: strings.TrimSpace(in.SeniorityLevel),
		Domain:         strings.TrimSpace(in.Domain),
	}
	if j.Title == "" {
		return nil, errors.New("job title is required")
	}

	full := j.Title + " " + j.Description

	if len(j.RequiredSkills) == 0 {
		j.RequiredSkills = i.extractor.ExtractSkills(full)
	}
	if in.ExperienceRequired != nil {
		j.ExperienceRequired = *in.ExperienceRequired
	} else {
		j.ExperienceRequired = skills.ExtractExperienceYears(j.Description)
	}
	if j.SeniorityLevel == "" {
		j.SeniorityLevel = string(skills.ClassifySeniority(full, j.ExperienceRequired))
	}
	if j.Domain == "" {
		j.Domain = skills.ClassifyDomain(full)
	}
	if j.JobType == "" {
		j.JobType = skills.ExtractJobType(j.Description)
	}
	if j.Company == "" {
		j.Company = defaultCompany
	}
	if j.Location == "" {
		j.Location = defaultLocation
	}
	if j.ID == "" {
		j.ID = i.newID()
	}

	return j, nil
}

// IngestCandidate derives, embeds and stores one candidate.
func (i *Ingester) IngestCandidate(ctx context.Context, in CandidateInput) (*entity.Candidate, error) {
	c, err := i.Candidate(in)
	if err != nil {
		return nil, err
	}

	vector, err := i.embedder.Embed(ctx, CandidateText(c))
	if err != nil {
		return nil, fmt.Errorf("embed candidate %s: %w", c.ID, err)
	}

	emb := entity.Embedding{OwnerKind: entity.KindCandidate, OwnerID: c.ID, ModelName: i.embedder.ModelName(), Vector: vector}
	if err := i.saver.SaveCandidate(ctx, c, emb); err != nil {
		return nil, err
	}

	i.logger.Info("candidate stored",
		zap.String("id", c.ID),
		zap.String("name", c.Name),
		zap.Strings("skills", c.Skills),
	)
	return c, nil
}

// IngestJob derives, embeds and stores one job.
func (i *Ingester) IngestJob(ctx context.Context, in JobInput) (*entity.Job, error) {
	j, err := i.Job(in)
	if err != nil {
		return nil, err
	}

	vector, err := i.embedder.Embed(ctx, JobText(j))
	if err != nil {
		return nil, fmt.Errorf("embed job %s: %w", j.ID, err)
	}

	emb := entity.Embedding{OwnerKind: entity.KindJob, OwnerID: j.ID, ModelName: i.embedder.ModelName(), Vector: vector}
	if err := i.saver.SaveJob(ctx, j, emb); err != nil {
		return nil, err
	}

	i.logger.Info("job stored",
		zap.String("id", j.ID),
		zap.String("title", j.Title),
		zap.String("seniority", j.SeniorityLevel),
		zap.String("domain", j.Domain),
	)
	return j, nil
}

// CandidateText is the text a candidate is embedded from: name, skills and education.
func CandidateText(c *entity.Candidate) string {
	return strings.Join([]string{c.Name, strings.Join(c.Skills, " "), c.Education}, " ")
}

// JobText is the text a job is embedded from: title, description and required skills.
func JobText(j *entity.Job) string {
	return strings.Join([]string{j.Title, j.Description, strings.Join(j.RequiredSkills, " ")}, " ")
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
