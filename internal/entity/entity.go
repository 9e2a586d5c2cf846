package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Kind identifies which side of a match an entity belongs to.
type Kind string

const (
	KindCandidate Kind = "candidate"
	KindJob       Kind = "job"
)

// Opposite returns the kind that entities of k are matched against.
func (k Kind) Opposite() Kind {
	if k == KindCandidate {
		return KindJob
	}
	return KindCandidate
}

// ParseKind accepts the singular and plural spelling used on the command line.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "candidate", "candidates":
		return KindCandidate, nil
	case "job", "jobs":
		return KindJob, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q (expected candidate or job)", s)
	}
}

// Candidate is the source side of a match.
type Candidate struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Email           string         `db:"email" json:"email,omitempty"`
	Phone           string         `db:"phone" json:"phone,omitempty"`
	Skills          pq.StringArray `db:"skills" json:"skills"`
	ExperienceYears float64        `db:"experience_years" json:"experience_years"`
	Education       string         `db:"education" json:"education,omitempty"`
	RawText         string         `db:"raw_text" json:"raw_text,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Job is the target side of a match. Its required skills are the denominator of every skill overlap.
type Job struct {
	ID                 string         `db:"id" json:"id"`
	Title              string         `db:"title" json:"title"`
	Company            string         `db:"company" json:"company"`
	Description        string         `db:"description" json:"description,omitempty"`
	RequiredSkills     pq.StringArray `db:"required_skills" json:"required_skills"`
	ExperienceRequired float64        `db:"experience_required" json:"experience_required"`
	Location           string         `db:"location" json:"location"`
	JobType            string         `db:"job_type" json:"job_type"`
	SeniorityLevel     string         `db:"seniority_level" json:"seniority_level"`
	Domain             string         `db:"domain" json:"domain"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Embedding is a vector stored for one owner under one model.
type Embedding struct {
	OwnerKind Kind
	OwnerID   string
	ModelName string
	Vector    []float32
}

// SkillOverlap describes how many of a job's required skills a candidate has.
type SkillOverlap struct {
	OverlappingSkills []string `json:"overlapping_skills"`
	OverlapCount      int      `json:"overlap_count"`
	OverlapPercentage float64  `json:"overlap_percentage"`
	MissingSkills     []string `json:"missing_skills"`
}

// Value stores the overlap as a JSON document.
func (o SkillOverlap) Value() (driver.Value, error) {
	return json.Marshal(o)
}

// Scan reads an overlap stored by Value.
func (o *SkillOverlap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*o = SkillOverlap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("skill overlap: unsupported column type")
	}
	return json.Unmarshal(data, o)
}

// MatchResult is a persisted match. SimilarityScore is stored on the 0..1 scale.
type MatchResult struct {
	CandidateID     string       `db:"candidate_id" json:"candidate_id"`
	JobID           string       `db:"job_id" json:"job_id"`
	SimilarityScore float64      `db:"similarity_score" json:"similarity_score"`
	SkillOverlap    SkillOverlap `db:"skill_overlap" json:"skill_overlap"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}
