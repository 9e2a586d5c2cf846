package matching

import "github.com/spigell/hh-matcher/internal/entity"

// JobMatch is one job ranked for a candidate. SimilarityScore is on the 0..100 scale.
type JobMatch struct {
	JobID           string              `json:"job_id"`
	JobTitle        string              `json:"job_title"`
	Company         string              `json:"company"`
	SimilarityScore float64             `json:"similarity_score"`
	SkillOverlap    entity.SkillOverlap `json:"skill_overlap"`
	Location        string              `json:"location"`
	JobType         string              `json:"job_type"`
}

// CandidateMatch is one candidate ranked for a job. SimilarityScore is on the 0..100 scale.
type CandidateMatch struct {
	CandidateID     string              `json:"candidate_id"`
	CandidateName   string              `json:"candidate_name"`
	Email           string              `json:"email"`
	SimilarityScore float64             `json:"similarity_score"`
	SkillOverlap    entity.SkillOverlap `json:"skill_overlap"`
	ExperienceYears float64             `json:"experience_years"`
}
