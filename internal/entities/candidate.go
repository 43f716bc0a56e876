package entities

import "time"

// CandidateProfile is a row of the search index populated by the CV ingestion pipeline.
type CandidateProfile struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Seniority         string    `json:"seniority"`
	YearsOfExperience float64   `json:"yearsOfExperience"`
	Location          string    `json:"location"`
	Summary           string    `json:"summary"`
	Skills            []string  `json:"skills" gorm:"serializer:json;type:text"`
	Tools             []string  `json:"tools" gorm:"serializer:json;type:text"`
	Certifications    []string  `json:"certifications" gorm:"serializer:json;type:text"`
	PreferredRoles    []string  `json:"preferredRoles" gorm:"serializer:json;type:text"`
	Languages         []string  `json:"languages" gorm:"serializer:json;type:text"`
	ProjectText       string    `json:"projectText"`
	Embedding         []float32 `json:"-" gorm:"serializer:json;type:text"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ScoredCandidate is a profile with its relevance to one query. Score is in [0, 1].
type ScoredCandidate struct {
	Profile CandidateProfile `json:"profile"`
	Score   float64          `json:"score"`
}
