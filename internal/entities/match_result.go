package entities

import "time"

type RequirementMatch struct {
	Requirement string          `json:"requirement"`
	Type        RequirementType `json:"type"`
	Matched     bool            `json:"matched"`
	Evidence    string          `json:"evidence"`
	IsRequired  bool            `json:"isRequired"`
	Priority    Priority        `json:"priority"`
}

type EvaluationKind string

const (
	EvaluationEvaluated      EvaluationKind = "evaluated"
	EvaluationFallback       EvaluationKind = "fallback"
	EvaluationSimilarityOnly EvaluationKind = "similarity_only"
)

// Evaluation is the judgment of one candidate against one vacancy. Every field is always set,
// including for the fallback variant.
type Evaluation struct {
	Kind                 EvaluationKind     `json:"kind"`
	OverallScore         int                `json:"overallScore"`
	MatchedRequirements  []string           `json:"matchedRequirements"`
	MissingRequirements  []string           `json:"missingRequirements"`
	Reasoning            string             `json:"reasoning"`
	RequirementBreakdown []RequirementMatch `json:"requirementBreakdown"`
}

type MatchResult struct {
	VacancyID            int                `json:"vacancyId" gorm:"column:assignment_id;primaryKey;autoIncrement:false"`
	CandidateID          int                `json:"candidateId" gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Score                float64            `json:"score" gorm:"column:score"`
	OverallScore         float64            `json:"overallScore" gorm:"column:overall_score;index"`
	MatchedRequirements  []string           `json:"matchedRequirements" gorm:"column:matched_requirements;serializer:json;type:text"`
	MissingRequirements  []string           `json:"missingRequirements" gorm:"column:missing_requirements;serializer:json;type:text"`
	Reasoning            string             `json:"reasoning" gorm:"column:reasoning;type:text"`
	RequirementBreakdown []RequirementMatch `json:"requirementBreakdown" gorm:"column:requirement_breakdown;serializer:json;type:text"`
	LastEvaluatedAt      time.Time          `json:"lastEvaluatedAt" gorm:"column:last_evaluated_at"`
	EvaluationVersion    int                `json:"evaluationVersion" gorm:"column:evaluation_version"`
}

func NewMatchResult(vacancyID int, candidate ScoredCandidate, evaluation Evaluation, version int) MatchResult {
	return MatchResult{
		VacancyID:            vacancyID,
		CandidateID:          candidate.Profile.ID,
		Score:                candidate.Score,
		OverallScore:         float64(evaluation.OverallScore),
		MatchedRequirements:  evaluation.MatchedRequirements,
		MissingRequirements:  evaluation.MissingRequirements,
		Reasoning:            evaluation.Reasoning,
		RequirementBreakdown: evaluation.RequirementBreakdown,
		LastEvaluatedAt:      time.Now().UTC(),
		EvaluationVersion:    version,
	}
}
