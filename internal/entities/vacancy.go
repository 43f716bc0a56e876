package entities

import (
	"fmt"
	"time"
)

type RequirementType string

const (
	RequirementTechnology    RequirementType = "Technology"
	RequirementRole          RequirementType = "Role"
	RequirementExperience    RequirementType = "Experience"
	RequirementLanguage      RequirementType = "Language"
	RequirementCertification RequirementType = "Certification"
	RequirementSoftSkill     RequirementType = "Soft Skill"
)

func ToRequirementType(s string) (RequirementType, error) {
	switch RequirementType(s) {
	case RequirementTechnology, RequirementRole, RequirementExperience,
		RequirementLanguage, RequirementCertification, RequirementSoftSkill:
		return RequirementType(s), nil
	default:
		return "", fmt.Errorf("invalid requirement type %q", s)
	}
}

type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return "Unknown"
	}
}

type Vacancy struct {
	ID          int        `json:"id"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	ClientName  string     `json:"clientName"`
	Location    string     `json:"location"`
	Duration    string     `json:"duration"`
	Remote      bool       `json:"remote"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	Budget      string     `json:"budget"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type Requirement struct {
	ID         int             `json:"id"`
	VacancyID  int             `json:"vacancyId" gorm:"index"`
	Type       RequirementType `json:"type"`
	Value      string          `json:"value" validate:"required"`
	IsRequired bool            `json:"isRequired"`
	Priority   Priority        `json:"priority" validate:"gte=1,lte=3"`
}
