package services

import (
	"strings"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
)

// BuildSearchQuery renders a vacancy and its requirements into the text used both
// for embedding and as the informational search query returned to callers.
// Requirements are grouped by type in first-seen order; empty fields are omitted.
func BuildSearchQuery(vacancy entities.Vacancy, requirements []entities.Requirement) string {

	var lines []string

	if title := strings.TrimSpace(vacancy.Title); title != "" {
		lines = append(lines, "Job Title: "+title)
	}
	if description := strings.TrimSpace(vacancy.Description); description != "" {
		lines = append(lines, "Description: "+description)
	}
	if client := strings.TrimSpace(vacancy.ClientName); client != "" {
		lines = append(lines, "Client: "+client)
	}

	var typeOrder []entities.RequirementType
	values := make(map[entities.RequirementType][]string)

	for _, requirement := range requirements {
		value := strings.TrimSpace(requirement.Value)
		if value == "" {
			continue
		}
		if _, seen := values[requirement.Type]; !seen {
			typeOrder = append(typeOrder, requirement.Type)
		}
		values[requirement.Type] = append(values[requirement.Type], value)
	}

	for _, requirementType := range typeOrder {
		lines = append(lines, string(requirementType)+": "+strings.Join(values[requirementType], ", "))
	}

	return strings.Join(lines, "\n")
}
