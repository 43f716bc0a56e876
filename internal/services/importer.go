package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/maxaizer/vacancy-matcher/internal/entities"
	log "github.com/sirupsen/logrus"
)

type vacancyWriter interface {
	Add(ctx context.Context, vacancy *entities.Vacancy, requirements []entities.Requirement) error
}

type candidateWriter interface {
	Upsert(ctx context.Context, profile entities.CandidateProfile) error
}

// SeedData is the JSON document accepted by the import command.
type SeedData struct {
	Vacancies  []SeedVacancy               `json:"vacancies" validate:"dive"`
	Candidates []entities.CandidateProfile `json:"candidates"`
}

type SeedVacancy struct {
	Vacancy      entities.Vacancy       `json:"vacancy"`
	Requirements []entities.Requirement `json:"requirements" validate:"dive"`
}

type ImportReport struct {
	Vacancies  int
	Candidates int
	Skipped    int
}

// Importer loads vacancies and candidate profiles into the store. Candidate profiles are
// embedded on the way in so they become searchable.
type Importer struct {
	vacancies  vacancyWriter
	candidates candidateWriter
	embedder   Embedder
	validate   *validator.Validate
}

func NewImporter(vacancies vacancyWriter, candidates candidateWriter, embedder Embedder) *Importer {
	return &Importer{
		vacancies:  vacancies,
		candidates: candidates,
		embedder:   embedder,
		validate:   validator.New(),
	}
}

func ReadSeedData(r io.Reader) (*SeedData, error) {
	var seed SeedData
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to decode seed data: %w", err)
	}
	return &seed, nil
}

func (i *Importer) Import(ctx context.Context, seed *SeedData) (*ImportReport, error) {

	trimSeed(seed)

	if err := i.validate.Struct(seed); err != nil {
		return nil, fmt.Errorf("invalid seed data: %w", err)
	}

	for _, item := range seed.Vacancies {
		if err := validateRequirementTypes(item.Requirements); err != nil {
			return nil, fmt.Errorf("vacancy %q: %w", item.Vacancy.Title, err)
		}
	}

	if len(seed.Candidates) > 0 && i.embedder == nil {
		return nil, fmt.Errorf("%w: embedding is not configured", entities.ErrServiceUnavailable)
	}

	report := &ImportReport{}

	for _, item := range seed.Vacancies {
		vacancy := item.Vacancy
		if err := i.vacancies.Add(ctx, &vacancy, item.Requirements); err != nil {
			return report, fmt.Errorf("failed to add vacancy %q: %w", vacancy.Title, err)
		}
		log.Infof("imported vacancy %d %q with %d requirements", vacancy.ID, vacancy.Title, len(item.Requirements))
		report.Vacancies++
	}

	for _, profile := range seed.Candidates {
		if strings.TrimSpace(profile.Name) == "" {
			log.Warnf("skipping candidate %d without a name", profile.ID)
			report.Skipped++
			continue
		}

		vector, err := i.embedder.Embed(ctx, ProfileText(profile))
		if err != nil {
			return report, fmt.Errorf("failed to embed candidate %q: %w", profile.Name, err)
		}
		profile.Embedding = vector

		if err = i.candidates.Upsert(ctx, profile); err != nil {
			return report, fmt.Errorf("failed to store candidate %q: %w", profile.Name, err)
		}
		report.Candidates++
	}

	return report, nil
}

func trimSeed(seed *SeedData) {
	for i := range seed.Vacancies {
		item := &seed.Vacancies[i]
		item.Vacancy.Title = strings.TrimSpace(item.Vacancy.Title)
		for j := range item.Requirements {
			item.Requirements[j].Value = strings.TrimSpace(item.Requirements[j].Value)
		}
	}
}

func validateRequirementTypes(requirements []entities.Requirement) error {
	for _, requirement := range requirements {
		if _, err := entities.ToRequirementType(string(requirement.Type)); err != nil {
			return err
		}
	}
	return nil
}

// ProfileText is the text a candidate profile is embedded from.
func ProfileText(profile entities.CandidateProfile) string {
	var sb strings.Builder

	write := func(label string, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	write("Seniority", profile.Seniority)
	write("Summary", profile.Summary)
	write("Skills", strings.Join(profile.Skills, ", "))
	write("Tools", strings.Join(profile.Tools, ", "))
	write("Certifications", strings.Join(profile.Certifications, ", "))
	write("Preferred roles", strings.Join(profile.PreferredRoles, ", "))
	write("Languages", strings.Join(profile.Languages, ", "))
	write("Projects", profile.ProjectText)

	return strings.TrimSpace(sb.String())
}
