package services

import (
	"context"
	"sync"
	"time"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/stretchr/testify/mock"
)

type mockAiClient struct {
	mock.Mock
}

func (m *mockAiClient) GenerateResponse(ctx context.Context, request string) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	vector, _ := args.Get(0).([]float32)
	return vector, args.Error(1)
}

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Search(ctx context.Context, vector []float32, keywordText string,
	topK int) ([]entities.ScoredCandidate, error) {
	args := m.Called(ctx, vector, keywordText, topK)
	candidates, _ := args.Get(0).([]entities.ScoredCandidate)
	return candidates, args.Error(1)
}

type mockVacancies struct {
	mock.Mock
}

func (m *mockVacancies) GetWithRequirements(ctx context.Context, id int) (*entities.Vacancy, []entities.Requirement, error) {
	args := m.Called(ctx, id)
	vacancy, _ := args.Get(0).(*entities.Vacancy)
	requirements, _ := args.Get(1).([]entities.Requirement)
	return vacancy, requirements, args.Error(2)
}

type mockResults struct {
	mock.Mock
	mu       sync.Mutex
	inserted []entities.MatchResult
}

func (m *mockResults) DeleteByVacancy(ctx context.Context, vacancyID int) (int64, error) {
	args := m.Called(ctx, vacancyID)
	return int64(args.Int(0)), args.Error(1)
}

func (m *mockResults) Insert(ctx context.Context, result entities.MatchResult) error {
	err := m.Called(ctx, result).Error(0)
	if err == nil {
		m.mu.Lock()
		m.inserted = append(m.inserted, result)
		m.mu.Unlock()
	}
	return err
}

type recordingNotifier struct {
	mu         sync.Mutex
	activities []entities.Activity
}

func (r *recordingNotifier) Record(activity entities.Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities = append(r.activities, activity)
}

func (r *recordingNotifier) recorded() []entities.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.Activity(nil), r.activities...)
}

type mockJobQueue struct {
	mock.Mock
}

func (m *mockJobQueue) Enqueue(ctx context.Context, body string, maxAttempts int) (int64, error) {
	args := m.Called(ctx, body, maxAttempts)
	return int64(args.Int(0)), args.Error(1)
}

type mockMaintenanceRepository struct {
	mock.Mock
}

func (m *mockMaintenanceRepository) GetOutdatedVacancyIDs(ctx context.Context, currentVersion int) ([]int, error) {
	args := m.Called(ctx, currentVersion)
	ids, _ := args.Get(0).([]int)
	return ids, args.Error(1)
}

func (m *mockMaintenanceRepository) RemoveFinished(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return int64(args.Int(0)), args.Error(1)
}

func scenarioVacancy() (*entities.Vacancy, []entities.Requirement) {
	vacancy := &entities.Vacancy{ID: 7, Title: "Frontend developer", Description: "Dashboards", ClientName: "Acme"}
	requirements := []entities.Requirement{
		{ID: 1, VacancyID: 7, Type: entities.RequirementTechnology, Value: "React", IsRequired: true, Priority: entities.PriorityHigh},
		{ID: 2, VacancyID: 7, Type: entities.RequirementExperience, Value: "5+ years", IsRequired: true, Priority: entities.PriorityHigh},
		{ID: 3, VacancyID: 7, Type: entities.RequirementTechnology, Value: "AWS", IsRequired: false, Priority: entities.PriorityLow},
	}
	return vacancy, requirements
}

func candidate(id int, name string, score float64, skills ...string) entities.ScoredCandidate {
	return entities.ScoredCandidate{
		Profile: entities.CandidateProfile{ID: id, Name: name, Skills: skills},
		Score:   score,
	}
}
