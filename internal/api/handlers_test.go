package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/maxaizer/vacancy-matcher/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) Refresh(ctx context.Context, vacancyID int) (*services.RefreshResult, error) {
	args := m.Called(ctx, vacancyID)
	result, _ := args.Get(0).(*services.RefreshResult)
	return result, args.Error(1)
}

type mockViewer struct {
	mock.Mock
}

func (m *mockViewer) Match(ctx context.Context, vacancyID int) (*services.MatchViewResult, error) {
	args := m.Called(ctx, vacancyID)
	result, _ := args.Get(0).(*services.MatchViewResult)
	return result, args.Error(1)
}

func (m *mockViewer) Search(ctx context.Context, text string) (*services.SearchResult, error) {
	args := m.Called(ctx, text)
	result, _ := args.Get(0).(*services.SearchResult)
	return result, args.Error(1)
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
}

func (m *mockResults) GetByVacancy(ctx context.Context, vacancyID int) ([]entities.MatchResult, error) {
	args := m.Called(ctx, vacancyID)
	results, _ := args.Get(0).([]entities.MatchResult)
	return results, args.Error(1)
}

type mockCandidates struct {
	mock.Mock
}

func (m *mockCandidates) GetByID(ctx context.Context, id int) (*entities.CandidateProfile, error) {
	args := m.Called(ctx, id)
	profile, _ := args.Get(0).(*entities.CandidateProfile)
	return profile, args.Error(1)
}

type testServices struct {
	refresher  *mockRefresher
	view       *mockViewer
	vacancies  *mockVacancies
	results    *mockResults
	candidates *mockCandidates
}

func newTestServices() *testServices {
	return &testServices{
		refresher:  &mockRefresher{},
		view:       &mockViewer{},
		vacancies:  &mockVacancies{},
		results:    &mockResults{},
		candidates: &mockCandidates{},
	}
}

func (s *testServices) serve(method, target string) *httptest.ResponseRecorder {
	router := SetupRoutes(Services{
		Refresher:  s.refresher,
		View:       s.view,
		Vacancies:  s.vacancies,
		Results:    s.results,
		Candidates: s.candidates,
	})
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func testVacancy() (*entities.Vacancy, []entities.Requirement) {
	vacancy := &entities.Vacancy{ID: 7, Title: "Senior Frontend Engineer", ClientName: "Acme"}
	requirements := []entities.Requirement{
		{ID: 1, VacancyID: 7, Type: entities.RequirementTechnology, Value: "React", IsRequired: true, Priority: entities.PriorityHigh},
	}
	return vacancy, requirements
}

func Test_Refresh_Accepted(t *testing.T) {
	s := newTestServices()
	eta := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	s.refresher.On("Refresh", mock.Anything, 7).
		Return(&services.RefreshResult{VacancyID: 7, EstimatedCompletionTime: eta}, nil)

	recorder := s.serve(http.MethodPost, "/vacancies/7/match/refresh")

	assert.Equal(t, http.StatusAccepted, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	body := decodeBody(t, recorder)
	assert.Equal(t, float64(7), body["vacancyId"])
	assert.Equal(t, "2026-03-01T12:00:30Z", body["estimatedCompletionTime"])
}

func Test_Refresh_Errors(t *testing.T) {
	cases := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"not a number", "/vacancies/abc/match/refresh", nil, http.StatusBadRequest},
		{"not positive", "/vacancies/0/match/refresh", nil, http.StatusBadRequest},
		{"unknown vacancy", "/vacancies/7/match/refresh", entities.ErrVacancyNotFound, http.StatusNotFound},
		{"queue down", "/vacancies/7/match/refresh",
			fmt.Errorf("%w: connection refused", entities.ErrQueueUnavailable), http.StatusInternalServerError},
		{"store failure", "/vacancies/7/match/refresh", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServices()
			s.refresher.On("Refresh", mock.Anything, 7).Return(nil, tc.err)

			recorder := s.serve(http.MethodPost, tc.target)

			assert.Equal(t, tc.status, recorder.Code)
			assert.NotEmpty(t, decodeBody(t, recorder)["error"])
		})
	}
}

func Test_Match_ReturnsRankedCandidates(t *testing.T) {
	s := newTestServices()
	vacancy, requirements := testVacancy()
	s.view.On("Match", mock.Anything, 7).Return(&services.MatchViewResult{
		Vacancy:      *vacancy,
		Requirements: requirements,
		Candidates: []entities.ScoredCandidate{
			{Profile: entities.CandidateProfile{ID: 1, Name: "Alice"}, Score: 0.82},
		},
		SearchQuery: "Senior Frontend Engineer React",
	}, nil)

	recorder := s.serve(http.MethodGet, "/vacancies/7/match")

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Contains(t, body, "vacancy")
	assert.Contains(t, body, "requirements")
	assert.Contains(t, body, "candidates")
	assert.Equal(t, "Senior Frontend Engineer React", body["searchQuery"])
	assert.Len(t, body["candidates"], 1)
}

func Test_Match_Errors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"search unavailable": {fmt.Errorf("%w: search is not configured", entities.ErrServiceUnavailable), http.StatusServiceUnavailable},
		"unknown vacancy":    {entities.ErrVacancyNotFound, http.StatusNotFound},
		"unexpected":         {errors.New("boom"), http.StatusInternalServerError},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestServices()
			s.view.On("Match", mock.Anything, 7).Return(nil, tc.err)

			recorder := s.serve(http.MethodGet, "/vacancies/7/match")

			assert.Equal(t, tc.status, recorder.Code)
		})
	}

	s := newTestServices()
	assert.Equal(t, http.StatusBadRequest, s.serve(http.MethodGet, "/vacancies/-3/match").Code)
	s.view.AssertNotCalled(t, "Match", mock.Anything, mock.Anything)
}

func Test_Results(t *testing.T) {
	s := newTestServices()
	vacancy, requirements := testVacancy()
	s.vacancies.On("GetWithRequirements", mock.Anything, 7).Return(vacancy, requirements, nil)
	s.results.On("GetByVacancy", mock.Anything, 7).Return([]entities.MatchResult{
		{VacancyID: 7, CandidateID: 1, Score: 0.82, OverallScore: 84},
	}, nil)

	recorder := s.serve(http.MethodGet, "/vacancies/7/match/results")

	require.Equal(t, http.StatusOK, recorder.Code)
	var results []entities.MatchResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, float64(84), results[0].OverallScore)
}

func Test_Results_EmptyIsArray(t *testing.T) {
	s := newTestServices()
	vacancy, requirements := testVacancy()
	s.vacancies.On("GetWithRequirements", mock.Anything, 7).Return(vacancy, requirements, nil)
	s.results.On("GetByVacancy", mock.Anything, 7).Return(nil, nil)

	recorder := s.serve(http.MethodGet, "/vacancies/7/match/results")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, "[]", recorder.Body.String())
}

func Test_Results_UnknownVacancy(t *testing.T) {
	s := newTestServices()
	s.vacancies.On("GetWithRequirements", mock.Anything, 9).Return(nil, nil, entities.ErrVacancyNotFound)

	recorder := s.serve(http.MethodGet, "/vacancies/9/match/results")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	s.results.AssertNotCalled(t, "GetByVacancy", mock.Anything, mock.Anything)
}

func Test_Export_WritesWorkbook(t *testing.T) {
	s := newTestServices()
	vacancy, requirements := testVacancy()
	s.vacancies.On("GetWithRequirements", mock.Anything, 7).Return(vacancy, requirements, nil)
	s.results.On("GetByVacancy", mock.Anything, 7).Return([]entities.MatchResult{
		{VacancyID: 7, CandidateID: 1, Score: 0.82, OverallScore: 84, Reasoning: "Strong React background"},
		{VacancyID: 7, CandidateID: 2, Score: 0.41, OverallScore: 18},
	}, nil)
	s.candidates.On("GetByID", mock.Anything, 1).Return(&entities.CandidateProfile{ID: 1, Name: "Alice"}, nil)
	s.candidates.On("GetByID", mock.Anything, 2).Return(nil, errors.New("index offline"))

	recorder := s.serve(http.MethodGet, "/vacancies/7/match/results/export")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, xlsxContentType, recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "vacancy-7-matches.xlsx")

	workbook, err := excelize.OpenReader(bytes.NewReader(recorder.Body.Bytes()))
	require.NoError(t, err)
	defer workbook.Close()
	assert.Contains(t, workbook.GetSheetList(), "Candidates")
}

func Test_Search(t *testing.T) {
	s := newTestServices()
	s.view.On("Search", mock.Anything, "react developer").Return(&services.SearchResult{
		Query:      "react developer",
		Candidates: []entities.ScoredCandidate{{Profile: entities.CandidateProfile{ID: 1, Name: "Alice"}, Score: 0.7}},
	}, nil)

	recorder := s.serve(http.MethodGet, "/candidates/search?q=react+developer")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "react developer", decodeBody(t, recorder)["query"])
}

func Test_Search_Errors(t *testing.T) {
	s := newTestServices()
	assert.Equal(t, http.StatusBadRequest, s.serve(http.MethodGet, "/candidates/search?q=+").Code)

	s.view.On("Search", mock.Anything, "go").Return(nil, entities.ErrServiceUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, s.serve(http.MethodGet, "/candidates/search?q=go").Code)
}

func Test_Health(t *testing.T) {
	recorder := newTestServices().serve(http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ok", decodeBody(t, recorder)["status"])
}

func Test_RecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("unexpected")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
