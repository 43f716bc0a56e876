package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/maxaizer/vacancy-matcher/internal/logger"
	log "github.com/sirupsen/logrus"
)

type MatchViewResult struct {
	Vacancy      entities.Vacancy           `json:"vacancy"`
	Requirements []entities.Requirement     `json:"requirements"`
	Candidates   []entities.ScoredCandidate `json:"candidates"`
	SearchQuery  string                     `json:"searchQuery"`
}

type SearchResult struct {
	Query      string                     `json:"query"`
	Candidates []entities.ScoredCandidate `json:"candidates"`
}

// MatchView is the interactive read path: it ranks candidates live, without
// evaluation and without touching the stored match results.
type MatchView struct {
	vacancies  vacancyLoader
	embedder   Embedder
	retriever  CandidateRetriever
	topK       int
	searchTopK int
}

func NewMatchView(vacancies vacancyLoader, embedder Embedder, retriever CandidateRetriever,
	topK int, searchTopK int) *MatchView {
	return &MatchView{
		vacancies:  vacancies,
		embedder:   embedder,
		retriever:  retriever,
		topK:       topK,
		searchTopK: searchTopK,
	}
}

func (m *MatchView) Match(ctx context.Context, vacancyID int) (*MatchViewResult, error) {

	if !m.configured() {
		return nil, fmt.Errorf("%w: search is not configured", entities.ErrServiceUnavailable)
	}

	vacancy, requirements, err := m.vacancies.GetWithRequirements(ctx, vacancyID)
	if err != nil {
		return nil, err
	}

	query := BuildSearchQuery(*vacancy, requirements)
	candidates, err := m.rank(ctx, query, m.topK)
	if err != nil {
		return nil, err
	}

	if requirements == nil {
		requirements = []entities.Requirement{}
	}
	return &MatchViewResult{
		Vacancy:      *vacancy,
		Requirements: requirements,
		Candidates:   candidates,
		SearchQuery:  query,
	}, nil
}

// Search ranks candidates for free text such as a recruiter's chat question.
func (m *MatchView) Search(ctx context.Context, text string) (*SearchResult, error) {

	if !m.configured() {
		return nil, fmt.Errorf("%w: search is not configured", entities.ErrServiceUnavailable)
	}

	query := strings.TrimSpace(text)
	candidates, err := m.rank(ctx, query, m.searchTopK)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Query: query, Candidates: candidates}, nil
}

func (m *MatchView) rank(ctx context.Context, query string, topK int) ([]entities.ScoredCandidate, error) {

	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeEmbedding).Errorf("failed to embed query: %v", err)
		return nil, fmt.Errorf("%w: embedding: %v", entities.ErrServiceUnavailable, err)
	}

	candidates, err := m.retriever.Search(ctx, vector, query, topK)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeSearch).Errorf("failed to search candidates: %v", err)
		return nil, fmt.Errorf("%w: search: %v", entities.ErrServiceUnavailable, err)
	}
	if candidates == nil {
		candidates = []entities.ScoredCandidate{}
	}
	return candidates, nil
}

func (m *MatchView) configured() bool {
	return m.embedder != nil && m.retriever != nil
}
