package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/maxaizer/vacancy-matcher/internal/export"
	"github.com/maxaizer/vacancy-matcher/internal/services"
	log "github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type matchRefresher interface {
	Refresh(ctx context.Context, vacancyID int) (*services.RefreshResult, error)
}

type matchViewer interface {
	Match(ctx context.Context, vacancyID int) (*services.MatchViewResult, error)
	Search(ctx context.Context, text string) (*services.SearchResult, error)
}

type vacancyReader interface {
	GetWithRequirements(ctx context.Context, id int) (*entities.Vacancy, []entities.Requirement, error)
}

type resultReader interface {
	GetByVacancy(ctx context.Context, vacancyID int) ([]entities.MatchResult, error)
}

type candidateReader interface {
	GetByID(ctx context.Context, id int) (*entities.CandidateProfile, error)
}

// Services are the collaborators behind the HTTP surface.
type Services struct {
	Refresher  matchRefresher
	View       matchViewer
	Vacancies  vacancyReader
	Results    resultReader
	Candidates candidateReader
}

type MatchHandler struct {
	deps Services
}

func NewMatchHandler(deps Services) *MatchHandler {
	return &MatchHandler{deps: deps}
}

// Refresh schedules an asynchronous matching run and answers 202 right away.
func (h *MatchHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	vacancyID, ok := vacancyIDFromPath(w, r)
	if !ok {
		return
	}

	result, err := h.deps.Refresher.Refresh(r.Context(), vacancyID)
	if err != nil {
		switch {
		case errors.Is(err, entities.ErrVacancyNotFound):
			writeError(w, http.StatusNotFound, "vacancy not found")
		case errors.Is(err, entities.ErrQueueUnavailable):
			log.Errorf("failed to schedule matching for vacancy %d: %v", vacancyID, err)
			writeError(w, http.StatusInternalServerError, "failed to schedule candidate matching")
		default:
			log.Errorf("failed to refresh matching for vacancy %d: %v", vacancyID, err)
			writeError(w, http.StatusInternalServerError, "failed to refresh candidate matching")
		}
		return
	}

	writeJSON(w, result, http.StatusAccepted)
}

// Match ranks candidates for a vacancy live, without evaluation.
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	vacancyID, ok := vacancyIDFromPath(w, r)
	if !ok {
		return
	}

	result, err := h.deps.View.Match(r.Context(), vacancyID)
	if err != nil {
		switch {
		case errors.Is(err, entities.ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "candidate search is unavailable")
		case errors.Is(err, entities.ErrVacancyNotFound):
			writeError(w, http.StatusNotFound, "vacancy not found")
		default:
			log.Errorf("failed to match vacancy %d: %v", vacancyID, err)
			writeError(w, http.StatusInternalServerError, "failed to match candidates")
		}
		return
	}

	writeJSON(w, result, http.StatusOK)
}

func (h *MatchHandler) Results(w http.ResponseWriter, r *http.Request) {
	vacancyID, ok := vacancyIDFromPath(w, r)
	if !ok {
		return
	}

	if _, _, err := h.deps.Vacancies.GetWithRequirements(r.Context(), vacancyID); err != nil {
		h.writeVacancyError(w, vacancyID, err)
		return
	}

	results, err := h.deps.Results.GetByVacancy(r.Context(), vacancyID)
	if err != nil {
		log.Errorf("failed to load match results of vacancy %d: %v", vacancyID, err)
		writeError(w, http.StatusInternalServerError, "failed to load match results")
		return
	}
	if results == nil {
		results = []entities.MatchResult{}
	}

	writeJSON(w, results, http.StatusOK)
}

// Export streams the persisted results of a vacancy as an XLSX workbook.
func (h *MatchHandler) Export(w http.ResponseWriter, r *http.Request) {
	vacancyID, ok := vacancyIDFromPath(w, r)
	if !ok {
		return
	}

	vacancy, requirements, err := h.deps.Vacancies.GetWithRequirements(r.Context(), vacancyID)
	if err != nil {
		h.writeVacancyError(w, vacancyID, err)
		return
	}

	results, err := h.deps.Results.GetByVacancy(r.Context(), vacancyID)
	if err != nil {
		log.Errorf("failed to load match results of vacancy %d: %v", vacancyID, err)
		writeError(w, http.StatusInternalServerError, "failed to load match results")
		return
	}

	report := export.MatchReport{
		Vacancy:        *vacancy,
		Requirements:   requirements,
		Results:        results,
		CandidateNames: h.candidateNames(r.Context(), results),
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="vacancy-%d-matches.xlsx"`, vacancyID))
	if err = export.WriteMatchReport(w, report); err != nil {
		log.Errorf("failed to write match report of vacancy %d: %v", vacancyID, err)
	}
}

// Search ranks candidates for free text passed in the q parameter.
func (h *MatchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	result, err := h.deps.View.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, entities.ErrServiceUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "candidate search is unavailable")
			return
		}
		log.Errorf("failed to search candidates: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to search candidates")
		return
	}

	writeJSON(w, result, http.StatusOK)
}

func (h *MatchHandler) writeVacancyError(w http.ResponseWriter, vacancyID int, err error) {
	if errors.Is(err, entities.ErrVacancyNotFound) {
		writeError(w, http.StatusNotFound, "vacancy not found")
		return
	}
	log.Errorf("failed to load vacancy %d: %v", vacancyID, err)
	writeError(w, http.StatusInternalServerError, "failed to load vacancy")
}

func (h *MatchHandler) candidateNames(ctx context.Context, results []entities.MatchResult) map[int]string {
	names := make(map[int]string, len(results))
	if h.deps.Candidates == nil {
		return names
	}
	for _, result := range results {
		profile, err := h.deps.Candidates.GetByID(ctx, result.CandidateID)
		if err != nil {
			log.Warnf("failed to load candidate %d: %v", result.CandidateID, err)
			continue
		}
		if profile != nil {
			names[result.CandidateID] = profile.Name
		}
	}
	return names
}

func vacancyIDFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "vacancy id must be a positive integer")
		return 0, false
	}
	return id, true
}
