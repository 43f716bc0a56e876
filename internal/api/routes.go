package api

import (
	"github.com/gorilla/mux"
)

func SetupRoutes(deps Services) *mux.Router {
	r := mux.NewRouter()

	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	systemHandler := &SystemHandler{}
	matchHandler := NewMatchHandler(deps)

	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	vacancies := r.PathPrefix("/vacancies/{id}").Subrouter()
	vacancies.HandleFunc("/match", matchHandler.Match).Methods("GET")
	vacancies.HandleFunc("/match/refresh", matchHandler.Refresh).Methods("POST")
	vacancies.HandleFunc("/match/results", matchHandler.Results).Methods("GET")
	vacancies.HandleFunc("/match/results/export", matchHandler.Export).Methods("GET")

	r.HandleFunc("/candidates/search", matchHandler.Search).Methods("GET")

	return r
}
