package api

import (
	"context"
	"encoding/json"
	"net/http"
)

type startAnalysisRequestDTO struct {
	Targets []string `json:"targets"`
}

func (s *ApiServer) handleStartAnalysis(w http.ResponseWriter, r *http.Request) {
	var dto startAnalysisRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(dto.Targets) == 0 {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "targets must not be empty"})
		return
	}

	// the job must outlive this request; it is not tied to the request context
	if err := s.analysis.StartJob(context.Background(), dto.Targets); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, s.analysis.Snapshot())
}

func (s *ApiServer) handleAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.analysis.Snapshot())
}
