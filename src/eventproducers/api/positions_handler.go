package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"optionsedge/src/eventmodels"
)

func (s *ApiServer) handleListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.store.ListOpen(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	if positions == nil {
		positions = []eventmodels.Position{}
	}

	respondJSON(w, http.StatusOK, positions)
}

type thresholdRequestDTO struct {
	// nil clears the threshold
	Value *float64 `json:"value"`
}

func (s *ApiServer) updateThreshold(w http.ResponseWriter, r *http.Request, apply func(position *eventmodels.Position, value *float64)) {
	positionID := mux.Vars(r)["id"]

	var dto thresholdRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	position, err := s.store.Get(r.Context(), positionID)
	if err != nil {
		respondError(w, err)
		return
	}

	apply(position, dto.Value)

	if err := s.store.Save(r.Context(), position); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, position)
}

func (s *ApiServer) handleSetTakeProfit(w http.ResponseWriter, r *http.Request) {
	s.updateThreshold(w, r, func(position *eventmodels.Position, value *float64) {
		position.TakeProfit = value
	})
}

func (s *ApiServer) handleSetStopLoss(w http.ResponseWriter, r *http.Request) {
	s.updateThreshold(w, r, func(position *eventmodels.Position, value *float64) {
		position.StopLoss = value
	})
}

func (s *ApiServer) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	positionID := mux.Vars(r)["id"]

	if err := s.trades.ClosePosition(r.Context(), positionID, eventmodels.CloseReasonUserClose); err != nil {
		respondError(w, err)
		return
	}

	position, err := s.store.Get(r.Context(), positionID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, position)
}
