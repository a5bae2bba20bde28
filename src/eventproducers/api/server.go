// Package api exposes the HTTP and websocket surface of the trading
// assistant. All position and analysis routes sit behind bearer session
// authentication.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"optionsedge/src/eventmodels"
	"optionsedge/src/eventpubsub"
	"optionsedge/src/eventservices"
	"optionsedge/src/store"
)

type ApiServer struct {
	auth     *eventservices.AuthService
	store    store.PositionStore
	trades   *eventservices.TradeService
	analysis *eventservices.AnalysisJobService
	hub      *eventpubsub.Hub
	cfg      eventmodels.RiskConfig
}

func NewApiServer(auth *eventservices.AuthService, positionStore store.PositionStore, trades *eventservices.TradeService, analysis *eventservices.AnalysisJobService, hub *eventpubsub.Hub, cfg eventmodels.RiskConfig) *ApiServer {
	return &ApiServer{
		auth:     auth,
		store:    positionStore,
		trades:   trades,
		analysis: analysis,
		hub:      hub,
		cfg:      cfg,
	}
}

func (s *ApiServer) SetupHandler(router *mux.Router) {
	router.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/api/mfa/check", s.handleMfaCheck).Methods(http.MethodPost)
	router.HandleFunc("/api/logout", s.requireSession(s.handleLogout)).Methods(http.MethodPost)
	router.HandleFunc("/api/session", s.requireSession(s.handleSession)).Methods(http.MethodGet)

	router.HandleFunc("/api/positions", s.requireSession(s.handleListPositions)).Methods(http.MethodGet)
	router.HandleFunc("/api/positions/{id}/take-profit", s.requireSession(s.handleSetTakeProfit)).Methods(http.MethodPut)
	router.HandleFunc("/api/positions/{id}/stop-loss", s.requireSession(s.handleSetStopLoss)).Methods(http.MethodPut)
	router.HandleFunc("/api/positions/{id}/close", s.requireSession(s.handleClosePosition)).Methods(http.MethodPost)

	router.HandleFunc("/api/analysis/start", s.requireSession(s.handleStartAnalysis)).Methods(http.MethodPost)
	router.HandleFunc("/api/analysis/status", s.requireSession(s.handleAnalysisStatus)).Methods(http.MethodGet)

	router.HandleFunc("/api/trades/export", s.requireSession(s.handleExportTrades)).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", s.requireSession(s.handleStats)).Methods(http.MethodGet)

	router.HandleFunc("/ws", s.handleWebsocket).Methods(http.MethodGet)
}

// bearerToken pulls the session token from the Authorization header, falling
// back to the token query parameter for websocket clients.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

func (s *ApiServer) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.Validate(bearerToken(r)); err != nil {
			respondError(w, err)
			return
		}

		next(w, r)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("respondJSON: failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, eventmodels.ErrAuthentication), errors.Is(err, eventmodels.ErrSessionExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, eventmodels.ErrChallengeNotFound), errors.Is(err, eventmodels.ErrPositionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, eventmodels.ErrChallengeExpired):
		status = http.StatusRequestTimeout
	case errors.Is(err, eventmodels.ErrPositionAlreadyClosed), errors.Is(err, eventmodels.ErrJobAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, eventmodels.ErrOrderRejected):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, eventmodels.ErrBrokerageUnavailable):
		status = http.StatusBadGateway
	}

	respondJSON(w, status, map[string]string{"error": err.Error()})
}
