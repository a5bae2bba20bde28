package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"optionsedge/src/eventmodels"
)

type loginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponseDTO struct {
	Token       string `json:"token,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	MFARequired bool   `json:"mfa_required"`
	ChallengeID string `json:"challenge_id,omitempty"`
}

func (s *ApiServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var dto loginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	outcome, err := s.auth.Login(r.Context(), eventmodels.Credentials{
		Username: dto.Username,
		Password: dto.Password,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	if outcome.ChallengeID != nil {
		respondJSON(w, http.StatusAccepted, loginResponseDTO{
			MFARequired: true,
			ChallengeID: outcome.ChallengeID.String(),
		})
		return
	}

	respondJSON(w, http.StatusOK, loginResponseDTO{
		Token:     outcome.Session.Token,
		ExpiresAt: outcome.Session.ExpiresAt.Format(time.RFC3339),
	})
}

type mfaCheckRequestDTO struct {
	ChallengeID string `json:"challenge_id"`
}

type mfaCheckResponseDTO struct {
	Pending   bool   `json:"pending"`
	Token     string `json:"token,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func (s *ApiServer) handleMfaCheck(w http.ResponseWriter, r *http.Request) {
	var dto mfaCheckRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	challengeID, err := uuid.Parse(dto.ChallengeID)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid challenge id: %v", err)})
		return
	}

	outcome, err := s.auth.CheckChallenge(r.Context(), challengeID)
	if err != nil {
		respondError(w, err)
		return
	}

	if outcome.Pending {
		respondJSON(w, http.StatusAccepted, mfaCheckResponseDTO{Pending: true})
		return
	}

	respondJSON(w, http.StatusOK, mfaCheckResponseDTO{
		Token:     outcome.Session.Token,
		ExpiresAt: outcome.Session.ExpiresAt.Format(time.RFC3339),
	})
}

func (s *ApiServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(bearerToken(r))

	respondJSON(w, http.StatusOK, map[string]bool{"logged_out": true})
}

type sessionResponseDTO struct {
	Identity               string `json:"identity"`
	BrokerageAuthenticated bool   `json:"brokerage_authenticated"`
}

func (s *ApiServer) handleSession(w http.ResponseWriter, r *http.Request) {
	identity, err := s.auth.Validate(bearerToken(r))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionResponseDTO{
		Identity:               identity,
		BrokerageAuthenticated: true,
	})
}
