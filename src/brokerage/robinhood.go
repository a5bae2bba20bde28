package brokerage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"optionsedge/src/eventmodels"
)

// RobinhoodClient talks to the brokerage bridge over HTTP. Transport
// failures map to ErrBrokerageUnavailable so the monitor degrades to
// "no exits this cycle" instead of surfacing per-position errors.
type RobinhoodClient struct {
	baseURL     string
	bearerToken string
	client      http.Client
}

func NewRobinhoodClient(baseURL, bearerToken string) *RobinhoodClient {
	return &RobinhoodClient{
		baseURL:     baseURL,
		bearerToken: bearerToken,
		client: http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *RobinhoodClient) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("RobinhoodClient:doJSON(): failed to marshal request body: %w", err)
		}

		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", c.baseURL, path), reqBody)
	if err != nil {
		return 0, fmt.Errorf("RobinhoodClient:doJSON(): failed to create request: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.bearerToken))

	log.Debugf("brokerage request: %s %s", method, req.URL.String())

	res, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("RobinhoodClient:doJSON(): %w: %v", eventmodels.ErrBrokerageUnavailable, err)
	}

	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, fmt.Errorf("RobinhoodClient:doJSON(): failed to read response body: %w", err)
	}

	if res.StatusCode >= 500 {
		return res.StatusCode, fmt.Errorf("RobinhoodClient:doJSON(): %w: %s", eventmodels.ErrBrokerageUnavailable, res.Status)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return res.StatusCode, fmt.Errorf("RobinhoodClient:doJSON(): failed to parse response body: %w", err)
		}
	}

	return res.StatusCode, nil
}

type loginResponseDTO struct {
	Authenticated bool   `json:"authenticated"`
	MFARequired   bool   `json:"mfa_required"`
	Identity      string `json:"identity"`
}

func (c *RobinhoodClient) Login(ctx context.Context, creds eventmodels.Credentials) (*eventmodels.LoginResult, error) {
	var dto loginResponseDTO

	status, err := c.doJSON(ctx, http.MethodPost, "/v1/login", creds, &dto)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, fmt.Errorf("RobinhoodClient:Login(): %w", eventmodels.ErrAuthentication)
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("RobinhoodClient:Login(): unexpected status %d", status)
	}

	return &eventmodels.LoginResult{
		Authenticated: dto.Authenticated,
		MFARequired:   dto.MFARequired,
		Identity:      dto.Identity,
	}, nil
}

type mfaPollResponseDTO struct {
	Status string `json:"status"`
}

func (c *RobinhoodClient) PollMfa(ctx context.Context, req *eventmodels.MfaPollRequest) (eventmodels.MfaPollStatus, error) {
	body := map[string]interface{}{
		"challenge_id":  req.ChallengeID.String(),
		"username":      req.Credentials.Username,
		"password":      req.Credentials.Password,
		"attempt_login": req.AttemptLogin,
	}

	var dto mfaPollResponseDTO

	status, err := c.doJSON(ctx, http.MethodPost, "/v1/mfa/poll", body, &dto)
	if err != nil {
		return "", err
	}

	if status != http.StatusOK {
		return "", fmt.Errorf("RobinhoodClient:PollMfa(): unexpected status %d", status)
	}

	switch dto.Status {
	case "approved":
		return eventmodels.MfaPollApproved, nil
	case "denied":
		return eventmodels.MfaPollDenied, nil
	default:
		return eventmodels.MfaPollPending, nil
	}
}

type positionSnapshotDTO struct {
	OptionID   string  `json:"option_id"`
	Ticker     string  `json:"ticker"`
	Strike     float64 `json:"strike"`
	Expiration string  `json:"expiration"`
	Right      string  `json:"right"`
	Quantity   int     `json:"quantity"`
	EntryPrice float64 `json:"entry_price"`
	PnlPercent float64 `json:"pnl_percent"`
}

func (c *RobinhoodClient) ListOpenPositions(ctx context.Context, identity string) ([]eventmodels.PositionSnapshot, error) {
	var dtos []positionSnapshotDTO

	path := fmt.Sprintf("/v1/positions?identity=%s", url.QueryEscape(identity))

	status, err := c.doJSON(ctx, http.MethodGet, path, nil, &dtos)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("RobinhoodClient:ListOpenPositions(): unexpected status %d", status)
	}

	snapshots := make([]eventmodels.PositionSnapshot, 0, len(dtos))
	for _, dto := range dtos {
		snapshots = append(snapshots, eventmodels.PositionSnapshot{
			OptionID: dto.OptionID,
			Ticker:   dto.Ticker,
			Contract: eventmodels.OptionContract{
				Strike:     dto.Strike,
				Expiration: dto.Expiration,
				Right:      eventmodels.OptionRight(dto.Right),
			},
			Quantity:   dto.Quantity,
			EntryPrice: dto.EntryPrice,
			PnlPercent: dto.PnlPercent,
		})
	}

	return snapshots, nil
}

type pnlResponseDTO struct {
	PnlPercent float64 `json:"pnl_percent"`
}

func (c *RobinhoodClient) GetPnL(ctx context.Context, positionID string) (float64, error) {
	var dto pnlResponseDTO

	path := fmt.Sprintf("/v1/positions/%s/pnl", url.PathEscape(positionID))

	status, err := c.doJSON(ctx, http.MethodGet, path, nil, &dto)
	if err != nil {
		return 0, err
	}

	if status == http.StatusNotFound {
		return 0, fmt.Errorf("RobinhoodClient:GetPnL(): %w", eventmodels.ErrPositionNotFound)
	}

	if status != http.StatusOK {
		return 0, fmt.Errorf("RobinhoodClient:GetPnL(): unexpected status %d", status)
	}

	return dto.PnlPercent, nil
}

type orderResponseDTO struct {
	OrderID   string  `json:"order_id"`
	Status    string  `json:"status"`
	FillPrice float64 `json:"fill_price"`
}

func (c *RobinhoodClient) PlaceExitOrder(ctx context.Context, positionID string) (*eventmodels.OrderResult, error) {
	body := map[string]interface{}{
		"position_id":     positionID,
		"position_effect": "close",
	}

	var dto orderResponseDTO

	status, err := c.doJSON(ctx, http.MethodPost, "/v1/orders", body, &dto)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnprocessableEntity || dto.Status == "rejected" {
		return nil, fmt.Errorf("RobinhoodClient:PlaceExitOrder(): %w", eventmodels.ErrOrderRejected)
	}

	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("RobinhoodClient:PlaceExitOrder(): unexpected status %d", status)
	}

	return &eventmodels.OrderResult{
		OrderID:   dto.OrderID,
		Filled:    dto.Status == "filled",
		FillPrice: dto.FillPrice,
	}, nil
}
