package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/model"
)

// ProfileClient talks to the profile service, which owns credits, per-owner
// settings and device tokens. Generation never mutates that state directly.
type ProfileClient interface {
	// Balance returns the owner's current credit balance.
	Balance(ctx context.Context, ownerID string) (int, error)
	// Debit withdraws amount credits. Returns model.ErrInsufficientCredits
	// when the balance does not cover the amount.
	Debit(ctx context.Context, ownerID string, amount int, reason string) error
	// Settings returns the owner settings used to parameterize a run.
	Settings(ctx context.Context, ownerID string) (model.OwnerSettings, error)
	// DeviceTokens returns the owner's registered push tokens.
	DeviceTokens(ctx context.Context, ownerID string) ([]string, error)
}

type profileClient struct {
	httpClient   *http.Client
	logger       *zap.Logger
	baseURL      string
	serviceToken string
}

// NewProfileClient builds the production profile service client.
func NewProfileClient(cfg *config.Config, logger *zap.Logger) ProfileClient {
	return &profileClient{
		httpClient:   &http.Client{Timeout: cfg.ProfileServiceTimeout},
		logger:       logger.Named("ProfileClient"),
		baseURL:      strings.TrimRight(cfg.ProfileServiceURL, "/"),
		serviceToken: cfg.ProfileServiceToken,
	}
}

func (c *profileClient) doJSON(ctx context.Context, method, path string, reqBody, respBody any) (int, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return 0, err
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("profile service request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("profile service %s %s returned status %d: %s",
			method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return resp.StatusCode, fmt.Errorf("profile service %s %s returned unparseable body: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *profileClient) Balance(ctx context.Context, ownerID string) (int, error) {
	var payload struct {
		Credits int `json:"credits"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/internal/owners/"+ownerID+"/credits", nil, &payload); err != nil {
		return 0, err
	}
	return payload.Credits, nil
}

func (c *profileClient) Debit(ctx context.Context, ownerID string, amount int, reason string) error {
	reqBody := map[string]any{"amount": amount, "reason": reason}
	status, err := c.doJSON(ctx, http.MethodPost, "/internal/owners/"+ownerID+"/credits/debit", reqBody, nil)
	if status == http.StatusPaymentRequired {
		return model.ErrInsufficientCredits
	}
	if err != nil {
		c.logger.Error("Credit debit failed",
			zap.String("ownerId", ownerID),
			zap.Int("amount", amount),
			zap.Error(err))
	}
	return err
}

func (c *profileClient) Settings(ctx context.Context, ownerID string) (model.OwnerSettings, error) {
	var settings model.OwnerSettings
	if _, err := c.doJSON(ctx, http.MethodGet, "/internal/owners/"+ownerID+"/settings", nil, &settings); err != nil {
		return model.OwnerSettings{}, err
	}
	return settings, nil
}

func (c *profileClient) DeviceTokens(ctx context.Context, ownerID string) ([]string, error) {
	var payload struct {
		Tokens []string `json:"tokens"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/internal/owners/"+ownerID+"/devices", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Tokens, nil
}
