package steward

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Actor executes interventions via the admin API.
type Actor struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL with admin auth.
func NewActor(baseURL, adminKey string) *Actor {
	return &Actor{
		BaseURL:  baseURL,
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Act sends an intervention to its admin endpoint and returns the raw
// response body.
func (a *Actor) Act(iv *Intervention) (json.RawMessage, error) {
	path, payload, err := route(iv)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal intervention: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, a.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.AdminKey)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s failed (%d): %s", iv.Kind, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return respBody, nil
}

func route(iv *Intervention) (string, any, error) {
	switch iv.Kind {
	case KindAction:
		return "/api/v1/action", map[string]string{"stratum": iv.Stratum, "action": iv.Action}, nil
	case KindMeasure:
		return "/api/v1/vassal/measure", map[string]any{"nation": iv.Nation, "measure": iv.Measure, "active": true}, nil
	case KindGovernor:
		return "/api/v1/vassal/governor", map[string]string{"nation": iv.Nation, "official": iv.Official, "mandate": iv.Mandate}, nil
	}
	return "", nil, fmt.Errorf("unknown intervention kind %q", iv.Kind)
}
