// Package steward implements the autonomous realm steward.
// It observes the realm via the API, triages unrest and independence
// pressure with fixed rules, and acts via the admin endpoints.
package steward

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RealmSnapshot holds all data collected during an observation cycle.
type RealmSnapshot struct {
	Status    RealmStatus    `json:"status"`
	Strata    []StratumInfo  `json:"strata"`
	Vassals   []VassalInfo   `json:"vassals"`
	Officials []OfficialInfo `json:"officials"`
}

// RealmStatus mirrors GET /api/v1/status.
type RealmStatus struct {
	Name      string   `json:"name"`
	Day       int      `json:"day"`
	Date      string   `json:"date"`
	Treasury  float64  `json:"treasury"`
	Stability float64  `json:"stability"`
	AtWar     bool     `json:"at_war"`
	Rebelling []string `json:"rebelling"`
	Speed     float64  `json:"speed"`
	Running   bool     `json:"running"`
}

// ActionInfo mirrors an action entry of a stratum.
type ActionInfo struct {
	ID        string  `json:"id"`
	Cost      float64 `json:"cost"`
	Available bool    `json:"available"`
	Reason    string  `json:"reason"`
}

// StratumInfo mirrors items from GET /api/v1/strata.
type StratumInfo struct {
	Stratum        string       `json:"stratum"`
	Organization   float64      `json:"organization"`
	GrowthRate     float64      `json:"growth_rate"`
	Stage          string       `json:"stage"`
	DaysToUprising *int         `json:"days_to_uprising"`
	Approval       float64      `json:"approval"`
	Actions        []ActionInfo `json:"actions"`
}

// MeasureInfo mirrors one control measure of a vassal.
type MeasureInfo struct {
	Active   bool   `json:"active"`
	Governor string `json:"governor"`
}

// VassalInfo mirrors items from GET /api/v1/vassals.
type VassalInfo struct {
	Nation               string                 `json:"nation"`
	Type                 string                 `json:"type"`
	IndependencePressure float64                `json:"independence_pressure"`
	IndependenceCap      float64                `json:"independence_cap"`
	Measures             map[string]MeasureInfo `json:"measures"`
	MeasureCosts         map[string]float64     `json:"measure_costs"`
	GovernorName         string                 `json:"governor_name"`
}

// OfficialInfo mirrors items from GET /api/v1/officials.
type OfficialInfo struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Prestige       float64 `json:"prestige"`
	Administrative float64 `json:"administrative"`
	Military       float64 `json:"military"`
	Loyalty        float64 `json:"loyalty"`
}

// Observer fetches realm state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches the four endpoints and returns a RealmSnapshot.
func (o *Observer) Observe() (*RealmSnapshot, error) {
	snap := &RealmSnapshot{}

	if err := o.fetchJSON("/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON("/api/v1/strata", &snap.Strata); err != nil {
		return nil, fmt.Errorf("fetch strata: %w", err)
	}
	if err := o.fetchJSON("/api/v1/vassals", &snap.Vassals); err != nil {
		return nil, fmt.Errorf("fetch vassals: %w", err)
	}
	if err := o.fetchJSON("/api/v1/officials", &snap.Officials); err != nil {
		return nil, fmt.Errorf("fetch officials: %w", err)
	}

	return snap, nil
}

// Ready reports whether the status endpoint answers 200.
func (o *Observer) Ready() bool {
	resp, err := o.HTTPClient.Get(o.BaseURL + "/api/v1/status")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(path string, target any) error {
	resp, err := o.HTTPClient.Get(o.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
