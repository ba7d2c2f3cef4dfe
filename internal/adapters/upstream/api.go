package upstream

import (
	"context"
	"errors"
	"time"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// Endpoints lists the upstream document URLs. Empty URLs disable a source.
type Endpoints struct {
	Zones     string
	Shelters  string
	Hospitals string
	Alerts    string
}

// ErrNotConfigured is returned when a source has no URL.
var ErrNotConfigured = errors.New("upstream source not configured")

// API implements the ports.*Source interfaces over HTTP.
type API struct {
	client    *Client
	endpoints Endpoints
	now       func() time.Time
}

// NewAPI creates an API.
func NewAPI(client *Client, endpoints Endpoints) *API {
	return &API{client: client, endpoints: endpoints, now: time.Now}
}

func (a *API) FetchZones(ctx context.Context) ([]domain.AlertZone, error) {
	if a.endpoints.Zones == "" {
		return nil, ErrNotConfigured
	}
	body, err := a.client.Get(ctx, "zones", a.endpoints.Zones)
	if err != nil {
		return nil, err
	}
	return DecodeZones(body)
}

func (a *API) FetchShelters(ctx context.Context) ([]domain.Shelter, error) {
	if a.endpoints.Shelters == "" {
		return nil, ErrNotConfigured
	}
	body, err := a.client.Get(ctx, "shelters", a.endpoints.Shelters)
	if err != nil {
		return nil, err
	}
	return DecodeShelters(body, a.now())
}

func (a *API) FetchHospitals(ctx context.Context) ([]domain.Hospital, error) {
	if a.endpoints.Hospitals == "" {
		return nil, ErrNotConfigured
	}
	body, err := a.client.Get(ctx, "hospitals", a.endpoints.Hospitals)
	if err != nil {
		return nil, err
	}
	return DecodeHospitals(body, a.now())
}

// FetchAlerts returns the current alert feed. An empty feed (some endpoints
// answer with an empty body or a blank envelope when idle) yields no alerts.
func (a *API) FetchAlerts(ctx context.Context) ([]domain.Alert, error) {
	if a.endpoints.Alerts == "" {
		return nil, ErrNotConfigured
	}
	body, err := a.client.Get(ctx, "alerts", a.endpoints.Alerts)
	if errors.Is(err, errEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeAlerts(body)
}
