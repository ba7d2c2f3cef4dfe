package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/safezone-app/safezone/internal/core/usecases"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
)

// Pinger is a backing store the readiness check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Zones     *usecases.ZoneService
	Shelters  *usecases.ShelterService
	Hospitals *usecases.HospitalService
	Alerts    *usecases.AlertService
	Projector *geospatial.Projector

	// HospitalRadiusKm is used when a request names no radius.
	HospitalRadiusKm float64

	NATS  *nats.Conn
	DB    Pinger
	Cache Pinger

	// DocsPath locates the OpenAPI document; empty means DefaultOpenAPIPath.
	DocsPath string
}
