package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/core/ports"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
	"github.com/safezone-app/safezone/internal/pkg/metrics"
	"github.com/safezone-app/safezone/internal/pkg/telemetry"
)

// Sources bundles the upstream reference-data feeds.
type Sources interface {
	ports.ZoneSource
	ports.ShelterSource
	ports.HospitalSource
}

// IngestService loads reference data from upstream into storage.
type IngestService struct {
	source    Sources
	zones     ports.ZoneRepository
	shelters  ports.ShelterRepository
	hospitals ports.HospitalRepository
	projector *geospatial.Projector
}

// NewIngestService creates a new IngestService.
func NewIngestService(
	source Sources,
	zones ports.ZoneRepository,
	shelters ports.ShelterRepository,
	hospitals ports.HospitalRepository,
	projector *geospatial.Projector,
) *IngestService {
	return &IngestService{
		source:    source,
		zones:     zones,
		shelters:  shelters,
		hospitals: hospitals,
		projector: projector,
	}
}

// IngestZones replaces the stored zone list with the upstream one. An empty
// upstream list is rejected so a bad fetch cannot wipe the table.
func (s *IngestService) IngestZones(ctx context.Context) (int, error) {
	zones, err := s.source.FetchZones(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch zones: %w", err)
	}

	kept := zones[:0:0]
	for _, z := range zones {
		if !z.Point.Valid() {
			metrics.DroppedEntities.WithLabelValues("zone").Inc()
			slog.DebugContext(ctx, "zone dropped", "code", z.Code, "reason", "invalid coordinates")
			continue
		}
		kept = append(kept, z)
	}
	trace.SpanFromContext(ctx).SetAttributes(telemetry.AttrDropped.Int(len(zones) - len(kept)))
	if len(kept) == 0 {
		return 0, domain.ErrNoZones
	}

	if err := s.zones.ReplaceAll(ctx, kept); err != nil {
		return 0, fmt.Errorf("store zones: %w", err)
	}
	return len(kept), nil
}

// IngestShelters projects grid-only shelters to WGS 84, drops those without
// finite coordinates and upserts the rest.
func (s *IngestService) IngestShelters(ctx context.Context) (int, error) {
	shelters, err := s.source.FetchShelters(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch shelters: %w", err)
	}

	located := LocateShelters(s.projector, shelters)
	trace.SpanFromContext(ctx).SetAttributes(telemetry.AttrDropped.Int(len(shelters) - len(located)))
	if len(located) == 0 {
		return 0, nil
	}
	if err := s.shelters.UpsertBatch(ctx, located); err != nil {
		return 0, fmt.Errorf("store shelters: %w", err)
	}
	return len(located), nil
}

// IngestHospitals upserts hospitals with valid coordinates.
func (s *IngestService) IngestHospitals(ctx context.Context) (int, error) {
	hospitals, err := s.source.FetchHospitals(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch hospitals: %w", err)
	}

	kept := hospitals[:0:0]
	for _, h := range hospitals {
		if !h.Location.Valid() {
			metrics.DroppedEntities.WithLabelValues("hospital").Inc()
			continue
		}
		kept = append(kept, h)
	}
	trace.SpanFromContext(ctx).SetAttributes(telemetry.AttrDropped.Int(len(hospitals) - len(kept)))
	if len(kept) == 0 {
		return 0, nil
	}
	if err := s.hospitals.UpsertBatch(ctx, kept); err != nil {
		return 0, fmt.Errorf("store hospitals: %w", err)
	}
	return len(kept), nil
}

// RunAll ingests every source, logging counts. Unconfigured sources are
// skipped; other failures are joined.
func (s *IngestService) RunAll(ctx context.Context, skip func(error) bool) error {
	steps := []struct {
		name string
		run  func(context.Context) (int, error)
	}{
		{"zones", s.IngestZones},
		{"shelters", s.IngestShelters},
		{"hospitals", s.IngestHospitals},
	}

	var errs []error
	for _, step := range steps {
		stepCtx, span := telemetry.Tracer().Start(ctx, "ingest."+step.name,
			trace.WithAttributes(telemetry.AttrSource.String(step.name)))
		n, err := step.run(stepCtx)
		span.SetAttributes(telemetry.AttrRecords.Int(n))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		switch {
		case err == nil:
			slog.InfoContext(ctx, "ingested", "source", step.name, "records", n)
		case skip != nil && skip(err):
			slog.InfoContext(ctx, "source skipped", "source", step.name, "reason", err)
		default:
			slog.ErrorContext(ctx, "ingest failed", "source", step.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	return errors.Join(errs...)
}

// LocateShelters fills Location from Projected where needed and returns only
// shelters whose coordinates are valid. The input slice is left untouched.
func LocateShelters(projector *geospatial.Projector, shelters []domain.Shelter) []domain.Shelter {
	out := make([]domain.Shelter, 0, len(shelters))
	for _, sh := range shelters {
		if sh.Projected != nil && sh.Location == (domain.GeoPoint{}) {
			if projector == nil {
				metrics.DroppedEntities.WithLabelValues("shelter").Inc()
				continue
			}
			loc, err := projector.Project(*sh.Projected)
			if err != nil {
				metrics.DroppedEntities.WithLabelValues("shelter").Inc()
				slog.Debug("shelter dropped", "id", sh.ID, "error", err)
				continue
			}
			sh.Location = loc
		}
		if !sh.Location.Valid() {
			metrics.DroppedEntities.WithLabelValues("shelter").Inc()
			slog.Debug("shelter dropped", "id", sh.ID, "reason", "invalid coordinates")
			continue
		}
		out = append(out, sh)
	}
	return out
}
