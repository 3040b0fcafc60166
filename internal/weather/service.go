package weather

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/okozachenko/weather-archive/internal/geo"
	"github.com/okozachenko/weather-archive/internal/store"
)

// ErrMissingDateRange is returned when a history refresh is requested for a
// record that has no usable start/end dates.
var ErrMissingDateRange = errors.New("record has no date range")

// CoordinateResolver is the part of the location resolver the service needs.
type CoordinateResolver interface {
	Resolve(ctx context.Context, input string) (geo.Coordinate, error)
}

// RecordStore is the persistence contract for historical query results.
type RecordStore interface {
	Create(ctx context.Context, location string, startDate, endDate *string, weatherJSON string) (string, error)
	All(ctx context.Context) ([]store.Record, error)
	Get(ctx context.Context, id string) (*store.Record, error)
	Update(ctx context.Context, id string, fields store.UpdateFields) error
	Delete(ctx context.Context, id string) error
}

// UpdateRequest is a tri-state partial update of a history record: nil means
// "leave unchanged". Setting any field triggers a re-fetch of the archive data
// for the resulting location and date range.
type UpdateRequest struct {
	Location  *string
	StartDate *string
	EndDate   *string
}

// Service orchestrates the resolver, the provider client, and the record store.
type Service struct {
	resolver CoordinateResolver
	client   *Client
	records  RecordStore
	log      *zap.SugaredLogger
}

func NewService(resolver CoordinateResolver, client *Client, records RecordStore, log *zap.SugaredLogger) *Service {
	return &Service{
		resolver: resolver,
		client:   client,
		records:  records,
		log:      log,
	}
}

// Current resolves the location and fetches the current-conditions snapshot.
// Each successful query is also persisted (with an empty date range) so it
// shows up in the history exports.
func (s *Service) Current(ctx context.Context, location string) (*Snapshot, error) {
	coord, err := s.resolver.Resolve(ctx, location)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.client.FetchCurrent(ctx, coord)
	if err != nil {
		return nil, err
	}
	snapshot.Location = location

	if payload, err := json.Marshal(snapshot); err != nil {
		s.log.Warnw("failed to encode current-weather snapshot", "location", location, "err", err)
	} else if _, err := s.records.Create(ctx, location, nil, nil, string(payload)); err != nil {
		s.log.Warnw("failed to persist current-weather query", "location", location, "err", err)
	}

	return snapshot, nil
}

// Forecast resolves the location and fetches up to five days of daily
// aggregates.
func (s *Service) Forecast(ctx context.Context, location string) ([]ForecastDay, error) {
	coord, err := s.resolver.Resolve(ctx, location)
	if err != nil {
		return nil, err
	}
	return s.client.FetchForecast(ctx, coord)
}

// CreateHistory fetches the hourly archive for the location and date range and
// persists the raw payload. A missing archive payload is fatal here; the
// record would be useless without it.
func (s *Service) CreateHistory(ctx context.Context, location, startDate, endDate string) (string, error) {
	coord, err := s.resolver.Resolve(ctx, location)
	if err != nil {
		return "", err
	}

	payload, err := s.client.FetchHistorical(ctx, coord, startDate, endDate)
	if err != nil {
		return "", err
	}
	if payload == nil {
		return "", fmt.Errorf("%w: no archive data for %s..%s", ErrProviderFetch, startDate, endDate)
	}

	id, err := s.records.Create(ctx, location, &startDate, &endDate, string(payload))
	if err != nil {
		return "", err
	}

	s.log.Infow("created history record", "id", id, "location", location, "start", startDate, "end", endDate)
	return id, nil
}

// History returns all persisted records, newest first.
func (s *Service) History(ctx context.Context) ([]store.Record, error) {
	return s.records.All(ctx)
}

// HistoryRecord returns one record by id.
func (s *Service) HistoryRecord(ctx context.Context, id string) (*store.Record, error) {
	return s.records.Get(ctx, id)
}

// UpdateHistory applies a partial update. When any field changes, the archive
// payload is re-fetched for the coalesced location and date range before the
// write. The read-fetch-write sequence is not transactional: a concurrent
// delete between the read and the write makes the write a no-op.
func (s *Service) UpdateHistory(ctx context.Context, id string, req UpdateRequest) error {
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return err
	}

	if req.Location == nil && req.StartDate == nil && req.EndDate == nil {
		return nil
	}

	location := record.Location
	if req.Location != nil {
		location = *req.Location
	}
	startDate := coalesce(req.StartDate, record.StartDate)
	endDate := coalesce(req.EndDate, record.EndDate)
	if startDate == nil || endDate == nil {
		return fmt.Errorf("%w: cannot refresh archive data", ErrMissingDateRange)
	}

	coord, err := s.resolver.Resolve(ctx, location)
	if err != nil {
		return err
	}

	payload, err := s.client.FetchHistorical(ctx, coord, *startDate, *endDate)
	if err != nil {
		return err
	}
	if payload == nil {
		return fmt.Errorf("%w: no archive data for %s..%s", ErrProviderFetch, *startDate, *endDate)
	}

	weatherJSON := string(payload)
	return s.records.Update(ctx, id, store.UpdateFields{
		Location:    &location,
		StartDate:   startDate,
		EndDate:     endDate,
		WeatherJSON: &weatherJSON,
	})
}

// DeleteHistory removes a record; deleting an unknown id is a no-op.
func (s *Service) DeleteHistory(ctx context.Context, id string) error {
	return s.records.Delete(ctx, id)
}

func coalesce(requested, existing *string) *string {
	if requested != nil {
		return requested
	}
	return existing
}
