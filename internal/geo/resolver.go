package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	// ErrInvalidLocation is returned for empty, too-short, or malformed input.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrNotFound is returned when the geocoder has no match for a place name.
	ErrNotFound = errors.New("location not found")
	// ErrResolutionFailed is returned on transport faults during geocoding.
	ErrResolutionFailed = errors.New("location resolution failed")
)

// Coordinate is a validated latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place is a single geocoder match, shaped for autocomplete suggestions.
type Place struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	Admin1      string  `json:"admin1"`
	Admin2      string  `json:"admin2"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
	SearchQuery string  `json:"search_query"`
}

// Resolver turns free-form location strings into coordinates using the
// Open-Meteo geocoding API, and answers reverse lookups via Nominatim.
type Resolver struct {
	geocodeURL string
	reverseURL string
	client     *http.Client
	circuit    *gobreaker.CircuitBreaker
	log        *zap.SugaredLogger
}

// NewResolver creates a Resolver. The timeout applies per lookup and should be
// short; geocoding is on the hot path of every weather request.
func NewResolver(geocodeURL, reverseURL string, timeout time.Duration, log *zap.SugaredLogger) *Resolver {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geocoder",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Resolver{
		geocodeURL: geocodeURL,
		reverseURL: reverseURL,
		client:     &http.Client{Timeout: timeout},
		circuit:    cb,
		log:        log,
	}
}

// Resolve maps a location string to a Coordinate. Input containing a comma is
// parsed as "lat,lon" and validated locally without any network call; anything
// else is geocoded and the best match wins.
func (r *Resolver) Resolve(ctx context.Context, input string) (Coordinate, error) {
	input = strings.TrimSpace(input)
	if len(input) < 2 {
		return Coordinate{}, fmt.Errorf("%w: must be at least 2 characters", ErrInvalidLocation)
	}

	// Comma presence drives the dispatch; a bare digit-heavy name like
	// "Area 51" still goes through the geocoder.
	if strings.Contains(input, ",") {
		return parseCoordinate(input)
	}

	values := url.Values{}
	values.Set("name", input)
	values.Set("count", "1")

	var payload struct {
		Results []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := r.getJSON(ctx, r.geocodeURL, values, nil, &payload); err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	if len(payload.Results) == 0 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrNotFound, input)
	}

	return Coordinate{
		Latitude:  payload.Results[0].Latitude,
		Longitude: payload.Results[0].Longitude,
	}, nil
}

// Search returns up to limit geocoder matches for an autocomplete query.
// Queries shorter than 2 characters yield an empty result, not an error.
func (r *Resolver) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []Place{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	values := url.Values{}
	values.Set("name", query)
	values.Set("count", strconv.Itoa(limit))
	values.Set("language", "en")
	values.Set("format", "json")

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Country   string  `json:"country"`
			Admin1    string  `json:"admin1"`
			Admin2    string  `json:"admin2"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := r.getJSON(ctx, r.geocodeURL, values, nil, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	places := make([]Place, 0, len(payload.Results))
	for _, res := range payload.Results {
		place := Place{
			Name:        res.Name,
			Country:     res.Country,
			Admin1:      res.Admin1,
			Admin2:      res.Admin2,
			Latitude:    res.Latitude,
			Longitude:   res.Longitude,
			SearchQuery: fmt.Sprintf("%v,%v", res.Latitude, res.Longitude),
		}
		place.DisplayName = displayName(res.Name, res.Admin1, res.Country)
		places = append(places, place)
	}

	return places, nil
}

// ReverseGeocode describes the place at the given coordinates using Nominatim.
// Returns nil when the coordinates match no known address.
func (r *Resolver) ReverseGeocode(ctx context.Context, lat, lon float64) (*Place, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("format", "json")
	values.Set("addressdetails", "1")
	values.Set("accept-language", "en")

	// Nominatim rejects requests without an identifying User-Agent.
	headers := http.Header{"User-Agent": []string{"weather-archive/1.0"}}

	var payload struct {
		DisplayName string `json:"display_name"`
		Address     struct {
			City     string `json:"city"`
			Town     string `json:"town"`
			Village  string `json:"village"`
			Hamlet   string `json:"hamlet"`
			Country  string `json:"country"`
			State    string `json:"state"`
			Province string `json:"province"`
			County   string `json:"county"`
		} `json:"address"`
	}
	if err := r.getJSON(ctx, r.reverseURL, values, headers, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	name := firstNonEmpty(payload.Address.City, payload.Address.Town, payload.Address.Village, payload.Address.Hamlet)
	if name == "" && payload.DisplayName == "" {
		return nil, nil
	}
	if name == "" {
		name = "Unknown"
	}

	return &Place{
		Name:        name,
		Country:     payload.Address.Country,
		Admin1:      firstNonEmpty(payload.Address.State, payload.Address.Province),
		Admin2:      payload.Address.County,
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: payload.DisplayName,
	}, nil
}

func (r *Resolver) getJSON(ctx context.Context, baseURL string, values url.Values, headers http.Header, out any) error {
	u := fmt.Sprintf("%s?%s", baseURL, values.Encode())

	result, err := r.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header[k] = v
		}

		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		var buf json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&buf); err != nil {
			return nil, err
		}
		return buf, nil
	})
	if err != nil {
		r.log.Warnw("geocoder request failed", "url", baseURL, "err", err)
		return err
	}

	return json.Unmarshal(result.(json.RawMessage), out)
}

// parseCoordinate validates a "lat,lon" string. Both tokens must be numeric
// and in range; a comma-bearing string that is not a coordinate is an error,
// never a geocoder query.
func parseCoordinate(input string) (Coordinate, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: coordinates must be in format 'latitude,longitude'", ErrInvalidLocation)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: invalid latitude %q", ErrInvalidLocation, strings.TrimSpace(parts[0]))
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: invalid longitude %q", ErrInvalidLocation, strings.TrimSpace(parts[1]))
	}

	if lat < -90 || lat > 90 {
		return Coordinate{}, fmt.Errorf("%w: latitude must be between -90 and 90", ErrInvalidLocation)
	}
	if lon < -180 || lon > 180 {
		return Coordinate{}, fmt.Errorf("%w: longitude must be between -180 and 180", ErrInvalidLocation)
	}

	return Coordinate{Latitude: lat, Longitude: lon}, nil
}

func displayName(name, admin1, country string) string {
	parts := []string{name}
	if admin1 != "" && admin1 != name {
		parts = append(parts, admin1)
	}
	if country != "" && country != name && country != admin1 {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
