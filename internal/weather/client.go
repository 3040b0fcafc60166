package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/okozachenko/weather-archive/internal/geo"
)

// ErrProviderFetch is returned when the weather endpoint errors or times out.
var ErrProviderFetch = errors.New("weather provider fetch failed")

// maxHourlyEntries caps the same-day hourly series carried on a Snapshot.
const maxHourlyEntries = 24

// maxForecastDays caps the daily forecast; short provider responses are
// returned as-is, never padded.
const maxForecastDays = 5

// ClientConfig carries the Open-Meteo endpoints and transport settings.
// Everything the client needs is passed here; fetch logic never reads
// ambient process state.
type ClientConfig struct {
	ForecastURL string
	ArchiveURL  string
	Timeout     time.Duration
}

// Client fetches and normalizes current, forecast, and historical data from
// Open-Meteo.
type Client struct {
	cfg     ClientConfig
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	log     *zap.SugaredLogger
}

func NewClient(cfg ClientConfig, log *zap.SugaredLogger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "open-meteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		circuit: cb,
		log:     log,
	}
}

// FetchCurrent requests the current reading plus today's hourly series and
// computes the derived high/low/average.
func (c *Client) FetchCurrent(ctx context.Context, coord geo.Coordinate) (*Snapshot, error) {
	values := coordValues(coord)
	values.Set("hourly", "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m,weather_code")
	values.Set("current", "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m,apparent_temperature,weather_code")
	values.Set("timezone", "auto")

	body, err := c.get(ctx, c.cfg.ForecastURL, values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFetch, err)
	}

	var payload struct {
		Current struct {
			Temperature2m       *float64 `json:"temperature_2m"`
			ApparentTemperature *float64 `json:"apparent_temperature"`
			RelativeHumidity2m  *float64 `json:"relative_humidity_2m"`
			Precipitation       *float64 `json:"precipitation"`
			WindSpeed10m        *float64 `json:"wind_speed_10m"`
			WeatherCode         *int     `json:"weather_code"`
		} `json:"current"`
		Hourly struct {
			Time               []string   `json:"time"`
			Temperature2m      []*float64 `json:"temperature_2m"`
			RelativeHumidity2m []*float64 `json:"relative_humidity_2m"`
			Precipitation      []*float64 `json:"precipitation"`
			WindSpeed10m       []*float64 `json:"wind_speed_10m"`
			WeatherCode        []*int     `json:"weather_code"`
		} `json:"hourly"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFetch, err)
	}

	// Align every hourly series to the time axis, truncated to one day.
	// Short arrays are padded with nils so indexes always line up.
	n := len(payload.Hourly.Time)
	if n > maxHourlyEntries {
		n = maxHourlyEntries
	}

	snapshot := &Snapshot{
		CurrentTemp:          payload.Current.Temperature2m,
		FeelsLike:            payload.Current.ApparentTemperature,
		CurrentHumidity:      payload.Current.RelativeHumidity2m,
		CurrentPrecipitation: payload.Current.Precipitation,
		CurrentWind:          payload.Current.WindSpeed10m,
		CurrentWeatherCode:   payload.Current.WeatherCode,
		HourlyTimes:          payload.Hourly.Time[:n],
		HourlyTemperature:    alignFloats(payload.Hourly.Temperature2m, n),
		HourlyHumidity:       alignFloats(payload.Hourly.RelativeHumidity2m, n),
		HourlyPrecipitation:  alignFloats(payload.Hourly.Precipitation, n),
		HourlyWind:           alignFloats(payload.Hourly.WindSpeed10m, n),
		HourlyWeatherCodes:   alignInts(payload.Hourly.WeatherCode, n),
		Latitude:             coord.Latitude,
		Longitude:            coord.Longitude,
	}

	snapshot.High = maxOf(snapshot.HourlyTemperature)
	snapshot.Low = minOf(snapshot.HourlyTemperature)
	snapshot.Average = meanOf(snapshot.HourlyTemperature)
	if snapshot.High == nil {
		snapshot.High = snapshot.CurrentTemp
		snapshot.Low = snapshot.CurrentTemp
		snapshot.Average = snapshot.CurrentTemp
	}

	info := LookupCode(snapshot.CurrentWeatherCode)
	snapshot.CurrentWeatherIcon = info.Icon
	snapshot.CurrentWeatherDescription = info.Description
	snapshot.DominantDescription = modalDescription(snapshot.HourlyWeatherCodes)

	return snapshot, nil
}

// FetchForecast requests daily aggregates and zips the parallel series into at
// most five ForecastDay rows. Fewer provider days yield fewer rows.
func (c *Client) FetchForecast(ctx context.Context, coord geo.Coordinate) ([]ForecastDay, error) {
	values := coordValues(coord)
	values.Set("daily", "temperature_2m_max,temperature_2m_min,temperature_2m_mean,precipitation_sum,wind_speed_10m_max,weather_code")
	values.Set("timezone", "auto")

	body, err := c.get(ctx, c.cfg.ForecastURL, values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFetch, err)
	}

	var payload struct {
		Daily struct {
			Time              []string   `json:"time"`
			Temperature2mMax  []*float64 `json:"temperature_2m_max"`
			Temperature2mMin  []*float64 `json:"temperature_2m_min"`
			Temperature2mMean []*float64 `json:"temperature_2m_mean"`
			PrecipitationSum  []*float64 `json:"precipitation_sum"`
			WindSpeed10mMax   []*float64 `json:"wind_speed_10m_max"`
			WeatherCode       []*int     `json:"weather_code"`
		} `json:"daily"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFetch, err)
	}

	days := len(payload.Daily.Time)
	if days > maxForecastDays {
		days = maxForecastDays
	}

	forecast := make([]ForecastDay, 0, days)
	for i := 0; i < days; i++ {
		day := ForecastDay{
			Date:          payload.Daily.Time[i],
			TempMax:       floatAt(payload.Daily.Temperature2mMax, i),
			TempMin:       floatAt(payload.Daily.Temperature2mMin, i),
			TempAvg:       floatAt(payload.Daily.Temperature2mMean, i),
			Precipitation: floatAt(payload.Daily.PrecipitationSum, i),
			WindSpeed:     floatAt(payload.Daily.WindSpeed10mMax, i),
			WeatherCode:   intAt(payload.Daily.WeatherCode, i),
		}
		info := LookupCode(day.WeatherCode)
		day.WeatherIcon = info.Icon
		day.WeatherDescription = info.Description
		forecast = append(forecast, day)
	}

	return forecast, nil
}

// FetchHistorical requests the hourly archive for an explicit date range.
// Transport failures yield a nil payload rather than an error; the caller
// decides whether absence of data is fatal.
func (c *Client) FetchHistorical(ctx context.Context, coord geo.Coordinate, startDate, endDate string) (json.RawMessage, error) {
	values := coordValues(coord)
	values.Set("start_date", startDate)
	values.Set("end_date", endDate)
	values.Set("hourly", "temperature_2m,precipitation,wind_speed_10m")
	values.Set("timezone", "auto")

	body, err := c.get(ctx, c.cfg.ArchiveURL, values)
	if err != nil {
		c.log.Warnw("historical fetch failed", "start", startDate, "end", endDate, "err", err)
		return nil, nil
	}

	if !json.Valid(body) {
		c.log.Warnw("historical fetch returned invalid payload", "start", startDate, "end", endDate)
		return nil, nil
	}

	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, baseURL string, values url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s?%s", baseURL, values.Encode())

	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, resp.Status)
		}

		return body, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

func coordValues(coord geo.Coordinate) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	return values
}

// alignFloats truncates or nil-pads a series to exactly n entries.
func alignFloats(values []*float64, n int) []*float64 {
	out := make([]*float64, n)
	copy(out, values)
	return out
}

func alignInts(values []*int, n int) []*int {
	out := make([]*int, n)
	copy(out, values)
	return out
}

func floatAt(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func intAt(values []*int, i int) *int {
	if i < len(values) {
		return values[i]
	}
	return nil
}
