package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/okozachenko/weather-archive/internal/store"
)

var (
	// ErrNoWeatherData is returned when a single-record export finds nothing
	// usable in the stored payload.
	ErrNoWeatherData = errors.New("record has no weather data")

	// ErrExportFailed wraps encoding failures during export.
	ErrExportFailed = errors.New("export failed")
)

// csvHeader is the fixed column set of the hourly CSV export.
var csvHeader = []string{"Date", "Time", "Temperature (°C)", "Precipitation (mm)", "Wind Speed (m/s)", "Location"}

// recordPayload is the slice of a stored archive payload the exporters care
// about. Extra provider fields are ignored.
type recordPayload struct {
	Hourly struct {
		Time          []string   `json:"time"`
		Temperature2m []*float64 `json:"temperature_2m"`
		Precipitation []*float64 `json:"precipitation"`
		WindSpeed10m  []*float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

// Engine renders persisted records into the supported export formats.
type Engine struct {
	log *zap.SugaredLogger
}

func NewEngine(log *zap.SugaredLogger) *Engine {
	return &Engine{log: log}
}

// JSON renders all records as an indented document with each weather payload
// embedded as structured JSON rather than a quoted string.
func (e *Engine) JSON(records []store.Record) ([]byte, error) {
	type exported struct {
		ID        string  `json:"id"`
		Location  string  `json:"location"`
		StartDate *string `json:"start_date"`
		EndDate   *string `json:"end_date"`
		CreatedAt string  `json:"created_at"`
		Weather   any     `json:"weather"`
	}

	out := make([]exported, 0, len(records))
	for _, rec := range records {
		item := exported{
			ID:        rec.ID,
			Location:  rec.Location,
			StartDate: rec.StartDate,
			EndDate:   rec.EndDate,
			CreatedAt: rec.CreatedAt,
		}
		if json.Valid([]byte(rec.WeatherJSON)) {
			item.Weather = json.RawMessage(rec.WeatherJSON)
		} else {
			// Keep the record exportable even when the payload is garbage.
			item.Weather = rec.WeatherJSON
		}
		out = append(out, item)
	}

	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	return body, nil
}

// CSV renders every record's hourly series, one row per timestamp. Records
// whose payload cannot be parsed or that carry no hourly data are skipped
// whole; the skip count is returned alongside the document.
func (e *Engine) CSV(records []store.Record) ([]byte, int, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	skipped := 0
	for _, rec := range records {
		rows, err := hourlyRows(rec)
		if err != nil || len(rows) == 0 {
			skipped++
			e.log.Warnw("skipping record in CSV export", "id", rec.ID, "err", err)
			continue
		}
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return nil, 0, fmt.Errorf("%w: %v", ErrExportFailed, err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	return buf.Bytes(), skipped, nil
}

// RecordCSV renders a single record's hourly series. Unlike the bulk export
// there is nothing to fall back to, so an unusable payload is an error.
func (e *Engine) RecordCSV(rec store.Record) ([]byte, error) {
	rows, err := hourlyRows(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoWeatherData, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoWeatherData
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	return buf.Bytes(), nil
}

// Markdown renders a human-readable report: a summary table of all records
// followed by one detail block per record. The weather payload itself is not
// expanded here.
func (e *Engine) Markdown(records []store.Record) []byte {
	var b strings.Builder

	b.WriteString("# Weather History\n\n")
	fmt.Fprintf(&b, "Total records: %d\n\n", len(records))

	if len(records) == 0 {
		return []byte(b.String())
	}

	b.WriteString("| ID | Location | Start Date | End Date | Created At |\n")
	b.WriteString("|----|----------|------------|----------|------------|\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			mdCell(rec.ID), mdCell(rec.Location), mdDate(rec.StartDate), mdDate(rec.EndDate), mdCell(rec.CreatedAt))
	}
	b.WriteString("\n")

	for _, rec := range records {
		fmt.Fprintf(&b, "## %s\n\n", mdCell(rec.Location))
		fmt.Fprintf(&b, "- ID: `%s`\n", rec.ID)
		fmt.Fprintf(&b, "- Date range: %s to %s\n", mdDate(rec.StartDate), mdDate(rec.EndDate))
		fmt.Fprintf(&b, "- Created: %s\n\n", rec.CreatedAt)
	}

	return []byte(b.String())
}

// hourlyRows flattens one record's hourly series into CSV rows. Series shorter
// than the time axis contribute empty cells, never truncated rows.
func hourlyRows(rec store.Record) ([][]string, error) {
	var payload recordPayload
	if err := json.Unmarshal([]byte(rec.WeatherJSON), &payload); err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(payload.Hourly.Time))
	for i, ts := range payload.Hourly.Time {
		date, clock := splitTimestamp(ts)
		rows = append(rows, []string{
			date,
			clock,
			floatCell(payload.Hourly.Temperature2m, i),
			floatCell(payload.Hourly.Precipitation, i),
			floatCell(payload.Hourly.WindSpeed10m, i),
			rec.Location,
		})
	}
	return rows, nil
}

var timestampLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	time.RFC3339,
}

// splitTimestamp splits a provider timestamp into date and clock columns.
// Unparseable values fall back to a plain split on the T separator.
func splitTimestamp(ts string) (string, string) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("2006-01-02"), t.Format("15:04")
		}
	}

	date, clock, found := strings.Cut(ts, "T")
	if !found {
		return ts, ""
	}
	return date, strings.TrimSuffix(clock, "Z")
}

func floatCell(values []*float64, i int) string {
	if i >= len(values) || values[i] == nil {
		return ""
	}
	return strconv.FormatFloat(*values[i], 'f', -1, 64)
}

func mdCell(v string) string {
	return strings.ReplaceAll(v, "|", "\\|")
}

func mdDate(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}
