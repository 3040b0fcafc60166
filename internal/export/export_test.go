package export

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/okozachenko/weather-archive/internal/store"
)

func testEngine() *Engine {
	return NewEngine(zap.NewNop().Sugar())
}

func strPtr(v string) *string { return &v }

func archiveRecord(id, location, payload string) store.Record {
	return store.Record{
		ID:          id,
		Location:    location,
		StartDate:   strPtr("2020-01-01"),
		EndDate:     strPtr("2020-01-02"),
		WeatherJSON: payload,
		CreatedAt:   "2026-08-29T10:00:00Z",
	}
}

const hourlyPayload = `{"hourly": {
	"time": ["2020-01-01T00:00", "2020-01-01T01:00", "2020-01-01T02:00"],
	"temperature_2m": [1.5, null, 3],
	"precipitation": [0.2],
	"wind_speed_10m": [4, 5, 6]
}}`

func TestCSV(t *testing.T) {
	body, skipped, err := testEngine().CSV([]store.Record{archiveRecord("r1", "Berlin", hourlyPayload)})
	require.NoError(t, err)
	assert.Zero(t, skipped)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date,Time,Temperature (°C),Precipitation (mm),Wind Speed (m/s),Location", lines[0])
	assert.Equal(t, "2020-01-01,00:00,1.5,0.2,4,Berlin", lines[1])
	// Null temperature and short precipitation series become empty cells.
	assert.Equal(t, "2020-01-01,01:00,,,5,Berlin", lines[2])
	assert.Equal(t, "2020-01-01,02:00,3,,6,Berlin", lines[3])
}

func TestCSV_SkipsMalformedRecords(t *testing.T) {
	records := []store.Record{
		archiveRecord("r1", "Berlin", hourlyPayload),
		archiveRecord("r2", "Paris", `not json`),
		archiveRecord("r3", "Oslo", `{"hourly": {"time": []}}`),
	}

	body, skipped, err := testEngine().CSV(records)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Len(t, lines, 4)
	assert.NotContains(t, string(body), "Paris")
	assert.NotContains(t, string(body), "Oslo")
}

func TestCSV_Empty(t *testing.T) {
	body, skipped, err := testEngine().CSV(nil)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, "Date,Time,Temperature (°C),Precipitation (mm),Wind Speed (m/s),Location\n", string(body))
}

func TestCSV_ZuluTimestamps(t *testing.T) {
	rec := archiveRecord("r1", "Berlin", `{"hourly": {"time": ["2020-01-01T06:00Z"], "temperature_2m": [2]}}`)

	body, skipped, err := testEngine().CSV([]store.Record{rec})
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Contains(t, string(body), "2020-01-01,06:00,2,,,Berlin")
}

func TestRecordCSV(t *testing.T) {
	body, err := testEngine().RecordCSV(archiveRecord("r1", "Berlin", hourlyPayload))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "Date,Time,"))
	assert.Contains(t, string(body), "Berlin")
}

func TestRecordCSV_NoData(t *testing.T) {
	_, err := testEngine().RecordCSV(archiveRecord("r1", "Berlin", `{"hourly": {"time": []}}`))
	assert.ErrorIs(t, err, ErrNoWeatherData)

	_, err = testEngine().RecordCSV(archiveRecord("r1", "Berlin", `broken`))
	assert.ErrorIs(t, err, ErrNoWeatherData)
}

func TestJSON_EmbedsPayloadAsStructuredJSON(t *testing.T) {
	body, err := testEngine().JSON([]store.Record{archiveRecord("r1", "Berlin", hourlyPayload)})
	require.NoError(t, err)

	var out []struct {
		ID       string `json:"id"`
		Location string `json:"location"`
		Weather  struct {
			Hourly struct {
				Time []string `json:"time"`
			} `json:"hourly"`
		} `json:"weather"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "r1", out[0].ID)
	assert.Len(t, out[0].Weather.Hourly.Time, 3)
}

func TestJSON_GarbagePayloadStaysString(t *testing.T) {
	body, err := testEngine().JSON([]store.Record{archiveRecord("r1", "Berlin", `oops`)})
	require.NoError(t, err)

	var out []struct {
		Weather any `json:"weather"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "oops", out[0].Weather)
}

func TestMarkdown(t *testing.T) {
	records := []store.Record{
		archiveRecord("r1", "Berlin", hourlyPayload),
		{ID: "r2", Location: "Oslo", WeatherJSON: `{}`, CreatedAt: "2026-08-29T11:00:00Z"},
	}

	body := string(testEngine().Markdown(records))
	assert.Contains(t, body, "# Weather History")
	assert.Contains(t, body, "Total records: 2")
	assert.Contains(t, body, "| ID | Location | Start Date | End Date | Created At |")
	// Every summary row leads with the record id.
	assert.Contains(t, body, "| r1 | Berlin | 2020-01-01 | 2020-01-02 |")
	// Missing date range renders as a dash.
	assert.Contains(t, body, "| r2 | Oslo | - | - |")
	assert.Contains(t, body, "## Berlin")
	assert.Contains(t, body, "- ID: `r2`")
}

func TestMarkdown_Empty(t *testing.T) {
	body := string(testEngine().Markdown(nil))
	assert.Contains(t, body, "Total records: 0")
	assert.NotContains(t, body, "|")
}
