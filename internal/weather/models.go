package weather

// Snapshot is the current-conditions view for one location: a point-in-time
// reading plus the same-day hourly series, truncated to 24 entries. All hourly
// slices are index-aligned and share the same length.
type Snapshot struct {
	Location string `json:"location"`

	CurrentTemp          *float64 `json:"current_temp"`
	FeelsLike            *float64 `json:"feels_like"`
	CurrentHumidity      *float64 `json:"current_humidity"`
	CurrentPrecipitation *float64 `json:"current_precipitation"`
	CurrentWind          *float64 `json:"current_wind"`
	CurrentWeatherCode   *int     `json:"current_weather_code"`

	CurrentWeatherIcon        string `json:"current_weather_icon"`
	CurrentWeatherDescription string `json:"current_weather_description"`

	// Derived from the hourly temperatures; fall back to the current reading
	// when the series is empty.
	High    *float64 `json:"high"`
	Low     *float64 `json:"low"`
	Average *float64 `json:"average"`

	// Most frequent condition across today's hourly codes.
	DominantDescription string `json:"dominant_description"`

	HourlyTimes         []string   `json:"hourly_times"`
	HourlyTemperature   []*float64 `json:"hourly_temperature"`
	HourlyHumidity      []*float64 `json:"hourly_humidity"`
	HourlyPrecipitation []*float64 `json:"hourly_precipitation"`
	HourlyWind          []*float64 `json:"hourly_wind"`
	HourlyWeatherCodes  []*int     `json:"hourly_weather_codes"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ForecastDay is one calendar day of the daily forecast. Values the provider
// omitted stay nil rather than zero.
type ForecastDay struct {
	Date               string   `json:"date"`
	TempMax            *float64 `json:"temp_max"`
	TempMin            *float64 `json:"temp_min"`
	TempAvg            *float64 `json:"temp_avg"`
	Precipitation      *float64 `json:"precipitation"`
	WindSpeed          *float64 `json:"wind_speed"`
	WeatherCode        *int     `json:"weather_code"`
	WeatherIcon        string   `json:"weather_icon"`
	WeatherDescription string   `json:"weather_description"`
}
