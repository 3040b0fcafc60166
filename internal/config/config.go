package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds everything the application needs at startup. It is passed
// explicitly into constructors; nothing reads the environment after Load.
type AppConfig struct {
	Port   string
	DBPath string

	// Open-Meteo endpoints. Overridable so tests can point them at local servers.
	ForecastURL string
	ArchiveURL  string
	GeocodeURL  string

	// Nominatim reverse-geocoding endpoint.
	ReverseGeocodeURL string

	// HTTPTimeout bounds weather fetches; GeocodeTimeout bounds the much
	// cheaper geocoding lookups.
	HTTPTimeout    time.Duration
	GeocodeTimeout time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.DBPath = getenvDefault("DB_PATH", "data/weather.db")

	cfg.ForecastURL = getenvDefault("OPEN_METEO_FORECAST_URL", "https://api.open-meteo.com/v1/forecast")
	cfg.ArchiveURL = getenvDefault("OPEN_METEO_ARCHIVE_URL", "https://archive-api.open-meteo.com/v1/archive")
	cfg.GeocodeURL = getenvDefault("OPEN_METEO_GEOCODE_URL", "https://geocoding-api.open-meteo.com/v1/search")
	cfg.ReverseGeocodeURL = getenvDefault("NOMINATIM_REVERSE_URL", "https://nominatim.openstreetmap.org/reverse")

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	geocodeTimeout, err := time.ParseDuration(getenvDefault("GEOCODE_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid GEOCODE_TIMEOUT: %w", err)
	}
	cfg.GeocodeTimeout = geocodeTimeout

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
