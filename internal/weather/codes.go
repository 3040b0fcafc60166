package weather

// CodeInfo carries the rendered form of a WMO weather interpretation code.
type CodeInfo struct {
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// weatherCodes maps Open-Meteo WMO codes (0-99) to icon and description.
// Read-only after init; never mutated at runtime.
var weatherCodes = map[int]CodeInfo{
	0:  {"☀️", "Clear sky"},
	1:  {"🌤️", "Mainly clear"},
	2:  {"⛅", "Partly cloudy"},
	3:  {"☁️", "Overcast"},
	45: {"🌫️", "Fog"},
	48: {"🌫️", "Depositing rime fog"},
	51: {"🌦️", "Light drizzle"},
	53: {"🌦️", "Moderate drizzle"},
	55: {"🌧️", "Dense drizzle"},
	56: {"🌨️", "Light freezing drizzle"},
	57: {"🌨️", "Dense freezing drizzle"},
	61: {"🌧️", "Slight rain"},
	63: {"🌧️", "Moderate rain"},
	65: {"🌧️", "Heavy rain"},
	66: {"🌨️", "Light freezing rain"},
	67: {"🌨️", "Heavy freezing rain"},
	71: {"❄️", "Slight snow fall"},
	73: {"❄️", "Moderate snow fall"},
	75: {"❄️", "Heavy snow fall"},
	77: {"❄️", "Snow grains"},
	80: {"🌦️", "Slight rain showers"},
	81: {"🌧️", "Moderate rain showers"},
	82: {"🌧️", "Violent rain showers"},
	85: {"🌨️", "Slight snow showers"},
	86: {"🌨️", "Heavy snow showers"},
	95: {"⛈️", "Thunderstorm"},
	96: {"⛈️", "Thunderstorm with slight hail"},
	99: {"⛈️", "Thunderstorm with heavy hail"},
}

const (
	defaultIcon        = "🌤️"
	defaultDescription = "Unknown"
)

// LookupCode returns icon and description for a weather code, falling back to
// neutral defaults for unknown or missing codes.
func LookupCode(code *int) CodeInfo {
	if code == nil {
		return CodeInfo{Icon: defaultIcon, Description: defaultDescription}
	}
	info, ok := weatherCodes[*code]
	if !ok {
		return CodeInfo{Icon: defaultIcon, Description: defaultDescription}
	}
	return info
}
