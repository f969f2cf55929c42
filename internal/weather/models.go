package weather

import (
	"fmt"
	"time"
)

// ForecastHours is the number of hourly samples decoded from a forecast
// response, indices 0..166 (roughly seven days).
const ForecastHours = 167

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// HourlyRecord is one forecast sample for a given hour offset.
type HourlyRecord struct {
	TemperatureC             float64     `json:"temperatureC"`
	PrecipitationProbability uint        `json:"precipitationProbability"`
	WindSpeedKmh             float64     `json:"windSpeedKmh"`
	WindDirection            uint        `json:"windDirection"`
	WeatherCode              WeatherCode `json:"weatherCode"`
}

// Condition maps the record's WMO code to a coarse condition.
func (r HourlyRecord) Condition() Condition {
	return r.WeatherCode.Condition()
}

// ForecastSet is the hourly forecast indexed by hour offset from 00:00 GMT of
// the day the forecast was requested. The slice index is the hour key, so
// iteration is always in ascending key order.
//
// A ForecastSet is never modified after decoding; a new fetch replaces it.
type ForecastSet []HourlyRecord

// At returns the record for the given hour offset.
func (f ForecastSet) At(hour int) (HourlyRecord, bool) {
	if hour < 0 || hour >= len(f) {
		return HourlyRecord{}, false
	}
	return f[hour], true
}

// Window returns up to n records starting at hour, clamped to the set.
func (f ForecastSet) Window(hour, n int) ForecastSet {
	if hour < 0 {
		hour = 0
	}
	if hour >= len(f) || n <= 0 {
		return nil
	}
	end := hour + n
	if end > len(f) {
		end = len(f)
	}
	return f[hour:end]
}

// Geolocation is a resolved latitude/longitude pair.
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (g Geolocation) String() string {
	return fmt.Sprintf("%.4f,%.4f", g.Latitude, g.Longitude)
}

// ForecastSnapshot is a successfully fetched forecast together with the
// location it was fetched for.
type ForecastSnapshot struct {
	Label       string      `json:"label"`
	Geolocation Geolocation `json:"geolocation"`
	Forecast    ForecastSet `json:"forecast"`
	FetchedAt   time.Time   `json:"fetchedAt"` // always UTC
}

// WeatherCode is a WMO weather interpretation code.
type WeatherCode uint

const (
	ClearSky                     WeatherCode = 0
	MainlyClear                  WeatherCode = 1
	PartlyCloudy                 WeatherCode = 2
	Overcast                     WeatherCode = 3
	Fog                          WeatherCode = 45
	DepositingRimeFog            WeatherCode = 48
	DrizzleLight                 WeatherCode = 51
	DrizzleModerate              WeatherCode = 53
	DrizzleDense                 WeatherCode = 55
	FreezingDrizzleLight         WeatherCode = 56
	FreezingDrizzleDense         WeatherCode = 57
	RainSlight                   WeatherCode = 61
	RainModerate                 WeatherCode = 63
	RainHeavy                    WeatherCode = 65
	FreezingRainLight            WeatherCode = 66
	FreezingRainHeavy            WeatherCode = 67
	SnowFallSlight               WeatherCode = 71
	SnowFallModerate             WeatherCode = 73
	SnowFallHeavy                WeatherCode = 75
	SnowGrains                   WeatherCode = 77
	RainShowersSlight            WeatherCode = 80
	RainShowersModerate          WeatherCode = 81
	RainShowersViolent           WeatherCode = 82
	SnowShowersSlight            WeatherCode = 85
	SnowShowersHeavy             WeatherCode = 86
	ThunderstormSlightOrModerate WeatherCode = 95
	ThunderstormWithSlightHail   WeatherCode = 96
	ThunderstormWithHeavyHail    WeatherCode = 99
)

var weatherDescriptions = map[WeatherCode]string{
	ClearSky:                     "CLEAR SKY",
	MainlyClear:                  "MAINLY CLEAR",
	PartlyCloudy:                 "PARTLY CLOUDY",
	Overcast:                     "OVERCAST",
	Fog:                          "FOG",
	DepositingRimeFog:            "FOG",
	DrizzleLight:                 "LIGHT DRIZZLE",
	DrizzleModerate:              "MODERATE DRIZZLE",
	DrizzleDense:                 "DENSE DRIZZLE",
	FreezingDrizzleLight:         "FREEZING DRIZZLE (LIGHT)",
	FreezingDrizzleDense:         "FREEZING DRIZZLE (DENSE)",
	RainSlight:                   "SLIGHT RAIN",
	RainModerate:                 "MODERATE RAIN",
	RainHeavy:                    "HEAVY RAIN",
	FreezingRainLight:            "FREEZING RAIN (LIGHT)",
	FreezingRainHeavy:            "FREEZING RAIN (HEAVY)",
	SnowFallSlight:               "SLIGHT SNOW",
	SnowFallModerate:             "MODERATE SNOW",
	SnowFallHeavy:                "HEAVY SNOW",
	SnowGrains:                   "SNOW GRAINS",
	RainShowersSlight:            "RAIN SHOWERS (SLIGHT)",
	RainShowersModerate:          "RAIN SHOWERS (MODERATE)",
	RainShowersViolent:           "RAIN SHOWERS (VIOLENT)",
	SnowShowersSlight:            "SNOW SHOWERS (SLIGHT)",
	SnowShowersHeavy:             "SNOW SHOWERS (HEAVY)",
	ThunderstormSlightOrModerate: "THUNDERSTORM",
	ThunderstormWithSlightHail:   "THUNDERSTORM (SLIGHT HAIL)",
	ThunderstormWithHeavyHail:    "THUNDERSTORM (HEAVY HAIL)",
}

// Description returns the display text for the code, or "" when unknown.
func (c WeatherCode) Description() string {
	return weatherDescriptions[c]
}

// Condition maps WMO codes onto the coarse Condition set.
func (c WeatherCode) Condition() Condition {
	switch {
	case c == ClearSky:
		return ConditionClear
	case c >= MainlyClear && c <= Overcast:
		return ConditionCloudy
	case c == Fog || c == DepositingRimeFog:
		return ConditionMist
	case (c >= DrizzleLight && c <= FreezingRainHeavy) || (c >= RainShowersSlight && c <= RainShowersViolent):
		return ConditionRain
	case (c >= SnowFallSlight && c <= SnowGrains) || c == SnowShowersSlight || c == SnowShowersHeavy:
		return ConditionSnow
	case c >= ThunderstormSlightOrModerate:
		return ConditionStorm
	default:
		return ConditionUnknown
	}
}
