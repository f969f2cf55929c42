package weather

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"
)

// Hourly variables requested from and decoded out of the forecast endpoint.
const (
	fieldTemperature   = "temperature_2m"
	fieldPrecipitation = "precipitation_probability"
	fieldWindSpeed     = "wind_speed_10m"
	fieldWindDirection = "wind_direction_10m"
	fieldWeatherCode   = "weather_code"
)

var hourlyFields = []string{
	fieldTemperature,
	fieldPrecipitation,
	fieldWindSpeed,
	fieldWindDirection,
	fieldWeatherCode,
}

// GeocodeResult is the decoded first match of a geocode lookup.
type GeocodeResult struct {
	Geolocation Geolocation
	Label       string // "{city}, {country}"
}

// ParseForecast decodes an open-meteo forecast body into exactly ForecastHours
// records. Any missing or wrongly typed value fails the whole decode.
func ParseForecast(body []byte) (ForecastSet, error) {
	doc, err := decodeDocument(body)
	if err != nil {
		return nil, err
	}

	hourly, _ := doc["hourly"].(map[string]any)
	temperature, _ := hourly[fieldTemperature].([]any)
	precipitation, _ := hourly[fieldPrecipitation].([]any)
	windSpeed, _ := hourly[fieldWindSpeed].([]any)
	windDirection, _ := hourly[fieldWindDirection].([]any)
	weatherCode, _ := hourly[fieldWeatherCode].([]any)

	set := make(ForecastSet, 0, ForecastHours)
	for i := 0; i < ForecastHours; i++ {
		var rec HourlyRecord
		var ok bool

		if rec.TemperatureC, ok = floatAt(temperature, i); !ok {
			return nil, &MissingFieldError{Field: fieldTemperature, Index: i}
		}
		if rec.PrecipitationProbability, ok = uintAt(precipitation, i); !ok {
			return nil, &MissingFieldError{Field: fieldPrecipitation, Index: i}
		}
		if rec.WindSpeedKmh, ok = floatAt(windSpeed, i); !ok {
			return nil, &MissingFieldError{Field: fieldWindSpeed, Index: i}
		}
		if rec.WindDirection, ok = uintAt(windDirection, i); !ok {
			return nil, &MissingFieldError{Field: fieldWindDirection, Index: i}
		}
		code, ok := uintAt(weatherCode, i)
		if !ok {
			return nil, &MissingFieldError{Field: fieldWeatherCode, Index: i}
		}
		rec.WeatherCode = WeatherCode(code)

		set = append(set, rec)
	}
	return set, nil
}

// ParseGeocode decodes the first entry of an open-meteo geocoding body.
func ParseGeocode(body []byte) (GeocodeResult, error) {
	doc, err := decodeDocument(body)
	if err != nil {
		return GeocodeResult{}, err
	}

	// open-meteo omits "results" entirely when nothing matched.
	raw, present := doc["results"]
	if !present {
		return GeocodeResult{}, ErrNoResultsFound
	}
	results, ok := raw.([]any)
	if !ok {
		return GeocodeResult{}, &MissingFieldError{Field: "results", Index: -1}
	}
	if len(results) == 0 {
		return GeocodeResult{}, ErrNoResultsFound
	}
	first, _ := results[0].(map[string]any)

	lat, ok := floatField(first, "latitude")
	if !ok {
		return GeocodeResult{}, &MissingFieldError{Field: "latitude", Index: -1}
	}
	lon, ok := floatField(first, "longitude")
	if !ok {
		return GeocodeResult{}, &MissingFieldError{Field: "longitude", Index: -1}
	}
	city, ok := first["name"].(string)
	if !ok {
		return GeocodeResult{}, &MissingFieldError{Field: "name", Index: -1}
	}
	country, ok := first["country"].(string)
	if !ok {
		return GeocodeResult{}, &MissingFieldError{Field: "country", Index: -1}
	}

	return GeocodeResult{
		Geolocation: Geolocation{Latitude: lat, Longitude: lon},
		Label:       fmt.Sprintf("%s, %s", city, country),
	}, nil
}

// decodeDocument validates the encoding, then parses a single JSON value.
// A non-object document decodes to a nil map so that field lookups report
// the missing field rather than a syntax error.
func decodeDocument(body []byte) (map[string]any, error) {
	if !utf8.Valid(body) {
		return nil, ErrEncoding
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformedPayload)
	}

	obj, _ := doc.(map[string]any)
	return obj, nil
}

func floatAt(values []any, i int) (float64, bool) {
	if i >= len(values) {
		return 0, false
	}
	return toFloat(values[i])
}

func uintAt(values []any, i int) (uint, bool) {
	if i >= len(values) {
		return 0, false
	}
	return toUint(values[i])
}

func floatField(obj map[string]any, key string) (float64, bool) {
	return toFloat(obj[key])
}

func toFloat(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// toUint accepts non-negative integral numbers, including ones written with a
// fractional part of zero.
func toUint(v any) (uint, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if u, err := strconv.ParseUint(n.String(), 10, 0); err == nil {
		return uint(u), true
	}
	f, err := n.Float64()
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxUint32 {
		return 0, false
	}
	return uint(f), true
}
