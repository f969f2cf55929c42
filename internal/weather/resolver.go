package weather

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// API Docs: https://open-meteo.com/en/docs/geocoding-api
// Sample request: https://geocoding-api.open-meteo.com/v1/search?name=Berlin&count=1&language=en&format=json
const (
	DefaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
)

// DefaultTimezoneCommand prints the system timezone, e.g. "Europe/Berlin".
var DefaultTimezoneCommand = []string{"bash", "-c", `timedatectl | grep "Time zone" | awk '{print $3}'`}

// querySpace stands in for spaces and hyphens in geocode queries.
const querySpace = "+"

var queryNormalizer = strings.NewReplacer(" ", querySpace, "-", querySpace)

// Resolver builds the outbound requests of the resolution pipeline.
type Resolver struct {
	GeocodeURL      string
	ForecastURL     string
	TimezoneCommand []string
}

// NewResolver returns a Resolver pointed at the public open-meteo endpoints.
func NewResolver() Resolver {
	return Resolver{
		GeocodeURL:      DefaultGeocodeURL,
		ForecastURL:     DefaultForecastURL,
		TimezoneCommand: DefaultTimezoneCommand,
	}
}

// Next returns the first request for a resolution attempt: a geocode lookup
// when a hint is known, otherwise local timezone discovery.
func (r Resolver) Next(hint, attempt string) Request {
	if strings.TrimSpace(hint) != "" {
		return r.Geocode(hint, attempt)
	}
	argv := make([]string, len(r.TimezoneCommand))
	copy(argv, r.TimezoneCommand)
	return CommandRequest{
		Tag:     TagTimezone,
		Attempt: attempt,
		Argv:    argv,
	}
}

// Geocode builds the lookup for a hint.
func (r Resolver) Geocode(hint, attempt string) HTTPRequest {
	return HTTPRequest{
		Tag:     TagGeocode,
		Attempt: attempt,
		Method:  http.MethodGet,
		URL: fmt.Sprintf("%s?name=%s&count=1&language=en&format=json",
			r.GeocodeURL, escapeQuery(geocodePlace(hint))),
		Header: http.Header{},
	}
}

// Weather builds the hourly forecast request for a geolocation.
func (r Resolver) Weather(geo Geolocation, attempt string) HTTPRequest {
	return HTTPRequest{
		Tag:     TagWeather,
		Attempt: attempt,
		Method:  http.MethodGet,
		URL: fmt.Sprintf("%s?latitude=%s&longitude=%s&hourly=%s",
			r.ForecastURL,
			strconv.FormatFloat(geo.Latitude, 'f', -1, 64),
			strconv.FormatFloat(geo.Longitude, 'f', -1, 64),
			strings.Join(hourlyFields, ",")),
		Header: http.Header{},
	}
}

// GeocodeQuery derives the place name from a hint. Timezone paths such as
// "America/New_York" contribute only their last segment; spaces and hyphens
// become "+".
func GeocodeQuery(hint string) string {
	return queryNormalizer.Replace(geocodePlace(hint))
}

func geocodePlace(hint string) string {
	place := strings.TrimSpace(hint)
	if i := strings.LastIndex(place, "/"); i >= 0 {
		place = place[i+1:]
	}
	return place
}

// escapeQuery percent-encodes the words of place and joins them with a
// literal "+". A "+" typed by the user is encoded like any other character.
func escapeQuery(place string) string {
	var b strings.Builder
	start := 0
	for i, r := range place {
		if r != ' ' && r != '-' {
			continue
		}
		b.WriteString(url.QueryEscape(place[start:i]))
		b.WriteString(querySpace)
		start = i + 1
	}
	b.WriteString(url.QueryEscape(place[start:]))
	return b.String()
}
