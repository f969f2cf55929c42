package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/i474232898/weather-widget/internal/timezone"
	"github.com/i474232898/weather-widget/internal/weather"
)

// HoursShown is the number of hourly rows in the forecast table.
const HoursShown = 8

const (
	controlsRun    = "Press <ENTER> to run, <Ctrl-w> to enter a new location"
	controlsReload = "Press <ENTER> to reload, <Ctrl-w> to enter a new location"
	fetchingText   = "Fetching data..."
	promptText     = "Enter desired location: "
)

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hourStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	wetStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	severeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
)

// Renderer draws a State snapshot as text. Hourly labels are shown in the
// timezone of the resolved location.
type Renderer struct {
	zones *timezone.Zones
	now   func() time.Time
	color bool

	lastGeo  weather.Geolocation
	lastZone *time.Location
}

// NewRenderer creates a Renderer. zones may be nil, in which case hours are
// shown in the local timezone.
func NewRenderer(zones *timezone.Zones, color bool) *Renderer {
	return &Renderer{
		zones: zones,
		now:   time.Now,
		color: color,
	}
}

// View returns the full screen for s.
func (r *Renderer) View(s weather.State) string {
	return strings.Join(r.Lines(s), "\n")
}

// Lines returns the screen contents for s, one entry per line.
func (r *Renderer) Lines(s weather.State) []string {
	switch s.Phase {
	case weather.PhaseError:
		lines := []string{r.paint(errorStyle, s.LastError), ""}
		if len(s.Forecast) > 0 {
			lines = append(lines, r.forecast(s)...)
			lines = append(lines, "")
		}
		return append(lines, controlsReload)
	case weather.PhaseTyping:
		return []string{r.paint(yellowStyle, promptText+s.DraftText()+"_")}
	case weather.PhaseFetching:
		return []string{r.paint(yellowStyle, fetchingText)}
	case weather.PhaseDisplaying:
		return append(r.forecast(s), "", controlsReload)
	default:
		return []string{controlsRun}
	}
}

func (r *Renderer) forecast(s weather.State) []string {
	var lines []string
	if s.Label != "" {
		lines = append(lines, r.paint(labelStyle, s.Label), "")
	}

	now := r.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := now.Hour()
	zone := r.zone(s.Geolocation)

	for i, rec := range s.Forecast.Window(start, HoursShown) {
		at := midnight.Add(time.Duration(start+i) * time.Hour).In(zone)
		description := fmt.Sprintf("%-26s", rec.WeatherCode.Description())
		if style, ok := conditionStyle(rec.Condition()); ok {
			description = r.paint(style, description)
		}
		lines = append(lines, fmt.Sprintf("%s  %s  %s  %s  %c  %gkph",
			r.paint(hourStyle, at.Format("15:04")),
			description,
			r.paint(yellowStyle, fmt.Sprintf("%6g°C", rec.TemperatureC)),
			r.paint(wetStyle, fmt.Sprintf("%3d%%", rec.PrecipitationProbability)),
			WindArrow(rec.WindDirection),
			rec.WindSpeedKmh,
		))
	}
	return lines
}

func (r *Renderer) zone(geo *weather.Geolocation) *time.Location {
	if geo == nil {
		return time.Local
	}
	if r.lastZone != nil && r.lastGeo == *geo {
		return r.lastZone
	}
	r.lastGeo = *geo
	r.lastZone = r.zones.Location(geo.Latitude, geo.Longitude)
	return r.lastZone
}

func (r *Renderer) paint(style lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return style.Render(text)
}

func conditionStyle(c weather.Condition) (lipgloss.Style, bool) {
	switch c {
	case weather.ConditionMist, weather.ConditionRain:
		return wetStyle, true
	case weather.ConditionSnow, weather.ConditionStorm:
		return severeStyle, true
	default:
		return lipgloss.Style{}, false
	}
}

// WindArrow points in the direction the wind blows towards, given the
// direction it comes from in degrees.
func WindArrow(degrees uint) rune {
	switch {
	case degrees < 45 || degrees == 360:
		return '↓' // north
	case degrees < 90:
		return '↙' // north-east
	case degrees < 135:
		return '←' // east
	case degrees < 180:
		return '↖' // south-east
	case degrees < 225:
		return '↑' // south
	case degrees < 270:
		return '↗' // south-west
	case degrees < 315:
		return '→' // west
	case degrees < 360:
		return '↘' // north-west
	default:
		return '?'
	}
}
