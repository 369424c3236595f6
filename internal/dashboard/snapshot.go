package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/go-disaster-dashboard/internal/geolocation"
	"github.com/mr1hm/go-disaster-dashboard/internal/mapview"
	"github.com/mr1hm/go-disaster-dashboard/internal/models"
	"github.com/mr1hm/go-disaster-dashboard/internal/weather"
)

const (
	GPSActive   = "GPS Active"
	GPSInactive = "No GPS"
	GPSLocating = "Locating"
)

const (
	TileHigh        = "high"
	TileNormal      = "normal"
	TileUnavailable = "unavailable"
)

// Tile thresholds at or above which a reading is flagged high.
const (
	HighTemperature = 30
	HighHumidity    = 85
	HighWindSpeed   = 20
	HighUVIndex     = 6
)

// Snapshot is a point-in-time copy of everything a client renders for one
// session. It shares no memory with the session.
type Snapshot struct {
	SessionID    string                   `json:"session_id"`
	GPSStatus    string                   `json:"gps_status"`
	Geolocation  geolocation.State        `json:"geolocation"`
	SearchText   string                   `json:"search_text"`
	Selection    *models.SelectedLocation `json:"selection,omitempty"`
	Map          mapview.View             `json:"map"`
	Weather      weather.State            `json:"weather"`
	WeatherTiles []models.WeatherTile     `json:"weather_tiles"`
	UserMarker   *UserMarker              `json:"user_marker,omitempty"`
	Filter       Filter                   `json:"filter"`
	Layers       []models.Layer           `json:"layers"`
	Stats        []models.StatCard        `json:"stats"`
	Zones        []models.DisasterZone    `json:"zones"`
	Facilities   []models.Facility        `json:"facilities"`
	Charts       models.Charts            `json:"charts"`
	Alerts       []models.RecentAlert     `json:"alerts"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// UserMarker is the popup shown on the device position.
type UserMarker struct {
	Position models.UserPosition    `json:"position"`
	Title    string                 `json:"title"`
	Lines    []string               `json:"lines"`
	Weather  *models.WeatherReading `json:"weather,omitempty"`
}

func gpsStatus(s geolocation.State) string {
	switch s.Status {
	case geolocation.StatusResolved:
		return GPSActive
	case geolocation.StatusFailed:
		return GPSInactive
	default:
		return GPSLocating
	}
}

// WeatherTiles renders the conditions strip. A nil reading yields
// placeholder tiles.
func WeatherTiles(r *models.WeatherReading) []models.WeatherTile {
	if r == nil {
		return []models.WeatherTile{
			{Label: "Temperature", Value: "--", Status: TileUnavailable},
			{Label: "Humidity", Value: "--", Status: TileUnavailable},
			{Label: "Wind Speed", Value: "--", Status: TileUnavailable},
			{Label: "UV Index", Value: "--", Status: TileUnavailable},
		}
	}
	return []models.WeatherTile{
		{Label: "Temperature", Value: fmt.Sprintf("%d°C", r.Temperature), Status: level(r.Temperature, HighTemperature)},
		{Label: "Humidity", Value: fmt.Sprintf("%d%%", r.Humidity), Status: level(r.Humidity, HighHumidity)},
		{Label: "Wind Speed", Value: fmt.Sprintf("%d km/h", r.WindSpeed), Status: level(r.WindSpeed, HighWindSpeed)},
		{Label: "UV Index", Value: fmt.Sprintf("%d", r.UVIndex), Status: level(r.UVIndex, HighUVIndex)},
	}
}

func level(v, high int) string {
	if v >= high {
		return TileHigh
	}
	return TileNormal
}

func userMarker(pos *models.UserPosition, w weather.State) *UserMarker {
	if pos == nil {
		return nil
	}
	m := &UserMarker{Position: *pos, Title: "Your Location"}
	switch {
	case w.Reading != nil:
		r := *w.Reading
		m.Weather = &r
		m.Lines = []string{
			fmt.Sprintf("Temperature: %d°C", r.Temperature),
			fmt.Sprintf("Humidity: %d%%", r.Humidity),
			fmt.Sprintf("Wind: %d km/h", r.WindSpeed),
		}
	case w.Status == weather.StatusLoading:
		m.Lines = []string{"Loading weather..."}
	default:
		m.Lines = []string{fmt.Sprintf("%.4f, %.4f", pos.Latitude, pos.Longitude)}
	}
	return m
}

// Filter is the navbar disaster-type filter.
type Filter string

const FilterAll Filter = "all"

func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	if models.ZoneType(s).Valid() {
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown disaster type %q", s)
}

func (f Filter) matches(t models.ZoneType) bool {
	return f == FilterAll || f == "" || Filter(t) == f
}

// LayerKey returns the sidebar layer controlling a zone type.
func LayerKey(t models.ZoneType) string {
	return string(t) + "s"
}

// FacilityLayerKey returns the sidebar layer controlling a facility type.
func FacilityLayerKey(t models.FacilityType) string {
	return string(t) + "s"
}

func layerEnabled(layers []models.Layer, key string) bool {
	for _, l := range layers {
		if l.Key == key {
			return l.Enabled
		}
	}
	// Items without a layer toggle are always shown.
	return true
}

// VisibleZones applies the type filter and the layer toggles.
func VisibleZones(zones []models.DisasterZone, f Filter, layers []models.Layer) []models.DisasterZone {
	out := make([]models.DisasterZone, 0, len(zones))
	for _, z := range zones {
		if f.matches(z.Type) && layerEnabled(layers, LayerKey(z.Type)) {
			out = append(out, z)
		}
	}
	return out
}

// VisibleFacilities applies the layer toggles. The type filter does not
// hide facilities.
func VisibleFacilities(facilities []models.Facility, layers []models.Layer) []models.Facility {
	out := make([]models.Facility, 0, len(facilities))
	for _, fac := range facilities {
		if layerEnabled(layers, FacilityLayerKey(fac.Type)) {
			out = append(out, fac)
		}
	}
	return out
}
