package models

import "time"

type RiskLevel string

const (
	RiskLevelHigh   RiskLevel = "high"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelLow    RiskLevel = "low"
	RiskLevelSafe   RiskLevel = "safe"
)

// Rank orders risk levels for "at least" filters: safe < low < medium < high.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLevelSafe:
		return 1
	case RiskLevelLow:
		return 2
	case RiskLevelMedium:
		return 3
	case RiskLevelHigh:
		return 4
	default:
		return 0
	}
}

func (r RiskLevel) Valid() bool {
	return r.Rank() > 0
}

// Color is the fill used for zone circles and badges.
func (r RiskLevel) Color() string {
	switch r {
	case RiskLevelHigh:
		return "#ef4444"
	case RiskLevelMedium:
		return "#f97316"
	case RiskLevelLow:
		return "#eab308"
	case RiskLevelSafe:
		return "#22c55e"
	default:
		return "#6b7280"
	}
}

type ZoneType string

const (
	ZoneTypeFlood    ZoneType = "flood"
	ZoneTypeCyclone  ZoneType = "cyclone"
	ZoneTypeDrought  ZoneType = "drought"
	ZoneTypeHeatwave ZoneType = "heatwave"
)

var ZoneTypes = []ZoneType{ZoneTypeFlood, ZoneTypeCyclone, ZoneTypeDrought, ZoneTypeHeatwave}

func (t ZoneType) Valid() bool {
	for _, zt := range ZoneTypes {
		if t == zt {
			return true
		}
	}
	return false
}

type Prediction struct {
	RiskScore  float64   `json:"risk_score" yaml:"risk_score"` // 0-10
	NextUpdate time.Time `json:"next_update" yaml:"next_update"`
	Factors    []string  `json:"factors" yaml:"factors"`
}

// DisasterZone is a mock circular risk area. Never mutated after load.
type DisasterZone struct {
	ID              string      `json:"id" yaml:"id"`
	Lat             float64     `json:"lat" yaml:"lat"`
	Lng             float64     `json:"lng" yaml:"lng"`
	RadiusMeters    float64     `json:"radius_meters" yaml:"radius_meters"`
	RiskLevel       RiskLevel   `json:"risk_level" yaml:"risk_level"`
	Type            ZoneType    `json:"type" yaml:"type"`
	Population      int64       `json:"population" yaml:"population"`
	NearestHospital string      `json:"nearest_hospital" yaml:"nearest_hospital"`
	LastUpdated     time.Time   `json:"last_updated" yaml:"last_updated"`
	Prediction      *Prediction `json:"prediction,omitempty" yaml:"prediction,omitempty"`
}

func (z DisasterZone) Coordinates() LatLng {
	return LatLng{Lat: z.Lat, Lng: z.Lng}
}

type FacilityType string

const (
	FacilityTypeHospital FacilityType = "hospital"
	FacilityTypeShelter  FacilityType = "shelter"
)

func (t FacilityType) Valid() bool {
	return t == FacilityTypeHospital || t == FacilityTypeShelter
}

// Label is the popup wording for a facility type.
func (t FacilityType) Label() string {
	if t == FacilityTypeHospital {
		return "Hospital"
	}
	return "Emergency Shelter"
}

type Facility struct {
	ID       string       `json:"id" yaml:"id"`
	Lat      float64      `json:"lat" yaml:"lat"`
	Lng      float64      `json:"lng" yaml:"lng"`
	Type     FacilityType `json:"type" yaml:"type"`
	Name     string       `json:"name" yaml:"name"`
	Capacity int          `json:"capacity" yaml:"capacity"`
}
