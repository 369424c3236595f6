package models

type ChangeType string

const (
	ChangeIncrease ChangeType = "increase"
	ChangeDecrease ChangeType = "decrease"
	ChangeNeutral  ChangeType = "neutral"
)

type StatCard struct {
	Title      string     `json:"title" yaml:"title"`
	Value      string     `json:"value" yaml:"value"`
	Change     string     `json:"change" yaml:"change"`
	ChangeType ChangeType `json:"change_type" yaml:"change_type"`
}

// WeatherTile is one cell of the "current conditions" strip.
type WeatherTile struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Status string `json:"status"` // "high", "normal" or "unavailable"
}

type MonthlyClimate struct {
	Month       string `json:"month" yaml:"month"`
	Rainfall    int    `json:"rainfall" yaml:"rainfall"`
	Temperature int    `json:"temperature" yaml:"temperature"`
}

type TypeShare struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"` // percent
	Count int    `json:"count" yaml:"count"`
}

type RiskCount struct {
	Level string `json:"level" yaml:"level"`
	Count int    `json:"count" yaml:"count"`
	Color string `json:"color" yaml:"color"`
}

type Charts struct {
	Climate    []MonthlyClimate `json:"climate" yaml:"climate"`
	TypeShares []TypeShare      `json:"type_shares" yaml:"type_shares"`
	RiskCounts []RiskCount      `json:"risk_counts" yaml:"risk_counts"`
}

// Layer is a sidebar map-layer toggle.
type Layer struct {
	Key     string `json:"key" yaml:"key"`
	Label   string `json:"label" yaml:"label"`
	Count   int    `json:"count" yaml:"count"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}
