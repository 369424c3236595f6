package models

type AlertSeverity string

const (
	AlertSeverityLow    AlertSeverity = "low"
	AlertSeverityMedium AlertSeverity = "medium"
	AlertSeverityHigh   AlertSeverity = "high"
)

// RecentAlert is a sidebar feed entry. Age is a display string ("5 mins ago").
type RecentAlert struct {
	ID       int           `json:"id" yaml:"id"`
	Type     ZoneType      `json:"type" yaml:"type"`
	Location string        `json:"location" yaml:"location"`
	Severity AlertSeverity `json:"severity" yaml:"severity"`
	Age      string        `json:"age" yaml:"age"`
	Message  string        `json:"message" yaml:"message"`
}
