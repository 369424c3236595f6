package search

import (
	"strings"
	"unicode/utf8"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

const (
	// MaxResults caps the number of hits returned for one term.
	MaxResults = 5
	// MinTermLength is the shortest term, in characters, that produces results.
	MinTermLength = 2
)

// Selection is what picking a result produces for the caller.
type Selection struct {
	Location    models.SelectedLocation `json:"location"`
	InputText   string                  `json:"input_text"`
	ShowResults bool                    `json:"show_results"`
}

type Engine struct {
	locations []models.NamedLocation
	lowered   []lowered
}

type lowered struct {
	name, region string
}

// NewEngine indexes locations in the given order. The slice is copied.
func NewEngine(locations []models.NamedLocation) *Engine {
	e := &Engine{
		locations: append([]models.NamedLocation(nil), locations...),
		lowered:   make([]lowered, len(locations)),
	}
	for i, l := range locations {
		e.lowered[i] = lowered{
			name:   strings.ToLower(l.Name),
			region: strings.ToLower(l.Region),
		}
	}
	return e
}

// Search returns up to MaxResults locations whose name or region contains
// term, case-insensitively, in catalog order. Terms shorter than
// MinTermLength return nothing.
func (e *Engine) Search(term string) []models.NamedLocation {
	if utf8.RuneCountInString(term) < MinTermLength {
		return []models.NamedLocation{}
	}

	needle := strings.ToLower(term)
	results := make([]models.NamedLocation, 0, MaxResults)
	for i, l := range e.lowered {
		if strings.Contains(l.name, needle) || strings.Contains(l.region, needle) {
			results = append(results, e.locations[i])
			if len(results) == MaxResults {
				break
			}
		}
	}
	return results
}

// ShowResults reports whether the results panel should be visible for term.
func ShowResults(term string, results []models.NamedLocation) bool {
	return utf8.RuneCountInString(term) >= MinTermLength && len(results) > 0
}

// Lookup finds a catalog entry by exact name and region.
func (e *Engine) Lookup(name, region string) (models.NamedLocation, bool) {
	for _, l := range e.locations {
		if l.Name == name && l.Region == region {
			return l, true
		}
	}
	return models.NamedLocation{}, false
}

// Select turns a result into the selected location and hides the panel.
func Select(loc models.NamedLocation) Selection {
	name := loc.DisplayName()
	return Selection{
		Location: models.SelectedLocation{
			Lat:  loc.Lat,
			Lng:  loc.Lng,
			Name: name,
		},
		InputText:   name,
		ShowResults: false,
	}
}
