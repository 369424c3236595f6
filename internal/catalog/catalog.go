// Package catalog holds the fixed dashboard data set: searchable locations,
// mock risk zones, facilities and the chart/stat fixtures. It is loaded once
// from an embedded YAML document and is read-only afterwards.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

//go:embed catalog.yaml
var embedded []byte

type document struct {
	Locations  []models.NamedLocation `yaml:"locations"`
	Zones      []models.DisasterZone  `yaml:"zones"`
	Facilities []models.Facility      `yaml:"facilities"`
	Stats      []models.StatCard      `yaml:"stats"`
	Charts     models.Charts          `yaml:"charts"`
	Alerts     []models.RecentAlert   `yaml:"alerts"`
	Layers     []models.Layer         `yaml:"layers"`
}

type Catalog struct {
	doc document
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error decoding catalog: %w", err)
	}

	c := &Catalog{doc: doc}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return c, nil
}

// MustLoad is Load for tests and package-level fixtures.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

type locationKey struct {
	name, region string
}

func (c *Catalog) validate() error {
	if len(c.doc.Locations) == 0 {
		return fmt.Errorf("no locations")
	}

	seen := make(map[locationKey]bool, len(c.doc.Locations))
	for _, l := range c.doc.Locations {
		if l.Name == "" || l.Region == "" {
			return fmt.Errorf("location missing name or region: %+v", l)
		}
		k := locationKey{l.Name, l.Region}
		if seen[k] {
			return fmt.Errorf("duplicate location: %s", l.DisplayName())
		}
		seen[k] = true
		if err := checkCoordinates(l.Lat, l.Lng); err != nil {
			return fmt.Errorf("location %s: %w", l.DisplayName(), err)
		}
	}

	zoneIDs := make(map[string]bool, len(c.doc.Zones))
	for _, z := range c.doc.Zones {
		if zoneIDs[z.ID] {
			return fmt.Errorf("duplicate zone id: %s", z.ID)
		}
		zoneIDs[z.ID] = true
		if !z.RiskLevel.Valid() {
			return fmt.Errorf("zone %s: invalid risk level %q", z.ID, z.RiskLevel)
		}
		if !z.Type.Valid() {
			return fmt.Errorf("zone %s: invalid type %q", z.ID, z.Type)
		}
		if z.RadiusMeters <= 0 {
			return fmt.Errorf("zone %s: radius must be positive", z.ID)
		}
		if err := checkCoordinates(z.Lat, z.Lng); err != nil {
			return fmt.Errorf("zone %s: %w", z.ID, err)
		}
	}

	facilityIDs := make(map[string]bool, len(c.doc.Facilities))
	for _, f := range c.doc.Facilities {
		if facilityIDs[f.ID] {
			return fmt.Errorf("duplicate facility id: %s", f.ID)
		}
		facilityIDs[f.ID] = true
		if !f.Type.Valid() {
			return fmt.Errorf("facility %s: invalid type %q", f.ID, f.Type)
		}
		if err := checkCoordinates(f.Lat, f.Lng); err != nil {
			return fmt.Errorf("facility %s: %w", f.ID, err)
		}
	}

	return nil
}

func checkCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude out of range: %f", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude out of range: %f", lng)
	}
	return nil
}

// Locations returns the searchable locations in catalog order.
func (c *Catalog) Locations() []models.NamedLocation {
	return append([]models.NamedLocation(nil), c.doc.Locations...)
}

func (c *Catalog) Zones() []models.DisasterZone {
	zones := make([]models.DisasterZone, len(c.doc.Zones))
	for i, z := range c.doc.Zones {
		if z.Prediction != nil {
			p := *z.Prediction
			p.Factors = append([]string(nil), p.Factors...)
			z.Prediction = &p
		}
		zones[i] = z
	}
	return zones
}

func (c *Catalog) Facilities() []models.Facility {
	return append([]models.Facility(nil), c.doc.Facilities...)
}

func (c *Catalog) Stats() []models.StatCard {
	return append([]models.StatCard(nil), c.doc.Stats...)
}

func (c *Catalog) Charts() models.Charts {
	return models.Charts{
		Climate:    append([]models.MonthlyClimate(nil), c.doc.Charts.Climate...),
		TypeShares: append([]models.TypeShare(nil), c.doc.Charts.TypeShares...),
		RiskCounts: append([]models.RiskCount(nil), c.doc.Charts.RiskCounts...),
	}
}

func (c *Catalog) Alerts() []models.RecentAlert {
	return append([]models.RecentAlert(nil), c.doc.Alerts...)
}

// Layers returns the sidebar toggles with their default state.
func (c *Catalog) Layers() []models.Layer {
	return append([]models.Layer(nil), c.doc.Layers...)
}
