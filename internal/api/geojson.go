package api

import (
	"fmt"
	"strings"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func point(lat, lng float64) Geometry {
	return Geometry{Type: "Point", Coordinates: []float64{lng, lat}}
}

func collection(features []Feature) FeatureCollection {
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}

// populationLabel renders a head count in millions, e.g. "32.0M".
func populationLabel(n int64) string {
	return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
}

// capacityLabel groups thousands, e.g. "2,500".
func capacityLabel(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return s
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func zonesToGeoJSON(zones []models.DisasterZone) FeatureCollection {
	features := make([]Feature, 0, len(zones))

	for _, z := range zones {
		props := map[string]any{
			"id":               z.ID,
			"type":             string(z.Type),
			"risk_level":       string(z.RiskLevel),
			"color":            z.RiskLevel.Color(),
			"radius_meters":    z.RadiusMeters,
			"population":       z.Population,
			"population_label": populationLabel(z.Population),
			"nearest_hospital": z.NearestHospital,
			"last_updated":     z.LastUpdated,
		}
		if z.Prediction != nil {
			props["prediction"] = map[string]any{
				"risk_score":  z.Prediction.RiskScore,
				"next_update": z.Prediction.NextUpdate,
				"factors":     z.Prediction.Factors,
			}
		}
		features = append(features, Feature{
			Type:       "Feature",
			Geometry:   point(z.Lat, z.Lng),
			Properties: props,
		})
	}

	return collection(features)
}

func facilitiesToGeoJSON(facilities []models.Facility) FeatureCollection {
	features := make([]Feature, 0, len(facilities))

	for _, f := range facilities {
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: point(f.Lat, f.Lng),
			Properties: map[string]any{
				"id":             f.ID,
				"type":           string(f.Type),
				"label":          f.Type.Label(),
				"name":           f.Name,
				"capacity":       f.Capacity,
				"capacity_label": capacityLabel(f.Capacity),
			},
		})
	}

	return collection(features)
}
