package models

import "fmt"

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NamedLocation is a searchable catalog entry, unique by (Name, Region).
type NamedLocation struct {
	Name   string  `json:"name" yaml:"name"`
	Region string  `json:"region" yaml:"region"`
	Lat    float64 `json:"lat" yaml:"lat"`
	Lng    float64 `json:"lng" yaml:"lng"`
}

// DisplayName renders "<name>, <region>".
func (l NamedLocation) DisplayName() string {
	return fmt.Sprintf("%s, %s", l.Name, l.Region)
}

// UserPosition is the device fix reported by a geolocation platform.
type UserPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p UserPosition) Coordinates() LatLng {
	return LatLng{Lat: p.Latitude, Lng: p.Longitude}
}

// SelectedLocation is the result of picking a search hit.
type SelectedLocation struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name"`
}

func (s SelectedLocation) Coordinates() LatLng {
	return LatLng{Lat: s.Lat, Lng: s.Lng}
}
