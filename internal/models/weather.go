package models

import "time"

type WeatherReading struct {
	Temperature int       `json:"temperature"` // °C
	Humidity    int       `json:"humidity"`    // %
	WindSpeed   int       `json:"wind_speed"`  // km/h
	Rainfall    int       `json:"rainfall"`    // mm
	Description string    `json:"description"`
	UVIndex     int       `json:"uv_index"`
	FetchedAt   time.Time `json:"fetched_at"`
}
