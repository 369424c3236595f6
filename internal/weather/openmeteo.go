package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
	"github.com/mr1hm/go-disaster-dashboard/internal/resilience"
)

const DefaultOpenMeteoURL = "https://api.open-meteo.com"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OpenMeteoSource reads current conditions from the Open-Meteo forecast API.
type OpenMeteoSource struct {
	baseURL string
	client  HTTPDoer
	now     func() time.Time
}

// NewOpenMeteoSource uses a resilient client when client is nil.
func NewOpenMeteoSource(baseURL string, client HTTPDoer) *OpenMeteoSource {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	if client == nil {
		client = resilience.NewClient(resilience.DefaultConfig("open-meteo"))
	}
	return &OpenMeteoSource{baseURL: baseURL, client: client, now: time.Now}
}

type openMeteoResponse struct {
	Current struct {
		Temperature   float64 `json:"temperature_2m"`
		Humidity      float64 `json:"relative_humidity_2m"`
		WindSpeed     float64 `json:"wind_speed_10m"` // km/h
		Precipitation float64 `json:"precipitation"`  // mm
		WeatherCode   int     `json:"weather_code"`
		UVIndex       float64 `json:"uv_index"`
	} `json:"current"`
}

func (o *OpenMeteoSource) Fetch(ctx context.Context, lat, lng float64) (models.WeatherReading, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lng, 'f', 4, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,precipitation,weather_code,uv_index")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/v1/forecast?"+q.Encode(), http.NoBody)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("%w: error creating request: %v", ErrSimulationFailure, err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("%w: error doing request: %v", ErrSimulationFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.WeatherReading{}, fmt.Errorf("%w: unexpected status code: %d", ErrSimulationFailure, resp.StatusCode)
	}

	var data openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return models.WeatherReading{}, fmt.Errorf("%w: error decoding resp.Body: %v", ErrSimulationFailure, err)
	}

	c := data.Current
	return models.WeatherReading{
		Temperature: int(math.Round(c.Temperature)),
		Humidity:    int(math.Round(c.Humidity)),
		WindSpeed:   int(math.Round(c.WindSpeed)),
		Rainfall:    int(math.Round(c.Precipitation)),
		Description: describeWMO(c.WeatherCode),
		UVIndex:     int(math.Round(c.UVIndex)),
		FetchedAt:   o.now(),
	}, nil
}

// describeWMO folds WMO weather codes into the dashboard vocabulary.
func describeWMO(code int) string {
	switch {
	case code <= 1:
		return "Clear sky"
	case code == 2:
		return "Partly cloudy"
	case code == 3 || code == 45 || code == 48:
		return "Overcast"
	default:
		return "Light rain"
	}
}
