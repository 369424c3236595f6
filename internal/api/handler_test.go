package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-dashboard/internal/catalog"
	"github.com/mr1hm/go-disaster-dashboard/internal/dashboard"
	"github.com/mr1hm/go-disaster-dashboard/internal/geolocation"
	"github.com/mr1hm/go-disaster-dashboard/internal/metrics"
	"github.com/mr1hm/go-disaster-dashboard/internal/models"
	"github.com/mr1hm/go-disaster-dashboard/internal/repository"
	"github.com/mr1hm/go-disaster-dashboard/internal/weather"
)

// mockStore implements Store for testing
type mockStore struct {
	zones      []models.DisasterZone
	facilities []models.Facility
	pingErr    error
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockStore) AddZone(ctx context.Context, z *models.DisasterZone) error {
	m.zones = append(m.zones, *z)
	return nil
}

func (m *mockStore) GetZone(ctx context.Context, id string) (*models.DisasterZone, error) {
	for _, z := range m.zones {
		if z.ID == id {
			return &z, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockStore) ListZones(ctx context.Context, opts repository.ZoneFilter) ([]models.DisasterZone, error) {
	results := m.zones

	if opts.Type != nil {
		var filtered []models.DisasterZone
		for _, z := range results {
			if z.Type == *opts.Type {
				filtered = append(filtered, z)
			}
		}
		results = filtered
	}

	if opts.MinRiskLevel != nil {
		var filtered []models.DisasterZone
		for _, z := range results {
			if z.RiskLevel.Rank() >= opts.MinRiskLevel.Rank() {
				filtered = append(filtered, z)
			}
		}
		results = filtered
	}

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return results, nil
}

func (m *mockStore) AddFacility(ctx context.Context, f *models.Facility) error {
	m.facilities = append(m.facilities, *f)
	return nil
}

func (m *mockStore) ListFacilities(ctx context.Context, opts repository.FacilityFilter) ([]models.Facility, error) {
	var results []models.Facility
	for _, f := range m.facilities {
		if opts.Type == nil || f.Type == *opts.Type {
			results = append(results, f)
		}
	}
	return results, nil
}

func catalogStore() *mockStore {
	cat := catalog.MustLoad()
	return &mockStore{zones: cat.Zones(), facilities: cat.Facilities()}
}

func setupTestRouter(t *testing.T, store Store) (*gin.Engine, *dashboard.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat := catalog.MustLoad()
	svc := weather.NewService(weather.NewSimulator(0, nil), 1, 10, nil)
	svc.Start(context.Background())

	manager := dashboard.NewManager(cat, svc, nil, nil, dashboard.Config{
		Geolocation: geolocation.Options{Timeout: 2 * time.Second},
	})
	t.Cleanup(func() {
		manager.Shutdown()
		svc.Stop()
	})

	m := metrics.NewCollector("test")
	router := gin.New()
	router.Use(MetricsMiddleware(m))
	handler := NewHandler(manager, store, cat, m)
	handler.RegisterRoutes(router)
	return router, manager
}

func do(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, router *gin.Engine) dashboard.Snapshot {
	t.Helper()
	w := do(router, "POST", "/api/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}
	var snap dashboard.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to parse snapshot: %v", err)
	}
	return snap
}

func TestHealth(t *testing.T) {
	router, _ := setupTestRouter(t, &mockStore{})

	w := do(router, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestHealth_StoreDown(t *testing.T) {
	router, _ := setupTestRouter(t, &mockStore{pingErr: errors.New("database is closed")})

	w := do(router, "GET", "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestSearchLocations(t *testing.T) {
	router, _ := setupTestRouter(t, &mockStore{})

	w := do(router, "GET", "/api/locations/search?q=mum", nil)
	var resp struct {
		Results     []models.NamedLocation `json:"results"`
		ShowResults bool                   `json:"show_results"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	if len(resp.Results) != 1 || resp.Results[0].Name != "Mumbai" || !resp.ShowResults {
		t.Errorf("unexpected search response %+v", resp)
	}

	w = do(router, "GET", "/api/locations/search?q=m", nil)
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 0 || resp.ShowResults {
		t.Errorf("expected no results for a one-letter term, got %+v", resp)
	}
}

func TestGetZones_ReturnsGeoJSON(t *testing.T) {
	router, _ := setupTestRouter(t, catalogStore())

	w := do(router, "GET", "/api/zones", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/geo+json" {
		t.Errorf("expected content-type application/geo+json, got %s", contentType)
	}

	var fc FeatureCollection
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 3 {
		t.Fatalf("expected 3 features, got %+v", fc)
	}

	delhi := fc.Features[0]
	if delhi.Geometry.Coordinates[0] != 77.2090 || delhi.Geometry.Coordinates[1] != 28.6139 {
		t.Errorf("expected [lng, lat], got %v", delhi.Geometry.Coordinates)
	}
	if delhi.Properties["color"] != "#ef4444" {
		t.Errorf("expected high risk colour, got %v", delhi.Properties["color"])
	}
	if delhi.Properties["population_label"] != "32.0M" {
		t.Errorf("expected population label 32.0M, got %v", delhi.Properties["population_label"])
	}
	if _, ok := delhi.Properties["prediction"]; !ok {
		t.Error("expected prediction block")
	}
}

func TestGetZones_Filters(t *testing.T) {
	router, _ := setupTestRouter(t, catalogStore())

	var fc FeatureCollection
	w := do(router, "GET", "/api/zones?type=cyclone", nil)
	json.Unmarshal(w.Body.Bytes(), &fc)
	if len(fc.Features) != 1 {
		t.Errorf("expected 1 cyclone zone, got %d", len(fc.Features))
	}

	w = do(router, "GET", "/api/zones?min_risk_level=medium", nil)
	json.Unmarshal(w.Body.Bytes(), &fc)
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 zones at or above medium, got %d", len(fc.Features))
	}

	w = do(router, "GET", "/api/zones?limit=1", nil)
	json.Unmarshal(w.Body.Bytes(), &fc)
	if len(fc.Features) != 1 {
		t.Errorf("expected 1 zone with limit, got %d", len(fc.Features))
	}
}

func TestGetFacilities(t *testing.T) {
	router, _ := setupTestRouter(t, catalogStore())

	w := do(router, "GET", "/api/facilities?type=hospital", nil)
	var fc FeatureCollection
	json.Unmarshal(w.Body.Bytes(), &fc)

	if len(fc.Features) != 3 {
		t.Fatalf("expected 3 hospitals, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["label"] != "Hospital" || fc.Features[0].Properties["capacity_label"] != "2,500" {
		t.Errorf("unexpected facility properties %v", fc.Features[0].Properties)
	}
}

func TestSessionLifecycle(t *testing.T) {
	router, manager := setupTestRouter(t, &mockStore{})

	snap := createSession(t, router)
	if snap.GPSStatus != dashboard.GPSLocating {
		t.Errorf("expected %q, got %q", dashboard.GPSLocating, snap.GPSStatus)
	}

	w := do(router, "POST", "/api/sessions/"+snap.SessionID+"/position", gin.H{"latitude": 18.52, "longitude": 73.85})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := manager.WaitGeolocation(ctx, snap.SessionID); err != nil {
		t.Fatalf("geolocation did not settle: %v", err)
	}

	w = do(router, "POST", "/api/sessions/"+snap.SessionID+"/position", gin.H{"latitude": 1.0, "longitude": 1.0})
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409 for a second report, got %d", w.Code)
	}

	w = do(router, "GET", "/api/sessions/"+snap.SessionID, nil)
	var got dashboard.Snapshot
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.GPSStatus != dashboard.GPSActive {
		t.Errorf("expected %q, got %q", dashboard.GPSActive, got.GPSStatus)
	}

	w = do(router, "DELETE", "/api/sessions/"+snap.SessionID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	w = do(router, "GET", "/api/sessions/"+snap.SessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after close, got %d", w.Code)
	}
}

func TestReportPosition_Error(t *testing.T) {
	router, manager := setupTestRouter(t, &mockStore{})
	snap := createSession(t, router)

	w := do(router, "POST", "/api/sessions/"+snap.SessionID+"/position",
		gin.H{"error": gin.H{"code": 3, "message": "Timeout expired"}})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", w.Code)
	}

	st, _ := manager.WaitGeolocation(context.Background(), snap.SessionID)
	if st.Error == nil || st.Error.Kind != geolocation.KindTimeout {
		t.Errorf("expected timeout failure, got %+v", st)
	}
}

func TestReportPosition_Invalid(t *testing.T) {
	router, _ := setupTestRouter(t, &mockStore{})
	snap := createSession(t, router)

	tests := []struct {
		name string
		body any
	}{
		{"empty body", gin.H{}},
		{"latitude out of range", gin.H{"latitude": 91.0, "longitude": 0.0}},
		{"unknown error code", gin.H{"error": gin.H{"code": 7}}},
	}
	for _, tt := range tests {
		w := do(router, "POST", "/api/sessions/"+snap.SessionID+"/position", tt.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", tt.name, w.Code)
		}
	}
}

func TestSelectionAndMap(t *testing.T) {
	router, _ := setupTestRouter(t, &mockStore{})
	snap := createSession(t, router)

	w := do(router, "POST", "/api/sessions/"+snap.SessionID+"/selection", gin.H{"name": "Jaipur", "region": "Rajasthan"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var got dashboard.Snapshot
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.SearchText != "Jaipur, Rajasthan" {
		t.Errorf("unexpected search text %q", got.SearchText)
	}

	w = do(router, "GET", "/api/sessions/"+snap.SessionID+"/map", nil)
	var resp mapResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.View.Center != (models.LatLng{Lat: 26.9124, Lng: 75.7873}) || resp.View.Zoom != 10 {
		t.Errorf("expected map on Jaipur, got %+v", resp.View)
	}
	if len(resp.Zones.Features) != 3 || len(resp.Facilities.Features) != 5 {
		t.Errorf("expected all zones and facilities, got %d and %d",
			len(resp.Zones.Features), len(resp.Facilities.Features))
	}

	w = do(router, "POST", "/api/sessions/"+snap.SessionID+"/selection", gin.H{"name": "Atlantis", "region": "Ocean"})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for an unknown location, got %d", w.Code)
	}
}

func TestFilterAndLayers(t *testing.T) {
	router, _ := setupTestRouter(t, &mockStore{})
	snap := createSession(t, router)
	base := "/api/sessions/" + snap.SessionID

	w := do(router, "PUT", base+"/filter", gin.H{"type": "heatwave"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var got dashboard.Snapshot
	json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Zones) != 1 || got.Zones[0].Type != models.ZoneTypeHeatwave {
		t.Errorf("expected the heatwave zone only, got %+v", got.Zones)
	}

	w = do(router, "PUT", base+"/filter", gin.H{"type": "tsunami"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for an unknown type, got %d", w.Code)
	}

	w = do(router, "PUT", base+"/layers/shelters", gin.H{"enabled": false})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var layers []models.Layer
	json.Unmarshal(w.Body.Bytes(), &layers)
	for _, l := range layers {
		if l.Key == "shelters" && l.Enabled {
			t.Error("expected shelters disabled")
		}
	}

	w = do(router, "PUT", base+"/layers/shelters", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without enabled, got %d", w.Code)
	}
	w = do(router, "PUT", base+"/layers/volcanoes", gin.H{"enabled": true})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for an unknown layer, got %d", w.Code)
	}
}

func TestGetCharts(t *testing.T) {
	router, _ := setupTestRouter(t, &mockStore{})

	w := do(router, "GET", "/api/charts", nil)
	var resp struct {
		Stats  []models.StatCard    `json:"stats"`
		Charts models.Charts        `json:"charts"`
		Alerts []models.RecentAlert `json:"alerts"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	if len(resp.Stats) != 4 || len(resp.Charts.Climate) != 12 || len(resp.Alerts) != 3 {
		t.Errorf("unexpected charts payload: %d stats, %d months, %d alerts",
			len(resp.Stats), len(resp.Charts.Climate), len(resp.Alerts))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t, &mockStore{})

	do(router, "GET", "/health", nil)
	w := do(router, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `test_api_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Error("expected the health request to be counted")
	}
}

func TestGetSession_NotFound(t *testing.T) {
	router, _ := setupTestRouter(t, &mockStore{})

	w := do(router, "GET", "/api/sessions/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}
