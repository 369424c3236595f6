// Package dashboard composes the location, map and weather pieces into
// per-client sessions.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/go-disaster-dashboard/internal/catalog"
	"github.com/mr1hm/go-disaster-dashboard/internal/geolocation"
	"github.com/mr1hm/go-disaster-dashboard/internal/mapview"
	"github.com/mr1hm/go-disaster-dashboard/internal/metrics"
	"github.com/mr1hm/go-disaster-dashboard/internal/models"
	"github.com/mr1hm/go-disaster-dashboard/internal/search"
	"github.com/mr1hm/go-disaster-dashboard/internal/weather"
)

const DefaultSessionTTL = 30 * time.Minute

type EventType string

const (
	EventSessionCreated EventType = "session.created"
	EventSessionClosed  EventType = "session.closed"
	EventGeolocation    EventType = "geolocation"
	EventWeather        EventType = "weather"
	EventSelection      EventType = "selection"
	EventSearch         EventType = "search"
	EventFilter         EventType = "filter"
	EventLayer          EventType = "layer"
)

type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Snapshot  Snapshot  `json:"snapshot"`
	At        time.Time `json:"at"`
}

// Publisher receives every session state change. Implementations must not
// block.
type Publisher interface {
	Publish(Event)
}

// PlatformFactory builds the geolocation platform for a new session.
type PlatformFactory func() geolocation.Platform

type Config struct {
	TTL         time.Duration
	Geolocation geolocation.Options
	Platforms   PlatformFactory
}

type Manager struct {
	catalog   *catalog.Catalog
	engine    *search.Engine
	weather   *weather.Service
	publisher Publisher
	metrics   *metrics.Collector
	cfg       Config
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

func NewManager(cat *catalog.Catalog, svc *weather.Service, pub Publisher, m *metrics.Collector, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.Geolocation.Timeout <= 0 {
		cfg.Geolocation = geolocation.DefaultOptions()
	}
	if cfg.Platforms == nil {
		cfg.Platforms = func() geolocation.Platform { return geolocation.NewReportedPlatform() }
	}
	return &Manager{
		catalog:   cat,
		engine:    search.NewEngine(cat.Locations()),
		weather:   svc,
		publisher: pub,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Create opens a session and starts its geolocation fetch.
func (m *Manager) Create() Snapshot {
	ctx, cancel := context.WithCancel(context.Background())
	platform := m.cfg.Platforms()

	s := &Session{
		id:       uuid.NewString(),
		platform: platform,
		tracker:  geolocation.NewTracker(platform, m.cfg.Geolocation),
		mapView:  mapview.NewController(),
		ctx:      ctx,
		cancel:   cancel,
		filter:   FilterAll,
		layers:   m.catalog.Layers(),
		lastSeen: m.now(),
	}
	s.weather = m.weather.NewFetcher(func(weather.State) {
		m.publish(s, EventWeather)
	})

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	m.metrics.SessionOpened()

	slog.Info("session created", "session", s.id)
	snap := m.snapshot(s)
	m.emit(EventSessionCreated, snap)

	s.tracker.Start(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.resolve(func(st geolocation.State) {
			m.recordGeolocation(st)
			m.publish(s, EventGeolocation)
		})
	}()
	return snap
}

func (m *Manager) recordGeolocation(st geolocation.State) {
	if st.Error != nil {
		m.metrics.RecordGeolocation(st.Error.Kind.String())
		return
	}
	m.metrics.RecordGeolocation(string(st.Status))
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

func (m *Manager) Snapshot(id string) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return m.snapshot(s), nil
}

// Search runs a catalog search. It never fails.
func (m *Manager) Search(term string) ([]models.NamedLocation, bool) {
	results := m.engine.Search(term)
	m.metrics.RecordSearch(len(results) > 0)
	return results, search.ShowResults(term, results)
}

// SearchSession records the typed text on the session and runs the search.
func (m *Manager) SearchSession(id, term string) ([]models.NamedLocation, bool, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, false, err
	}
	s.setSearchText(term)
	results, show := m.Search(term)
	m.publish(s, EventSearch)
	return results, show, nil
}

// Select applies a clicked search result to the session's map.
func (m *Manager) Select(id, name, region string) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	loc, ok := m.engine.Lookup(name, region)
	if !ok {
		return Snapshot{}, ErrLocationNotFound
	}
	s.applySelection(search.Select(loc))
	return m.publish(s, EventSelection), nil
}

func (m *Manager) SetFilter(id string, f Filter) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.setFilter(f)
	return m.publish(s, EventFilter), nil
}

func (m *Manager) SetLayer(id, key string, enabled bool) (Snapshot, error) {
	s, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.setLayer(key, enabled); err != nil {
		return Snapshot{}, err
	}
	return m.publish(s, EventLayer), nil
}

// ReportPosition hands a client-side fix to the session's platform.
func (m *Manager) ReportPosition(id string, pos models.UserPosition) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	return s.report(&pos, 0, "")
}

// ReportError hands a client-side geolocation error to the session's platform.
func (m *Manager) ReportError(id string, code int, message string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	return s.report(nil, code, message)
}

// WaitGeolocation blocks until the session's geolocation fetch settles.
func (m *Manager) WaitGeolocation(ctx context.Context, id string) (geolocation.State, error) {
	s, err := m.get(id)
	if err != nil {
		return geolocation.State{}, err
	}
	select {
	case <-ctx.Done():
		return geolocation.State{}, ctx.Err()
	case <-s.tracker.Done():
		return s.tracker.State(), nil
	}
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.closeSession(s)
	return nil
}

func (m *Manager) closeSession(s *Session) {
	s.close()
	m.metrics.SessionClosed()
	snap := m.snapshot(s)
	m.emit(EventSessionClosed, snap)
	slog.Info("session closed", "session", s.id)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ExpireIdle closes sessions not used within the TTL and returns how many
// were closed.
func (m *Manager) ExpireIdle() int {
	cutoff := m.now().Add(-m.cfg.TTL)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.closeSession(s)
	}
	return len(expired)
}

// Run expires idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.cfg.TTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.ExpireIdle(); n > 0 {
				slog.Info("expired idle sessions", "count", n)
			}
		}
	}
}

// Shutdown closes every session and waits for their goroutines.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		m.closeSession(s)
	}
	m.wg.Wait()
}

// publish emits the session's current snapshot. Closed sessions stay silent
// so that session.closed is the last event for an id.
func (m *Manager) publish(s *Session, t EventType) Snapshot {
	snap := m.snapshot(s)
	if s.ctx.Err() != nil {
		return snap
	}
	m.emit(t, snap)
	return snap
}

func (m *Manager) emit(t EventType, snap Snapshot) {
	if m.publisher == nil {
		return
	}
	m.publisher.Publish(Event{Type: t, SessionID: snap.SessionID, Snapshot: snap, At: snap.UpdatedAt})
}

func (m *Manager) snapshot(s *Session) Snapshot {
	geo := s.tracker.State()
	w := s.weather.State()

	s.mu.Lock()
	searchText := s.searchText
	filter := s.filter
	layers := append([]models.Layer(nil), s.layers...)
	s.mu.Unlock()

	snap := Snapshot{
		SessionID:    s.id,
		GPSStatus:    gpsStatus(geo),
		Geolocation:  geo,
		SearchText:   searchText,
		Map:          s.mapView.View(),
		Weather:      w,
		WeatherTiles: WeatherTiles(w.Reading),
		UserMarker:   userMarker(geo.Position, w),
		Filter:       filter,
		Layers:       layers,
		Stats:        m.catalog.Stats(),
		Zones:        VisibleZones(m.catalog.Zones(), filter, layers),
		Facilities:   VisibleFacilities(m.catalog.Facilities(), layers),
		Charts:       m.catalog.Charts(),
		Alerts:       m.catalog.Alerts(),
		UpdatedAt:    m.now(),
	}
	if sel, ok := s.mapView.Selection(); ok {
		snap.Selection = &sel
	}
	return snap
}
