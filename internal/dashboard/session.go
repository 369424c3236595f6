package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mr1hm/go-disaster-dashboard/internal/geolocation"
	"github.com/mr1hm/go-disaster-dashboard/internal/mapview"
	"github.com/mr1hm/go-disaster-dashboard/internal/models"
	"github.com/mr1hm/go-disaster-dashboard/internal/search"
	"github.com/mr1hm/go-disaster-dashboard/internal/weather"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrLocationNotFound   = errors.New("location not found")
	ErrUnknownLayer       = errors.New("unknown layer")
	ErrReportsNotAccepted = errors.New("session does not accept client position reports")
	ErrGeolocationSettled = fmt.Errorf("geolocation already settled: %w", geolocation.ErrAlreadyReported)
)

// reporter is implemented by platforms that take the fix from the client.
type reporter interface {
	Report(pos models.UserPosition) error
	Fail(code int, message string) error
}

// Session is the state behind one open dashboard.
type Session struct {
	id       string
	platform geolocation.Platform
	tracker  *geolocation.Tracker
	mapView  *mapview.Controller
	weather  *weather.Fetcher

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	searchText string
	filter     Filter
	layers     []models.Layer
	lastSeen   time.Time
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// resolve waits for the geolocation fetch. A fix drives both the map and the
// weather fetch; a failure leaves the weather idle.
func (s *Session) resolve(onSettled func(geolocation.State)) {
	select {
	case <-s.ctx.Done():
		return
	case <-s.tracker.Done():
	}
	if s.ctx.Err() != nil {
		return
	}

	st := s.tracker.State()
	if st.Status == geolocation.StatusResolved && st.Position != nil {
		s.mapView.SetUserPosition(*st.Position)
		onSettled(st)
		s.weather.Request(st.Position)
		return
	}
	onSettled(st)
}

func (s *Session) applySelection(sel search.Selection) {
	s.mapView.SetSelection(sel.Location)
	s.mu.Lock()
	s.searchText = sel.InputText
	s.mu.Unlock()
}

func (s *Session) setSearchText(text string) {
	s.mu.Lock()
	s.searchText = text
	s.mu.Unlock()
}

func (s *Session) setFilter(f Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

func (s *Session) setLayer(key string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.layers {
		if s.layers[i].Key == key {
			s.layers[i].Enabled = enabled
			return nil
		}
	}
	return ErrUnknownLayer
}

func (s *Session) report(pos *models.UserPosition, code int, message string) error {
	r, ok := s.platform.(reporter)
	if !ok {
		return ErrReportsNotAccepted
	}
	select {
	case <-s.tracker.Done():
		return ErrGeolocationSettled
	default:
	}
	if pos != nil {
		return r.Report(*pos)
	}
	return r.Fail(code, message)
}

func (s *Session) close() {
	s.cancel()
	s.weather.Close()
}
