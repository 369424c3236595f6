package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mr1hm/go-disaster-dashboard/internal/metrics"
	"github.com/mr1hm/go-disaster-dashboard/internal/models"
	"github.com/mr1hm/go-disaster-dashboard/internal/worker"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

type State struct {
	Status     Status                 `json:"status"`
	Position   *models.UserPosition   `json:"position,omitempty"`
	Reading    *models.WeatherReading `json:"reading,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Generation uint64                 `json:"generation"`
}

func (s State) clone() State {
	if s.Position != nil {
		p := *s.Position
		s.Position = &p
	}
	if s.Reading != nil {
		r := *s.Reading
		s.Reading = &r
	}
	return s
}

type job struct {
	ctx     context.Context
	fetcher *Fetcher
	gen     uint64
	pos     models.UserPosition
}

// Service owns the worker pool that executes fetches for every Fetcher.
type Service struct {
	source  Source
	metrics *metrics.Collector
	pool    *worker.Pool[job]

	ctx    context.Context
	cancel context.CancelFunc
}

func NewService(source Source, workers, buffer int, m *metrics.Collector) *Service {
	s := &Service{source: source, metrics: m}
	s.pool = worker.NewPool("weather", workers, buffer, s.process)
	return s
}

func (s *Service) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.pool.Start(s.ctx)
}

func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.pool.Stop()
}

func (s *Service) process(_ context.Context, j job) error {
	timer := s.metrics.WeatherTimer()
	reading, err := s.source.Fetch(j.ctx, j.pos.Latitude, j.pos.Longitude)
	timer.ObserveDuration()

	if err != nil && !errors.Is(err, context.Canceled) {
		s.metrics.RecordWeatherError()
	}
	j.fetcher.complete(j.gen, reading, err)
	return err
}

// NewFetcher creates per-consumer request state. onChange, if set, is called
// after every state transition, outside the fetcher's lock.
func (s *Service) NewFetcher(onChange func(State)) *Fetcher {
	return &Fetcher{
		service:  s,
		onChange: onChange,
		state:    State{Status: StatusIdle},
	}
}

// Fetcher tracks the reading for one consumer. Every Request supersedes the
// previous one: its context is cancelled and any late result is dropped.
type Fetcher struct {
	service  *Service
	onChange func(State)

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

// Request fetches weather for pos. A nil pos leaves the fetcher idle.
// Requests after Close are ignored.
func (f *Fetcher) Request(pos *models.UserPosition) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.gen++
	gen := f.gen
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}

	if pos == nil {
		f.state = State{Status: StatusIdle, Generation: gen}
		snapshot := f.state.clone()
		f.mu.Unlock()
		f.notify(snapshot)
		return
	}

	p := *pos
	ctx, cancel := context.WithCancel(f.service.baseContext())
	f.cancel = cancel
	f.state = State{Status: StatusLoading, Position: &p, Generation: gen}
	snapshot := f.state.clone()
	f.mu.Unlock()

	f.notify(snapshot)

	if err := f.service.pool.Submit(ctx, job{ctx: ctx, fetcher: f, gen: gen, pos: p}); err != nil {
		f.complete(gen, models.WeatherReading{}, err)
	}
}

func (s *Service) baseContext() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (f *Fetcher) complete(gen uint64, reading models.WeatherReading, err error) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		f.service.metrics.RecordStaleWeather()
		slog.Debug("discarding stale weather result", "generation", gen)
		return
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}

	if err != nil {
		if !errors.Is(err, ErrSimulationFailure) {
			err = fmt.Errorf("%w: %v", ErrSimulationFailure, err)
		}
		f.state.Status = StatusFailed
		f.state.Reading = nil
		f.state.Error = err.Error()
		slog.Warn("weather fetch failed", "generation", gen, "error", err)
	} else {
		f.state.Status = StatusReady
		f.state.Reading = &reading
		f.state.Error = ""
	}
	snapshot := f.state.clone()
	f.mu.Unlock()

	f.notify(snapshot)
}

func (f *Fetcher) notify(s State) {
	if f.onChange != nil {
		f.onChange(s)
	}
}

// State returns a copy of the current state.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

// Close abandons any in-flight fetch and stops accepting requests.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.gen++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}
