package geolocation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

type Status string

const (
	StatusLoading  Status = "loading"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

type State struct {
	Status   Status               `json:"status"`
	Position *models.UserPosition `json:"position,omitempty"`
	Error    *PositionError       `json:"error,omitempty"`
}

// Tracker performs a single position fetch. There are no retries and no
// re-polling; once Done is closed the state never changes.
type Tracker struct {
	platform Platform
	opts     Options

	mu    sync.RWMutex
	state State

	once sync.Once
	done chan struct{}
}

// NewTracker accepts a nil platform, which resolves to an Unsupported failure.
func NewTracker(platform Platform, opts Options) *Tracker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Tracker{
		platform: platform,
		opts:     opts,
		state:    State{Status: StatusLoading},
		done:     make(chan struct{}),
	}
}

// Start launches the fetch. Calls after the first are no-ops.
func (t *Tracker) Start(ctx context.Context) {
	t.once.Do(func() {
		go t.fetch(ctx)
	})
}

func (t *Tracker) fetch(ctx context.Context) {
	if t.platform == nil {
		t.settle(State{Status: StatusFailed, Error: newPositionError(KindUnsupported, unsupportedMessage)})
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	pos, err := t.platform.CurrentPosition(fetchCtx, t.opts)
	if err == nil && fetchCtx.Err() != nil {
		err = fetchCtx.Err()
	}
	if err != nil {
		t.settle(State{Status: StatusFailed, Error: classify(err)})
		return
	}

	t.settle(State{Status: StatusResolved, Position: &pos})
}

func classify(err error) *PositionError {
	var pe *PositionError
	if errors.As(err, &pe) {
		return newPositionError(pe.Kind, pe.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newPositionError(KindTimeout, timeoutMessage)
	}
	return newPositionError(KindPositionUnavailable, err.Error())
}

func (t *Tracker) settle(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()

	if s.Error != nil {
		slog.Warn("geolocation failed", "kind", s.Error.Kind.String(), "message", s.Error.Message)
	} else {
		slog.Debug("geolocation resolved", "lat", s.Position.Latitude, "lng", s.Position.Longitude)
	}
	close(t.done)
}

// Done is closed once the fetch reaches a terminal state.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.state
	if s.Position != nil {
		p := *s.Position
		s.Position = &p
	}
	if s.Error != nil {
		e := *s.Error
		s.Error = &e
	}
	return s
}
