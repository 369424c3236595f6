// Package geolocation models the one-shot "where is the user" fetch: a
// pluggable Platform that produces a fix, and a Tracker that runs exactly one
// fetch and exposes its loading/resolved/failed state.
package geolocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaximumAge = 10 * time.Minute
)

type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaximumAge is how old a cached fix the platform may hand back.
	MaximumAge time.Duration
}

func DefaultOptions() Options {
	return Options{
		HighAccuracy: true,
		Timeout:      DefaultTimeout,
		MaximumAge:   DefaultMaximumAge,
	}
}

// Platform is the host capability that produces a position. Implementations
// must return when ctx is done.
type Platform interface {
	CurrentPosition(ctx context.Context, opts Options) (models.UserPosition, error)
}

// StaticPlatform always reports the same fix.
type StaticPlatform struct {
	Position models.UserPosition
}

func (s StaticPlatform) CurrentPosition(ctx context.Context, _ Options) (models.UserPosition, error) {
	if err := ctx.Err(); err != nil {
		return models.UserPosition{}, err
	}
	return s.Position, nil
}

var ErrAlreadyReported = errors.New("position already reported")

type report struct {
	pos models.UserPosition
	err *PositionError
}

// ReportedPlatform waits for the client to push its own fix (or its error)
// through the API. Only the first report is accepted, and none once the
// fetch has given up waiting.
type ReportedPlatform struct {
	ch   chan report
	once sync.Once
}

func NewReportedPlatform() *ReportedPlatform {
	return &ReportedPlatform{ch: make(chan report, 1)}
}

func (p *ReportedPlatform) Report(pos models.UserPosition) error {
	return p.deliver(report{pos: pos})
}

// Fail reports a client-side error with its browser error code.
func (p *ReportedPlatform) Fail(code int, message string) error {
	return p.deliver(report{err: newPositionError(KindFromCode(code), message)})
}

func (p *ReportedPlatform) deliver(r report) error {
	delivered := false
	p.once.Do(func() {
		p.ch <- r
		delivered = true
	})
	if !delivered {
		return ErrAlreadyReported
	}
	return nil
}

func (p *ReportedPlatform) CurrentPosition(ctx context.Context, _ Options) (models.UserPosition, error) {
	select {
	case <-ctx.Done():
		p.once.Do(func() {})
		return models.UserPosition{}, ctx.Err()
	case r := <-p.ch:
		if r.err != nil {
			return models.UserPosition{}, r.err
		}
		return r.pos, nil
	}
}

type cachedFix struct {
	pos models.UserPosition
	at  time.Time
}

// CachedPlatform reuses a previous fix while it is younger than
// Options.MaximumAge.
type CachedPlatform struct {
	next Platform
	now  func() time.Time

	mu   sync.Mutex
	last *cachedFix
}

func NewCachedPlatform(next Platform) *CachedPlatform {
	return &CachedPlatform{next: next, now: time.Now}
}

func (c *CachedPlatform) CurrentPosition(ctx context.Context, opts Options) (models.UserPosition, error) {
	c.mu.Lock()
	if c.last != nil && opts.MaximumAge > 0 && c.now().Sub(c.last.at) <= opts.MaximumAge {
		pos := c.last.pos
		c.mu.Unlock()
		return pos, nil
	}
	c.mu.Unlock()

	pos, err := c.next.CurrentPosition(ctx, opts)
	if err != nil {
		return pos, err
	}

	c.mu.Lock()
	c.last = &cachedFix{pos: pos, at: c.now()}
	c.mu.Unlock()
	return pos, nil
}
