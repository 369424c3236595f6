package geolocation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

func TestMain(m *testing.M) {
	// The maps client links in opencensus, whose view worker starts in init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// countingPlatform records calls and returns a fixed result
type countingPlatform struct {
	calls atomic.Int64
	pos   models.UserPosition
	err   error
	opts  atomic.Value
}

func (c *countingPlatform) CurrentPosition(ctx context.Context, opts Options) (models.UserPosition, error) {
	c.calls.Add(1)
	c.opts.Store(opts)
	return c.pos, c.err
}

func waitDone(t *testing.T, tr *Tracker) State {
	t.Helper()
	select {
	case <-tr.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("tracker did not settle")
	}
	return tr.State()
}

func TestTracker_InitialStateLoading(t *testing.T) {
	tr := NewTracker(NewReportedPlatform(), DefaultOptions())

	if s := tr.State(); s.Status != StatusLoading {
		t.Errorf("expected loading, got %s", s.Status)
	}
}

func TestTracker_Resolves(t *testing.T) {
	p := &countingPlatform{pos: models.UserPosition{Latitude: 19.07, Longitude: 72.87}}
	tr := NewTracker(p, DefaultOptions())
	tr.Start(context.Background())

	s := waitDone(t, tr)
	if s.Status != StatusResolved {
		t.Fatalf("expected resolved, got %s", s.Status)
	}
	if s.Position == nil || s.Position.Latitude != 19.07 {
		t.Errorf("unexpected position: %+v", s.Position)
	}
	if s.Error != nil {
		t.Errorf("expected no error, got %v", s.Error)
	}

	opts := p.opts.Load().(Options)
	if !opts.HighAccuracy || opts.Timeout != 10*time.Second || opts.MaximumAge != 10*time.Minute {
		t.Errorf("unexpected options passed to platform: %+v", opts)
	}
}

func TestTracker_FetchesExactlyOnce(t *testing.T) {
	p := &countingPlatform{}
	tr := NewTracker(p, DefaultOptions())

	for i := 0; i < 5; i++ {
		tr.Start(context.Background())
	}
	waitDone(t, tr)

	if p.calls.Load() != 1 {
		t.Errorf("expected 1 fetch, got %d", p.calls.Load())
	}
}

func TestTracker_NilPlatformUnsupported(t *testing.T) {
	tr := NewTracker(nil, DefaultOptions())
	tr.Start(context.Background())

	s := waitDone(t, tr)
	if s.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", s.Status)
	}
	if !errors.Is(s.Error, ErrUnsupported) {
		t.Errorf("expected unsupported, got %v", s.Error)
	}
	if s.Error.Message != "Geolocation is not supported by this browser." {
		t.Errorf("unexpected message: %q", s.Error.Message)
	}
}

func TestTracker_PlatformErrorPassedThrough(t *testing.T) {
	p := &countingPlatform{err: &PositionError{Kind: KindPermissionDenied, Message: "User denied Geolocation"}}
	tr := NewTracker(p, DefaultOptions())
	tr.Start(context.Background())

	s := waitDone(t, tr)
	if !errors.Is(s.Error, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", s.Error)
	}
	if s.Error.Message != "User denied Geolocation" {
		t.Errorf("expected message passed through unmodified, got %q", s.Error.Message)
	}
	if s.Position != nil {
		t.Errorf("expected no position, got %+v", s.Position)
	}
}

func TestTracker_GenericErrorIsPositionUnavailable(t *testing.T) {
	p := &countingPlatform{err: errors.New("receiver unplugged")}
	tr := NewTracker(p, DefaultOptions())
	tr.Start(context.Background())

	s := waitDone(t, tr)
	if !errors.Is(s.Error, ErrPositionUnavailable) {
		t.Errorf("expected position unavailable, got %v", s.Error)
	}
}

func TestTracker_Timeout(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 20 * time.Millisecond

	tr := NewTracker(NewReportedPlatform(), opts)
	tr.Start(context.Background())

	s := waitDone(t, tr)
	if !errors.Is(s.Error, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", s.Error)
	}
	if s.Error.Kind != KindTimeout {
		t.Errorf("expected kind timeout, got %s", s.Error.Kind)
	}
}

func TestReportedPlatform_ReportAfterTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 20 * time.Millisecond

	p := NewReportedPlatform()
	tr := NewTracker(p, opts)
	tr.Start(context.Background())

	if s := waitDone(t, tr); !errors.Is(s.Error, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", s.Error)
	}
	if err := p.Report(models.UserPosition{Latitude: 1}); !errors.Is(err, ErrAlreadyReported) {
		t.Errorf("expected ErrAlreadyReported after timeout, got %v", err)
	}
}

func TestTracker_StateIsCopy(t *testing.T) {
	tr := NewTracker(StaticPlatform{Position: models.UserPosition{Latitude: 1, Longitude: 2}}, DefaultOptions())
	tr.Start(context.Background())
	s := waitDone(t, tr)

	s.Position.Latitude = 99
	if tr.State().Position.Latitude != 1 {
		t.Error("mutating returned state leaked into tracker")
	}
}

func TestReportedPlatform_ReportAndFail(t *testing.T) {
	p := NewReportedPlatform()
	tr := NewTracker(p, DefaultOptions())
	tr.Start(context.Background())

	if err := p.Fail(1, "User denied Geolocation"); err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}
	if err := p.Report(models.UserPosition{Latitude: 1}); !errors.Is(err, ErrAlreadyReported) {
		t.Errorf("expected ErrAlreadyReported on second report, got %v", err)
	}

	s := waitDone(t, tr)
	if !errors.Is(s.Error, ErrPermissionDenied) {
		t.Errorf("expected permission denied, got %v", s.Error)
	}
}

func TestReportedPlatform_ReportBeforeStart(t *testing.T) {
	p := NewReportedPlatform()
	if err := p.Report(models.UserPosition{Latitude: 28.61, Longitude: 77.20}); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	tr := NewTracker(p, DefaultOptions())
	tr.Start(context.Background())

	s := waitDone(t, tr)
	if s.Status != StatusResolved || s.Position.Latitude != 28.61 {
		t.Errorf("unexpected state: %+v", s)
	}
}

func TestKindFromCode(t *testing.T) {
	tests := []struct {
		code int
		want Kind
	}{
		{0, KindUnsupported},
		{1, KindPermissionDenied},
		{2, KindPositionUnavailable},
		{3, KindTimeout},
		{42, KindPositionUnavailable},
	}
	for _, tt := range tests {
		if got := KindFromCode(tt.code); got != tt.want {
			t.Errorf("KindFromCode(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestCachedPlatform_HonoursMaximumAge(t *testing.T) {
	next := &countingPlatform{pos: models.UserPosition{Latitude: 10}}
	c := NewCachedPlatform(next)

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	opts := DefaultOptions()
	ctx := context.Background()

	if _, err := c.CurrentPosition(ctx, opts); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}

	now = now.Add(9 * time.Minute)
	if _, err := c.CurrentPosition(ctx, opts); err != nil {
		t.Fatalf("cached fetch failed: %v", err)
	}
	if next.calls.Load() != 1 {
		t.Errorf("expected cached fix within maximum age, got %d calls", next.calls.Load())
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.CurrentPosition(ctx, opts); err != nil {
		t.Fatalf("refetch failed: %v", err)
	}
	if next.calls.Load() != 2 {
		t.Errorf("expected refetch after maximum age, got %d calls", next.calls.Load())
	}
}
