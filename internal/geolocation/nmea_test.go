package geolocation

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func nmeaSource(lines ...string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(strings.Join(lines, "\r\n"))), nil
	}
}

func TestNMEAPlatform_GGA(t *testing.T) {
	p := NewNMEAPlatform(nmeaSource(
		"garbage",
		"$GPGGA,123519,4807.038,N,01131.000,E,0,00,0.9,545.4,M,46.9,M,,*4E", // no fix
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
	))

	pos, err := p.CurrentPosition(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("CurrentPosition failed: %v", err)
	}
	if math.Abs(pos.Latitude-48.1173) > 1e-4 || math.Abs(pos.Longitude-11.516667) > 1e-4 {
		t.Errorf("unexpected position: %+v", pos)
	}
}

func TestNMEAPlatform_RMC(t *testing.T) {
	p := NewNMEAPlatform(nmeaSource(
		"$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*7D", // void
		"$GPRMC,081836,A,1904.560,N,07252.662,E,000.0,360.0,130998,011.3,E*71",
	))

	pos, err := p.CurrentPosition(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("CurrentPosition failed: %v", err)
	}
	if math.Abs(pos.Latitude-19.076) > 1e-3 || math.Abs(pos.Longitude-72.8777) > 1e-3 {
		t.Errorf("unexpected position: %+v", pos)
	}
}

func TestNMEAPlatform_NoFix(t *testing.T) {
	p := NewNMEAPlatform(nmeaSource(
		"$GPGGA,123519,4807.038,N,01131.000,E,0,00,0.9,545.4,M,46.9,M,,*4E",
	))

	_, err := p.CurrentPosition(context.Background(), DefaultOptions())
	if !errors.Is(err, ErrPositionUnavailable) {
		t.Errorf("expected position unavailable, got %v", err)
	}
}

func TestNMEAPlatform_OpenPermissionDenied(t *testing.T) {
	p := NewNMEAPlatform(func() (io.ReadCloser, error) {
		return nil, &os.PathError{Op: "open", Path: "/dev/ttyUSB0", Err: os.ErrPermission}
	})

	_, err := p.CurrentPosition(context.Background(), DefaultOptions())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected permission denied, got %v", err)
	}
}

// blockingReader blocks reads until closed
type blockingReader struct {
	closed chan struct{}
}

func (b *blockingReader) Read(p []byte) (int, error) {
	<-b.closed
	return 0, io.EOF
}

func (b *blockingReader) Close() error {
	close(b.closed)
	return nil
}

// quietPort returns empty reads before each chunk, the way a serial port
// does when its read timeout expires.
type quietPort struct {
	mu     sync.Mutex
	chunks []string
	idle   int
	closed bool
}

func (q *quietPort) Read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, os.ErrClosed
	}
	if q.idle > 0 {
		q.idle--
		return 0, io.EOF
	}
	if len(q.chunks) == 0 {
		q.idle = 3
		return 0, io.EOF
	}
	q.idle = 3
	n := copy(p, q.chunks[0])
	q.chunks = q.chunks[1:]
	return n, nil
}

func (q *quietPort) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return nil
}

func TestNMEAPlatform_QuietReceiverKeepsReading(t *testing.T) {
	port := &quietPort{
		idle: 5,
		chunks: []string{
			"$GPGGA,123519,4807.038,N,01131.000,E,0,00,0.9,545.4,M,46.9,M,,*4E\r\n",
			"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n",
		},
	}
	p := NewNMEAPlatform(func() (io.ReadCloser, error) { return newIdleTolerantReader(port), nil })

	pos, err := p.CurrentPosition(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("CurrentPosition failed: %v", err)
	}
	if math.Abs(pos.Latitude-48.1173) > 1e-4 {
		t.Errorf("unexpected position: %+v", pos)
	}
}

func TestNMEAPlatform_QuietReceiverStopsOnCancel(t *testing.T) {
	port := &quietPort{}
	p := NewNMEAPlatform(func() (io.ReadCloser, error) { return newIdleTolerantReader(port), nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.CurrentPosition(ctx, DefaultOptions())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestNMEAPlatform_ContextCancel(t *testing.T) {
	br := &blockingReader{closed: make(chan struct{})}
	p := NewNMEAPlatform(func() (io.ReadCloser, error) { return br, nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.CurrentPosition(ctx, DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
