package geolocation

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

// NMEAPlatform reads fixes from a GPS receiver that emits NMEA 0183
// sentences. GGA and RMC sentences with a valid fix are accepted.
// The receiver is opened by one fetch at a time.
type NMEAPlatform struct {
	open func() (io.ReadCloser, error)
	sem  chan struct{}
}

// NewSerialNMEAPlatform opens the receiver on a serial port for each fetch.
func NewSerialNMEAPlatform(port string, baud int) *NMEAPlatform {
	return NewNMEAPlatform(func() (io.ReadCloser, error) {
		p, err := serial.OpenPort(&serial.Config{
			Name:        port,
			Baud:        baud,
			ReadTimeout: time.Second,
		})
		if err != nil {
			return nil, err
		}
		return newIdleTolerantReader(p), nil
	})
}

// idleTolerantReader retries the empty reads a serial port returns when its
// read timeout expires, so a receiver that is quiet while acquiring a fix
// does not end the stream. Reads stop once Close is called.
type idleTolerantReader struct {
	rc     io.ReadCloser
	closed atomic.Bool
}

func newIdleTolerantReader(rc io.ReadCloser) *idleTolerantReader {
	return &idleTolerantReader{rc: rc}
}

func (r *idleTolerantReader) Read(p []byte) (int, error) {
	for {
		n, err := r.rc.Read(p)
		if n > 0 || r.closed.Load() {
			return n, err
		}
		if err != nil && err != io.EOF {
			return n, err
		}
	}
}

func (r *idleTolerantReader) Close() error {
	r.closed.Store(true)
	return r.rc.Close()
}

func NewNMEAPlatform(open func() (io.ReadCloser, error)) *NMEAPlatform {
	return &NMEAPlatform{open: open, sem: make(chan struct{}, 1)}
}

type nmeaResult struct {
	pos models.UserPosition
	err error
}

func (n *NMEAPlatform) CurrentPosition(ctx context.Context, _ Options) (models.UserPosition, error) {
	select {
	case n.sem <- struct{}{}:
		defer func() { <-n.sem }()
	case <-ctx.Done():
		return models.UserPosition{}, ctx.Err()
	}

	r, err := n.open()
	if err != nil {
		if os.IsPermission(err) {
			return models.UserPosition{}, newPositionError(KindPermissionDenied, err.Error())
		}
		return models.UserPosition{}, newPositionError(KindPositionUnavailable, err.Error())
	}

	results := make(chan nmeaResult, 1)
	go func() {
		pos, err := readFix(r)
		results <- nmeaResult{pos: pos, err: err}
	}()

	select {
	case res := <-results:
		r.Close()
		return res.pos, res.err
	case <-ctx.Done():
		// Closing unblocks the reader goroutine.
		r.Close()
		<-results
		return models.UserPosition{}, ctx.Err()
	}
}

func readFix(r io.Reader) (models.UserPosition, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			continue
		}

		switch s := sentence.(type) {
		case nmea.GGA:
			if s.FixQuality == nmea.Invalid {
				continue
			}
			return models.UserPosition{Latitude: s.Latitude, Longitude: s.Longitude}, nil
		case nmea.RMC:
			if s.Validity != nmea.ValidRMC {
				continue
			}
			return models.UserPosition{Latitude: s.Latitude, Longitude: s.Longitude}, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return models.UserPosition{}, newPositionError(KindPositionUnavailable, err.Error())
	}
	return models.UserPosition{}, newPositionError(KindPositionUnavailable, "no valid GPS fix found")
}
