package observation

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/seqsense/pcgol/pc"
	goutils "go.viam.com/utils"

	"go.viam.com/costmap/logging"
)

// defaultReplayInterval paces a PCD source when no interval is configured.
const defaultReplayInterval = time.Second

func init() {
	RegisterDataType(DataTypePCD, func(
		ctx context.Context,
		name string,
		attributes map[string]interface{},
		logger logging.Logger,
	) (Source, error) {
		attrs, err := DecodeAttributes[PCDAttributes](attributes)
		if err != nil {
			return nil, err
		}
		if attrs.Path == "" {
			return nil, goutils.NewConfigValidationFieldRequiredError(name, "path")
		}
		origin, err := attrs.origin()
		if err != nil {
			return nil, err
		}
		//nolint:gosec
		f, err := os.Open(attrs.Path)
		if err != nil {
			return nil, errors.Wrap(err, "opening point cloud file")
		}
		defer goutils.UncheckedErrorFunc(f.Close)

		interval := time.Duration(attrs.ReplayIntervalMs) * time.Millisecond
		return NewPCDSource(name, f, origin, interval, logger)
	})
}

// PCDAttributes configures a source that replays a recorded world-frame
// point cloud file.
type PCDAttributes struct {
	Path             string    `json:"path"`
	Origin           []float64 `json:"origin"`
	ReplayIntervalMs int       `json:"replay_interval_ms"`
}

func (attrs PCDAttributes) origin() (r3.Vector, error) {
	switch len(attrs.Origin) {
	case 0:
		return r3.Vector{}, nil
	case 3:
		return r3.Vector{X: attrs.Origin[0], Y: attrs.Origin[1], Z: attrs.Origin[2]}, nil
	default:
		return r3.Vector{}, errors.Errorf("origin must have 3 elements, got %d", len(attrs.Origin))
	}
}

// A PCDSource replays the same cloud, seen from a fixed origin, once per
// replay interval.
type PCDSource struct {
	name     string
	reading  Reading
	interval time.Duration
	logger   logging.Logger

	mu     sync.Mutex
	served bool

	closed    chan struct{}
	closeOnce sync.Once
}

// NewPCDSource reads a PCD encoded cloud from r. A non-positive interval
// uses a one second replay interval.
func NewPCDSource(name string, r io.Reader, origin r3.Vector, interval time.Duration, logger logging.Logger) (*PCDSource, error) {
	points, err := ReadPCD(r)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = defaultReplayInterval
	}
	logger.Debugw("loaded point cloud", "points", len(points), "interval", interval)
	return &PCDSource{
		name:     name,
		reading:  Reading{Origin: origin, Points: points},
		interval: interval,
		logger:   logger,
		closed:   make(chan struct{}),
	}, nil
}

// ReadPCD decodes the xyz fields of a PCD encoded cloud.
func ReadPCD(r io.Reader) ([]r3.Vector, error) {
	pp, err := pc.Unmarshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding point cloud")
	}
	it, err := pp.Vec3Iterator()
	if err != nil {
		return nil, errors.Wrap(err, "point cloud has no xyz fields")
	}
	points := make([]r3.Vector, 0, pp.Points)
	for ; it.IsValid(); it.Incr() {
		v := it.Vec3()
		points = append(points, r3.Vector{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])})
	}
	return points, nil
}

// Name returns the source name.
func (s *PCDSource) Name() string {
	return s.name
}

// DataType returns DataTypePCD.
func (s *PCDSource) DataType() DataType {
	return DataTypePCD
}

// NextReading returns the cloud immediately on the first call and after one
// replay interval on every later call.
func (s *PCDSource) NextReading(ctx context.Context) (Reading, error) {
	select {
	case <-s.closed:
		return Reading{}, ErrSourceClosed
	default:
	}

	s.mu.Lock()
	first := !s.served
	s.served = true
	s.mu.Unlock()

	if !first {
		waitCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		goutils.PanicCapturingGo(func() {
			select {
			case <-s.closed:
				cancel()
			case <-waitCtx.Done():
			}
		})
		if !goutils.SelectContextOrWait(waitCtx, s.interval) {
			if ctx.Err() != nil {
				return Reading{}, ctx.Err()
			}
			return Reading{}, ErrSourceClosed
		}
	}
	return s.reading, nil
}

// Close stops the source; pending readers return ErrSourceClosed.
func (s *PCDSource) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
