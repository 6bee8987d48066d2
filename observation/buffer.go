package observation

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
)

// Defaults applied by BufferConfig.WithDefaults.
const (
	DefaultObstacleRange     = 2.5
	DefaultRaytraceRange     = 3.0
	DefaultMaxObstacleHeight = 2.0
)

// BufferConfig describes how a Buffer filters and ages the readings of one source.
type BufferConfig struct {
	ObstacleRange     float64
	RaytraceRange     float64
	MinObstacleHeight float64
	MaxObstacleHeight float64
	// ExpectedUpdateRate is the longest gap between readings before the buffer
	// is considered stale. Zero means the buffer is always current.
	ExpectedUpdateRate time.Duration
	// KeepAlive is how long observations are retained. Zero keeps only the latest.
	KeepAlive time.Duration
}

// WithDefaults returns a copy of the config with unset ranges and the
// maximum obstacle height filled in.
func (c BufferConfig) WithDefaults() BufferConfig {
	if c.ObstacleRange == 0 {
		c.ObstacleRange = DefaultObstacleRange
	}
	if c.RaytraceRange == 0 {
		c.RaytraceRange = DefaultRaytraceRange
	}
	if c.MaxObstacleHeight == 0 {
		c.MaxObstacleHeight = DefaultMaxObstacleHeight
	}
	return c
}

// Buffer holds the recent observations of a single sensor. All methods other
// than Lock and Unlock expect the caller to hold the buffer lock, so that a
// consumer can read observations and freshness as one consistent view.
type Buffer struct {
	mu     sync.Mutex
	name   string
	clock  clock.Clock
	config BufferConfig

	observations []stampedObservation
	lastUpdated  time.Time
}

type stampedObservation struct {
	Observation
	stamp time.Time
}

// NewBuffer returns an empty buffer for the named source. A nil clock uses
// the wall clock.
func NewBuffer(name string, config BufferConfig, clk clock.Clock) *Buffer {
	if clk == nil {
		clk = clock.New()
	}
	return &Buffer{
		name:        name,
		clock:       clk,
		config:      config,
		lastUpdated: clk.Now(),
	}
}

// Name returns the name of the source feeding this buffer.
func (b *Buffer) Name() string {
	return b.name
}

// Lock acquires the buffer lock.
func (b *Buffer) Lock() {
	b.mu.Lock()
}

// Unlock releases the buffer lock.
func (b *Buffer) Unlock() {
	b.mu.Unlock()
}

// BufferCloud stores a new observation built from points seen from origin.
// Points outside the configured height band are dropped.
func (b *Buffer) BufferCloud(origin r3.Vector, points []r3.Vector) {
	now := b.clock.Now()

	cloud := make([]r3.Vector, 0, len(points))
	for _, p := range points {
		if p.Z < b.config.MinObstacleHeight || p.Z > b.config.MaxObstacleHeight {
			continue
		}
		cloud = append(cloud, p)
	}

	b.observations = append(b.observations, stampedObservation{
		Observation: Observation{
			Origin:        origin,
			Cloud:         cloud,
			ObstacleRange: b.config.ObstacleRange,
			RaytraceRange: b.config.RaytraceRange,
		},
		stamp: now,
	})
	b.lastUpdated = now
	b.purgeStale(now)
}

// Observations appends the buffered observations to dst and returns it.
func (b *Buffer) Observations(dst []Observation) []Observation {
	b.purgeStale(b.clock.Now())
	for _, obs := range b.observations {
		dst = append(dst, obs.Observation)
	}
	return dst
}

// IsCurrent reports whether the buffer has been updated within its expected
// update rate.
func (b *Buffer) IsCurrent() bool {
	if b.config.ExpectedUpdateRate == 0 {
		return true
	}
	return b.clock.Since(b.lastUpdated) <= b.config.ExpectedUpdateRate
}

// ResetLastUpdated marks the buffer as freshly updated without adding data.
func (b *Buffer) ResetLastUpdated() {
	b.lastUpdated = b.clock.Now()
}

// LastUpdated returns the last time data arrived or the buffer was reset.
func (b *Buffer) LastUpdated() time.Time {
	return b.lastUpdated
}

func (b *Buffer) purgeStale(now time.Time) {
	if len(b.observations) == 0 {
		return
	}
	if b.config.KeepAlive == 0 {
		b.observations = b.observations[len(b.observations)-1:]
		return
	}
	// observations are stored oldest first
	keepFrom := 0
	for keepFrom < len(b.observations) && now.Sub(b.observations[keepFrom].stamp) > b.config.KeepAlive {
		keepFrom++
	}
	b.observations = b.observations[keepFrom:]
}
