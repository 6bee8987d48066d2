package observation

import (
	"context"
	"sync"
)

// feed is a bounded queue of readings where a full queue drops its oldest
// entry to make room for the newest.
type feed struct {
	readings  chan Reading
	closed    chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
}

func newFeed(queueSize int) *feed {
	if queueSize < 1 {
		queueSize = 1
	}
	return &feed{
		readings: make(chan Reading, queueSize),
		closed:   make(chan struct{}),
	}
}

// publish enqueues r and reports whether the feed was still open.
func (f *feed) publish(r Reading) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.closed:
		return false
	default:
	}
	for {
		select {
		case f.readings <- r:
			return true
		default:
		}
		select {
		case <-f.readings:
		default:
		}
	}
}

func (f *feed) next(ctx context.Context) (Reading, error) {
	select {
	case r := <-f.readings:
		return r, nil
	default:
	}
	select {
	case <-ctx.Done():
		return Reading{}, ctx.Err()
	case <-f.closed:
		return Reading{}, ErrSourceClosed
	case r := <-f.readings:
		return r, nil
	}
}

func (f *feed) close() {
	f.closeOnce.Do(func() { close(f.closed) })
}
