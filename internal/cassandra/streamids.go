package cassandra

import "context"

// maxStreams is the number of usable stream ids.
const maxStreams = 32768

// streamIDPool is the free-list of stream ids a Connection draws from to
// tag outgoing requests.
type streamIDPool struct {
	free chan int16
}

func newStreamIDPool() *streamIDPool {
	p := &streamIDPool{free: make(chan int16, maxStreams)}
	for i := 0; i < maxStreams; i++ {
		p.free <- int16(i)
	}
	return p
}

// acquire blocks until a stream id is available or ctx is done.
func (p *streamIDPool) acquire(ctx context.Context) (int16, error) {
	select {
	case id := <-p.free:
		return id, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// release returns id to the free list. It must be called exactly once
// per acquire, and only once the stream is truly done with - for a
// timed-out request that is still "poisoned", release must
// wait for the late response (or connection close) instead of being
// called at timeout time.
func (p *streamIDPool) release(id int16) {
	p.free <- id
}
