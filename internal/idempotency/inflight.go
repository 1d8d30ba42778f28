package idempotency

import "sync"

// flight is one in-process execution of a key. out and ok are written by the
// leader before done is closed.
type flight struct {
	done chan struct{}
	out  Outcome
	ok   bool
}

// inflight coalesces concurrent executions of the same key inside a process.
// For stores without SetNX it is also the per-key mutex held across
// get, execute and set.
type inflight struct {
	mu sync.Mutex
	m  map[string]*flight
}

func newInflight() *inflight {
	return &inflight{m: make(map[string]*flight)}
}

// acquire returns the running flight for key, or registers a new one and
// reports leader=true.
func (f *inflight) acquire(key string) (fl *flight, leader bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if fl, ok := f.m[key]; ok {
		return fl, false
	}
	fl = &flight{done: make(chan struct{})}
	f.m[key] = fl
	return fl, true
}

// release publishes the leader's result and wakes waiters.
func (f *inflight) release(key string, fl *flight, out Outcome, ok bool) {
	f.mu.Lock()
	delete(f.m, key)
	f.mu.Unlock()

	fl.out = out
	fl.ok = ok
	close(fl.done)
}

func (f *inflight) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.m)
}
