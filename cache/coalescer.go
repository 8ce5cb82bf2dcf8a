package cache

import "sync"

// Coalescer tracks fingerprints with an upstream evaluation in flight.
// A caller registers intent before issuing upstream work; a concurrent
// duplicate registration reports dup=true so the later caller can
// short-circuit instead of duplicating the call.
type Coalescer struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCoalescer creates an empty coalescer.
func NewCoalescer() *Coalescer {
	return &Coalescer{inFlight: make(map[string]struct{})}
}

// Begin registers fingerprint as in flight. If another caller already holds
// the registration, dup is true and release is a no-op. Otherwise release
// removes the registration; it is idempotent and must be called on every
// exit path, including cancellation (defer it immediately).
func (c *Coalescer) Begin(fingerprint string) (release func(), dup bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.inFlight[fingerprint]; exists {
		return func() {}, true
	}
	c.inFlight[fingerprint] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.inFlight, fingerprint)
			c.mu.Unlock()
		})
	}, false
}

// InFlight reports whether fingerprint currently has a registration.
func (c *Coalescer) InFlight(fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[fingerprint]
	return ok
}
