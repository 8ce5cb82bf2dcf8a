package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalescer_DuplicateDetection(t *testing.T) {
	c := NewCoalescer()

	release, dup := c.Begin("fp")
	assert.False(t, dup)
	assert.True(t, c.InFlight("fp"))

	_, dup2 := c.Begin("fp")
	assert.True(t, dup2, "second registration of the same fingerprint is a duplicate")

	release()
	assert.False(t, c.InFlight("fp"))

	_, dup3 := c.Begin("fp")
	assert.False(t, dup3, "after release the fingerprint can be registered again")
}

func TestCoalescer_ReleaseIsIdempotent(t *testing.T) {
	c := NewCoalescer()
	release, _ := c.Begin("fp")
	release()
	release() // must not panic or release someone else's registration

	release2, dup := c.Begin("fp")
	assert.False(t, dup)

	// The stale release from the first registration must not evict the new one.
	release()
	assert.True(t, c.InFlight("fp"))
	release2()
	assert.False(t, c.InFlight("fp"))
}

func TestCoalescer_DuplicateReleaseIsNoop(t *testing.T) {
	c := NewCoalescer()
	holder, _ := c.Begin("fp")
	dupRelease, dup := c.Begin("fp")
	assert.True(t, dup)

	dupRelease()
	assert.True(t, c.InFlight("fp"), "a duplicate's release must not drop the holder's registration")
	holder()
	assert.False(t, c.InFlight("fp"))
}

func TestCoalescer_ConcurrentOneWinner(t *testing.T) {
	c := NewCoalescer()

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	releases := make([]func(), 0, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, dup := c.Begin("fp")
			if !dup {
				mu.Lock()
				winners++
				releases = append(releases, release)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one caller wins the registration")
	for _, r := range releases {
		r()
	}
	assert.False(t, c.InFlight("fp"))
}
