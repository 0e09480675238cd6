// Package mainqueuetest provides a manually drained Dispatcher for tests that
// need to control when main queue work runs.
package mainqueuetest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Pending records dispatched work until the test drains it.
type Pending struct {
	mu   sync.Mutex
	work []func()
}

// Dispatch implements mainqueue.Dispatcher.
func (p *Pending) Dispatch(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.work = append(p.work, fn)
}

// Len returns the number of queued items.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.work)
}

// RunNext waits for one item of work and runs it on the calling goroutine.
func (p *Pending) RunNext(t testing.TB) {
	t.Helper()
	require.Eventually(t, func() bool { return p.Len() > 0 }, time.Second, 5*time.Millisecond,
		"no main queue work was dispatched")
	p.mu.Lock()
	fn := p.work[0]
	p.work = p.work[1:]
	p.mu.Unlock()
	fn()
}

// RunAll runs every queued item, including work queued by those items.
func (p *Pending) RunAll() {
	for {
		p.mu.Lock()
		if len(p.work) == 0 {
			p.mu.Unlock()
			return
		}
		fn := p.work[0]
		p.work = p.work[1:]
		p.mu.Unlock()
		fn()
	}
}
