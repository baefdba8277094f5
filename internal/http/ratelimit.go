package http

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// limitPolicy says which methods are throttled and how hard. Report reads
// are cache-backed and stay unthrottled; ledger writes get a fixed per-client
// window.
type limitPolicy struct {
	methods    map[string]bool
	limit      int
	window     time.Duration
	staleAfter time.Duration
	sweepEvery time.Duration
}

func writeLimitPolicy() limitPolicy {
	return limitPolicy{
		methods: map[string]bool{
			http.MethodPost:   true,
			http.MethodDelete: true,
		},
		limit:      60,
		window:     time.Minute,
		staleAfter: 10 * time.Minute,
		sweepEvery: 5 * time.Minute,
	}
}

// writeLimiter counts requests per client IP in fixed windows.
type writeLimiter struct {
	policy   limitPolicy
	rejected int64

	mu      sync.Mutex
	windows map[string]*requestWindow

	done chan struct{}
	once sync.Once
}

type requestWindow struct {
	startedAt time.Time
	count     int
}

func newWriteLimiter(policy limitPolicy) *writeLimiter {
	wl := &writeLimiter{
		policy:  policy,
		windows: make(map[string]*requestWindow),
		done:    make(chan struct{}),
	}
	go wl.sweepLoop()
	return wl
}

func (wl *writeLimiter) sweepLoop() {
	ticker := time.NewTicker(wl.policy.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			wl.sweepStale()
		case <-wl.done:
			return
		}
	}
}

// sweepStale drops windows of clients that stopped sending requests.
func (wl *writeLimiter) sweepStale() {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	cutoff := time.Now().Add(-wl.policy.staleAfter)
	for ip, w := range wl.windows {
		if w.startedAt.Before(cutoff) {
			delete(wl.windows, ip)
		}
	}
}

func (wl *writeLimiter) stop() {
	wl.once.Do(func() { close(wl.done) })
}

// applies reports whether the policy throttles this method at all.
func (wl *writeLimiter) applies(method string) bool {
	return wl.policy.methods[method]
}

// allow counts one request against the client's current window, opening a new
// window when the previous one has elapsed.
func (wl *writeLimiter) allow(clientIP string) bool {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	now := time.Now()
	w, ok := wl.windows[clientIP]
	if !ok || now.Sub(w.startedAt) >= wl.policy.window {
		wl.windows[clientIP] = &requestWindow{startedAt: now, count: 1}
		return true
	}

	w.count++
	if w.count > wl.policy.limit {
		atomic.AddInt64(&wl.rejected, 1)
		return false
	}
	return true
}

// rejectedCount returns how many requests the limiter has turned away.
func (wl *writeLimiter) rejectedCount() int64 {
	return atomic.LoadInt64(&wl.rejected)
}
