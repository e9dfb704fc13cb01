package api

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTTL         = 15 * time.Minute
)

// limiterStore keeps one token bucket per client address
type limiterStore struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	perMinute   int
	now         func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(perMinute int) *limiterStore {
	store := &limiterStore{
		limiters:    make(map[string]*limiterEntry),
		perMinute:   perMinute,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go store.cleanupLoop()

	return store
}

// Middleware answers 429 once a client has used its budget
func (s *limiterStore) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter(clientKey(r)).Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Minute/time.Second)/s.perMinute+1))
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *limiterStore) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.limiters[key]; ok {
		entry.lastSeen = s.now()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMinute)), s.perMinute)
	s.limiters[key] = &limiterEntry{limiter: limiter, lastSeen: s.now()}
	return limiter
}

func (s *limiterStore) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup drops limiters idle for longer than limiterIdleTTL
func (s *limiterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(s.limiters, key)
		}
	}
}

// Stop ends the cleanup goroutine
func (s *limiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

// clientKey is the connection address. TrustedRealIP has already applied proxy headers
// from trusted peers.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
