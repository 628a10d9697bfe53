package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// sweepEvery is how many Take calls pass between sweeps of expired windows.
const sweepEvery = 1024

// IdeaQuota caps how many ideas one client may submit per window. Every
// accepted idea holds the analyzer, so the cap is per client address.
type IdeaQuota struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	used   map[string]*usage
	takes  int
	clock  func() time.Time
}

type usage struct {
	count int
	since time.Time
}

// NewIdeaQuota allows limit ideas per client in each window.
func NewIdeaQuota(limit int, window time.Duration) *IdeaQuota {
	return &IdeaQuota{
		limit:  limit,
		window: window,
		used:   make(map[string]*usage),
		clock:  time.Now,
	}
}

// Take spends one idea for client. When the quota is exhausted it reports
// false along with the time left until the client's window reopens.
func (q *IdeaQuota) Take(client string) (bool, time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock()
	if q.takes++; q.takes%sweepEvery == 0 {
		q.sweep(now)
	}

	u := q.used[client]
	if u == nil || now.Sub(u.since) >= q.window {
		u = &usage{since: now}
		q.used[client] = u
	}
	if u.count >= q.limit {
		return false, q.window - now.Sub(u.since)
	}
	u.count++
	return true, 0
}

func (q *IdeaQuota) sweep(now time.Time) {
	for client, u := range q.used {
		if now.Sub(u.since) >= q.window {
			delete(q.used, client)
		}
	}
}

// remoteClient names the caller: the first X-Forwarded-For hop when the
// server sits behind a proxy, otherwise the peer host.
func remoteClient(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// withQuota answers 429 with a Retry-After in whole seconds once the
// caller's quota is spent.
func withQuota(q *IdeaQuota, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, wait := q.Take(remoteClient(r))
		if !ok {
			secs := int((wait + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			http.Error(w, "too many ideas, slow down", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
