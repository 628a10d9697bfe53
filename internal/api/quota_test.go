package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdeaQuotaWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewIdeaQuota(2, time.Minute)
	q.clock = func() time.Time { return now }

	ok, _ := q.Take("a")
	assert.True(t, ok)
	ok, _ = q.Take("a")
	assert.True(t, ok)

	now = now.Add(15 * time.Second)
	ok, wait := q.Take("a")
	assert.False(t, ok)
	assert.Equal(t, 45*time.Second, wait)

	ok, _ = q.Take("b")
	assert.True(t, ok, "clients are counted separately")

	now = now.Add(45 * time.Second)
	ok, _ = q.Take("a")
	assert.True(t, ok, "window reopened")
}

func TestIdeaQuotaSweepsExpiredClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewIdeaQuota(sweepEvery, time.Minute)
	q.clock = func() time.Time { return now }

	q.Take("gone")
	now = now.Add(time.Minute)
	for i := 1; i < sweepEvery; i++ {
		q.Take("stays")
	}
	assert.NotContains(t, q.used, "gone")
	assert.Contains(t, q.used, "stays")
}

func TestWithQuota(t *testing.T) {
	h := withQuota(NewIdeaQuota(1, time.Hour), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/idea", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))

	req.Header.Set("X-Forwarded-For", "192.168.1.9, 10.0.0.1")
	assert.Equal(t, "192.168.1.9", remoteClient(req))
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
