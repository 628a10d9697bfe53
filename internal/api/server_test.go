package api

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mindbike/internal/analyzer"
	"github.com/talgya/mindbike/internal/engine"
	"github.com/talgya/mindbike/internal/persistence"
	"github.com/talgya/mindbike/internal/sketch"
)

type fakeLister struct {
	sessions []persistence.SessionInfo
	err      error
}

func (f fakeLister) RecentSessions(_ context.Context, limit int) ([]persistence.SessionInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.sessions) {
		return f.sessions[:limit], nil
	}
	return f.sessions, nil
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	sess, err := engine.NewSession(engine.Options{
		Width: 320, Height: 240, Seed: 7,
		Analyzer: analyzer.NewLocal(analyzer.LocalDims),
	})
	require.NoError(t, err)
	t.Cleanup(sess.Wait)

	s := &Server{Session: sess, Eng: engine.NewEngine(30), ExportDir: t.TempDir()}
	return s, s.Handler()
}

func do(h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, http.MethodGet, "/api/v1/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "seeding", got["phase"])
	assert.Equal(t, sketch.PhaseSeeding.Prompt(), got["prompt"])
	assert.Equal(t, false, got["input_locked"])
	assert.Equal(t, float64(0), got["ideas"])
	assert.Equal(t, "local", got["analyzer"])
	assert.Equal(t, "0:00.00", got["elapsed"])
}

func TestPostIdeaLifecycle(t *testing.T) {
	s, h := newTestServer(t)

	rec := do(h, http.MethodPost, "/api/v1/idea", `{"text":"   "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/v1/idea", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/idea", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(h, http.MethodPost, "/api/v1/idea", `{"text":"why do bicycles stay upright?"}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	s.Session.Wait()

	// The seed is still dropping, so input stays locked.
	rec = do(h, http.MethodPost, "/api/v1/idea", `{"text":"another"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/trajectory", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ideas []sketch.IdeaRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ideas))
	require.Len(t, ideas, 1)
	assert.Equal(t, "why do bicycles stay upright?", ideas[0].Text)
	assert.Equal(t, 1, ideas[0].Index)

	rec = do(h, http.MethodGet, "/api/v1/trajectory.txt", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "1. ["), rec.Body.String())

	_, ok := s.Session.Settle(engine.MaxSettleFrames)
	require.True(t, ok)
	rec = do(h, http.MethodPost, "/api/v1/idea", `{"text":"and then?"}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestIdeaTooLong(t *testing.T) {
	_, h := newTestServer(t)
	body := `{"text":"` + strings.Repeat("a", MaxIdeaLen+1) + `"}`
	rec := do(h, http.MethodPost, "/api/v1/idea", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImages(t *testing.T) {
	_, h := newTestServer(t)

	for _, path := range []string{"/api/v1/snapshot.png", "/api/v1/frame.png", "/api/v1/frame.png?hover=3"} {
		rec := do(h, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		img, err := png.Decode(rec.Body)
		require.NoError(t, err, path)
		assert.Equal(t, 320, img.Bounds().Dx())
		assert.Equal(t, 240, img.Bounds().Dy())
	}

	rec := do(h, http.MethodGet, "/api/v1/frame.png?hover=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessions(t *testing.T) {
	s, h := newTestServer(t)

	rec := do(h, http.MethodGet, "/api/v1/sessions", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.DB = fakeLister{sessions: []persistence.SessionInfo{{ID: "b", Ideas: 3}, {ID: "a"}}}
	h = s.Handler()
	rec = do(h, http.MethodGet, "/api/v1/sessions?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []persistence.SessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, 3, got[0].Ideas)

	s.DB = fakeLister{err: errors.New("disk gone")}
	h = s.Handler()
	rec = do(h, http.MethodGet, "/api/v1/sessions", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	s, h := newTestServer(t)

	rec := do(h, http.MethodPost, "/api/v1/speed", `{"speed":2}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.AdminKey = "secret"
	h = s.Handler()
	rec = do(h, http.MethodPost, "/api/v1/speed", `{"speed":2}`, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	auth := map[string]string{"Authorization": "Bearer secret"}
	rec = do(h, http.MethodPost, "/api/v1/speed", `{"speed":2}`, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, s.Eng.Speed())

	rec = do(h, http.MethodPost, "/api/v1/speed", `{"speed":50}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/speed", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"speed": 2`)

	rec = do(h, http.MethodPost, "/api/v1/export", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bicycle-for-the-mind.png")
}

func TestCORS(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, http.MethodOptions, "/api/v1/status", "", map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(h, http.MethodGet, "/api/v1/status", "", map[string]string{"Origin": "http://evil.example"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMultiLineIdeaIsOneLogEntry(t *testing.T) {
	s, h := newTestServer(t)

	rec := do(h, http.MethodPost, "/api/v1/idea", `{"text":"line one\nline two\n3. [0, 0] (0 px) - forged"}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	s.Session.Wait()
	_, ok := s.Session.Settle(engine.MaxSettleFrames)
	require.True(t, ok)

	rec = do(h, http.MethodGet, "/api/v1/trajectory.txt", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, len(s.Session.Ideas()))
	assert.True(t, strings.HasSuffix(lines[0], " - line one line two 3. [0, 0] (0 px) - forged"), lines[0])
}
