package httpserver

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/oddone/internal/level"
	"github.com/robalobadob/oddone/internal/session"
	"github.com/robalobadob/oddone/internal/store"
)

type harness struct {
	t   *testing.T
	srv *Server
	st  store.Store

	mu      sync.Mutex
	created []*session.Session
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{t: t, st: store.NewMemoryStore()}
	opts := Options{
		Store:               h.st,
		Secret:              []byte("test-secret"),
		CookieName:          "sid",
		ClientOrigin:        "http://localhost:5173",
		PortraitFallbackURL: "https://example.com/portrait.jpg",
		NewSession: func(id string) *session.Session {
			s := session.New(id, session.Options{
				Source:           level.Nop{},
				Rand:             rand.New(rand.NewPCG(7, 7)),
				CelebrationDelay: time.Hour,
			})
			h.mu.Lock()
			h.created = append(h.created, s)
			h.mu.Unlock()
			return s
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.srv = New(opts)
	t.Cleanup(h.st.Close)
	return h
}

func (h *harness) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(rec, req)
	return rec
}

// open creates a session and returns its cookie.
func (h *harness) open() *http.Cookie {
	h.t.Helper()
	rec := h.do(http.MethodGet, "/api/session", "")
	require.Equal(h.t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(h.t, cookies, 1)
	return cookies[0]
}

// waitAll waits for background level fetches of every created session.
func (h *harness) waitAll() {
	h.mu.Lock()
	all := append([]*session.Session(nil), h.created...)
	h.mu.Unlock()
	for _, s := range all {
		s.Wait()
	}
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) session.View {
	t.Helper()
	var v session.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestNotFoundIsJSON(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec))
}

func TestIndexServesPage(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/api/session/events")
}

func TestPalette(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/emojis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, level.Palette, got)
}

func TestSessionCookieIsReused(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeView(t, rec)
	assert.Equal(t, session.ScreenMenu, first.Screen)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rec = h.do(http.MethodGet, "/api/session", "", cookies[0])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, first.ID, decodeView(t, rec).ID)
}

func TestForeignTokenStartsFreshSession(t *testing.T) {
	h := newHarness(t, nil)
	other := newHarness(t, func(o *Options) { o.Secret = []byte("another-secret") })
	foreign := other.open()

	rec := h.do(http.MethodGet, "/api/session", "", foreign)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.NotEqual(t, foreign.Value, rec.Result().Cookies()[0].Value)

	rec = h.do(http.MethodGet, "/api/session", "", &http.Cookie{Name: "sid", Value: "garbage"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestStartAndPlay(t *testing.T) {
	h := newHarness(t, nil)
	c := h.open()

	rec := h.do(http.MethodPost, "/api/session/start", "{}", c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.ScreenPlaying, decodeView(t, rec).Screen)

	h.waitAll()
	v := decodeView(t, h.do(http.MethodGet, "/api/session", "", c))
	require.NotNil(t, v.Level)
	require.NotNil(t, v.Round)
	assert.False(t, v.Loading)
	assert.Equal(t, level.Fallback()[0], *v.Level)
	assert.Len(t, v.Round.Cells, v.Level.Cells())

	body, _ := json.Marshal(inputReq{Value: v.Level.CommonSymbol})
	rec = h.do(http.MethodPost, "/api/session/input", string(body), c)
	require.Equal(t, http.StatusOK, rec.Code)
	var res inputRes
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "incorrect", string(res.Outcome))
	assert.True(t, res.View.Round.Error)

	body, _ = json.Marshal(inputReq{Value: v.Level.OddSymbol})
	rec = h.do(http.MethodPost, "/api/session/input", string(body), c)
	require.Equal(t, http.StatusOK, rec.Code)
	res = inputRes{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "solved", string(res.Outcome))
	assert.True(t, res.View.Round.Solved)
	assert.NotEmpty(t, res.View.Round.Message)
}

func TestHintEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	c := h.open()
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/session/start", "{}", c).Code)
	h.waitAll()

	rec := h.do(http.MethodPost, "/api/session/hint", "{}", c)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	require.NotNil(t, v.Round)
	assert.Equal(t, 1, v.Round.HintUsed)
	assert.False(t, v.Round.HintAvailable)

	hidden := 0
	for _, cell := range v.Round.Cells {
		if cell.Hidden {
			hidden++
			assert.Empty(t, cell.Symbol)
		}
	}
	assert.Equal(t, (v.Level.Cells()-1)/2, hidden)
}

func TestWrongScreenIsConflict(t *testing.T) {
	h := newHarness(t, nil)
	c := h.open()

	rec := h.do(http.MethodPost, "/api/session/restart", "{}", c)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "wrong_screen", decodeError(t, rec))

	rec = h.do(http.MethodPost, "/api/session/input", `{"value":"x"}`, c)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/api/session/custom", `{"baseEmoji":"🐶","targetEmoji":"🐱","gridSize":4}`, c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCustomGame(t *testing.T) {
	h := newHarness(t, nil)
	c := h.open()

	rec := h.do(http.MethodPost, "/api/session/create", "{}", c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.ScreenCreate, decodeView(t, rec).Screen)

	rec = h.do(http.MethodPost, "/api/session/custom", `{"baseEmoji":"🐶","targetEmoji":"🐶","gridSize":4}`, c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/session/custom", `{not json`, c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_json", decodeError(t, rec))

	rec = h.do(http.MethodPost, "/api/session/custom", `{"baseEmoji":"🐶","targetEmoji":"🐱","gridSize":4}`, c)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.Equal(t, session.ScreenPlaying, v.Screen)
	assert.Equal(t, session.ModeCustom, v.Mode)
	require.NotNil(t, v.Round)
	assert.Len(t, v.Round.Cells, 16)

	rec = h.do(http.MethodPost, "/api/session/home", "{}", c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.ScreenMenu, decodeView(t, rec).Screen)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/session/start", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestPortraitLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portrait.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o600))
	h := newHarness(t, func(o *Options) { o.PortraitPath = path })

	rec := h.do(http.MethodGet, "/portrait", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg-bytes", rec.Body.String())
}

func TestPortraitFallsBackToRemote(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.PortraitPath = filepath.Join(t.TempDir(), "missing.jpg") })

	rec := h.do(http.MethodGet, "/portrait", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/portrait.jpg", rec.Header().Get("Location"))

	bare := newHarness(t, func(o *Options) { o.PortraitFallbackURL = "" })
	assert.Equal(t, http.StatusNotFound, bare.do(http.MethodGet, "/portrait", "").Code)
}

func TestEventsStreamViews(t *testing.T) {
	h := newHarness(t, nil)
	ts := httptest.NewServer(h.srv.Router())
	defer ts.Close()
	c := h.open()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hdr := http.Header{}
	hdr.Add("Cookie", c.Name+"="+c.Value)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/session/events",
		&websocket.DialOptions{HTTPHeader: hdr})
	require.NoError(t, err)
	defer conn.CloseNow()

	var v session.View
	require.NoError(t, wsjson.Read(ctx, conn, &v))
	assert.Equal(t, session.ScreenMenu, v.Screen)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/session/start", "{}", c).Code)

	// Views may coalesce; read until the first level is on screen.
	for v.Screen != session.ScreenPlaying || v.Loading {
		v = session.View{}
		require.NoError(t, wsjson.Read(ctx, conn, &v))
	}
	require.NotNil(t, v.Level)
	assert.Equal(t, 1, v.Level.ID)
}
