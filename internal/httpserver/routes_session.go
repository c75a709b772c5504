// internal/httpserver/routes_session.go
//
// HTTP routes for the session controller.
//   - GET  /api/session           → current view (creates a session if needed)
//   - POST /api/session/start     → start a normal game
//   - POST /api/session/create    → open the creation flow
//   - POST /api/session/custom    → start a custom game
//   - POST /api/session/input     → submit the input field contents
//   - POST /api/session/hint      → use the hint
//   - POST /api/session/home      → back to the menu
//   - POST /api/session/restart   → play again from the summary screen
//   - GET  /api/session/events    → websocket stream of views
//   - GET  /api/emojis            → quick-pick palette for the creation flow

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/oddone/internal/level"
	"github.com/robalobadob/oddone/internal/round"
	"github.com/robalobadob/oddone/internal/session"
)

const cookieTTL = 30 * 24 * time.Hour

// ------------------------------ session ------------------------------------

// currentSession resolves the caller's session from the cookie, starting a new
// one (and setting the cookie) when there is none or it has expired.
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	if c, err := r.Cookie(s.opts.CookieName); err == nil && c.Value != "" {
		if id, err := s.parseToken(c.Value); err == nil {
			if sess, err := s.opts.Store.Get(r.Context(), id); err == nil {
				return sess, nil
			}
		}
	}

	sess := s.opts.NewSession(uuid.NewString())
	if err := s.opts.Store.Save(r.Context(), sess); err != nil {
		return nil, err
	}
	tok, exp, err := s.signToken(sess.ID)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	log.Debug().Str("session", sess.ID).Msg("new session")
	return sess, nil
}

// signToken creates an HS256 JWT carrying the session ID.
func (s *Server) signToken(id string) (string, time.Time, error) {
	exp := time.Now().Add(cookieTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": id,
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
	})
	ss, err := t.SignedString(s.opts.Secret)
	return ss, exp, err
}

// parseToken verifies a session cookie and returns the session ID.
func (s *Server) parseToken(tok string) (string, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return s.opts.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return "", errors.New("invalid session token")
	}
	id, _ := claims["sid"].(string)
	if id == "" {
		return "", errors.New("invalid session token")
	}
	return id, nil
}

// withSession adapts a handler that needs the caller's session.
func (s *Server) withSession(fn func(w http.ResponseWriter, r *http.Request, sess *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.currentSession(w, r)
		if err != nil {
			log.Error().Err(err).Msg("resolve session")
			writeError(w, http.StatusInternalServerError, "session_failed")
			return
		}
		fn(w, r, sess)
	}
}

// respond writes the session's current view, or maps err to a status.
func respond(w http.ResponseWriter, sess *session.Session, err error) {
	switch {
	case err == nil:
		_ = json.NewEncoder(w).Encode(sess.View())
	case errors.Is(err, session.ErrWrongScreen):
		writeError(w, http.StatusConflict, "wrong_screen")
	case errors.Is(err, level.ErrSameSymbol),
		errors.Is(err, level.ErrEmptySymbol),
		errors.Is(err, level.ErrGridTooSmall),
		errors.Is(err, level.ErrBadDifficulty):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("session", sess.ID).Msg("session action failed")
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

// ------------------------------ handlers -----------------------------------

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	respond(w, sess, nil)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	respond(w, sess, sess.StartNormal())
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	respond(w, sess, sess.Restart())
}

func (s *Server) handleOpenCreate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	respond(w, sess, sess.OpenCreate())
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Home()
	respond(w, sess, nil)
}

// customReq is the body of POST /api/session/custom.
type customReq struct {
	BaseEmoji   string `json:"baseEmoji"`
	TargetEmoji string `json:"targetEmoji"`
	GridSize    int    `json:"gridSize"`
}

func (s *Server) handleCustom(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req customReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	respond(w, sess, sess.StartCustom(req.BaseEmoji, req.TargetEmoji, req.GridSize))
}

// inputReq/Res payloads for POST /api/session/input.
type inputReq struct {
	Value string `json:"value"`
}
type inputRes struct {
	Outcome round.Outcome `json:"outcome"`
	View    session.View  `json:"view"`
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req inputReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	res, err := sess.Input(req.Value)
	if err != nil {
		respond(w, sess, err)
		return
	}
	_ = json.NewEncoder(w).Encode(inputRes{Outcome: res.Outcome, View: sess.View()})
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	_, err := sess.UseHint()
	respond(w, sess, err)
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(level.Palette)
}

// handleEvents streams the session view over a websocket: once on connect and
// again after every state change, including changes made by background work
// (levels arriving, the celebratory delay elapsing).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(w, r)
	if err != nil {
		log.Error().Err(err).Msg("resolve session")
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	var patterns []string
	if h := originHost(s.opts.ClientOrigin); h != "" {
		patterns = append(patterns, h)
	}
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: patterns})
	if err != nil {
		log.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer c.CloseNow()

	// Client messages are not expected; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := c.CloseRead(r.Context())
	changes, stop := sess.Subscribe()
	defer stop()

	if err := writeView(ctx, c, sess); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				_ = c.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			if err := writeView(ctx, c, sess); err != nil {
				log.Debug().Err(err).Str("session", sess.ID).Msg("websocket write")
				return
			}
		}
	}
}

func writeView(ctx context.Context, c *websocket.Conn, sess *session.Session) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, c, sess.View())
}
