package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clinic-booking/internal/auth"
	"clinic-booking/internal/model"
	"clinic-booking/internal/store"
)

const (
	AccessCookie  = "access_token"
	SessionCookie = "session_token"
)

// RotationGrace is how long a just-rotated session token keeps working, so
// concurrent requests that raced the rotation do not log the user out.
const RotationGrace = 30 * time.Second

type SessionStore interface {
	CreateSession(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) (string, error)
	SessionByHash(ctx context.Context, tokenHash string) (*store.Session, error)
	SessionByID(ctx context.Context, id string) (*store.Session, error)
	RotateSession(ctx context.Context, oldID, newID, accountID, newHash string, newExpiry time.Time) error
	RevokeSessions(ctx context.Context, accountID string) error
	AccountByID(ctx context.Context, id string) (*model.Account, error)
}

// Sessions keeps browser logins alive: a short-lived access JWT plus an
// opaque rotating session token whose hash lives in the database.
type Sessions struct {
	store  SessionStore
	secret string
	secure bool
	now    func() time.Time
}

func NewSessions(st SessionStore, secret string, secure bool) *Sessions {
	return &Sessions{store: st, secret: secret, secure: secure, now: time.Now}
}

// Start logs the account in on w.
func (s *Sessions) Start(ctx context.Context, w http.ResponseWriter, a *model.Account) error {
	raw, hash, err := auth.NewSessionToken()
	if err != nil {
		return err
	}
	if _, err := s.store.CreateSession(ctx, a.ID, hash, s.now().Add(auth.SessionTTL)); err != nil {
		return err
	}
	if err := s.setAccess(w, a); err != nil {
		return err
	}
	s.setSession(w, raw)
	return nil
}

// End revokes every session of the current account and clears the cookies.
func (s *Sessions) End(ctx context.Context, w http.ResponseWriter) {
	if id, ok := IdentityFrom(ctx); ok {
		if err := s.store.RevokeSessions(ctx, id.AccountID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("revoke sessions")
		}
	}
	for _, name := range []string{AccessCookie, SessionCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.secure})
	}
}

func (s *Sessions) setAccess(w http.ResponseWriter, a *model.Account) error {
	tok, err := auth.IssueAccess(a.ID, a.Role, s.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name: AccessCookie, Value: tok, Path: "/", HttpOnly: true, Secure: s.secure,
		SameSite: http.SameSiteLaxMode, MaxAge: int(auth.AccessTTL.Seconds()),
	})
	return nil
}

func (s *Sessions) setSession(w http.ResponseWriter, rawSession string) {
	http.SetCookie(w, &http.Cookie{
		Name: SessionCookie, Value: rawSession, Path: "/", HttpOnly: true, Secure: s.secure,
		SameSite: http.SameSiteLaxMode, MaxAge: int(auth.SessionTTL.Seconds()),
	})
}

var errNoSession = errors.New("no session")

// identify resolves the caller from the access cookie, rotating the session
// token when the access token has expired.
func (s *Sessions) identify(w http.ResponseWriter, r *http.Request) (Identity, error) {
	if c, err := r.Cookie(AccessCookie); err == nil {
		if claims, err := auth.ParseAccess(c.Value, s.secret); err == nil {
			return Identity{AccountID: claims.AccountID(), Role: claims.Role}, nil
		}
	}

	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return Identity{}, errNoSession
	}
	ctx := r.Context()
	sess, err := s.store.SessionByHash(ctx, auth.HashSessionToken(c.Value))
	if err != nil {
		return Identity{}, errNoSession
	}
	if sess.Revoked {
		if sess.ReplacedBy == nil {
			return Identity{}, errNoSession
		}
		if !s.inGrace(ctx, sess) {
			// a rotated token came back late: assume theft and end every session
			zerolog.Ctx(ctx).Warn().Str("account_id", sess.AccountID).Msg("rotated session token reused")
			_ = s.store.RevokeSessions(ctx, sess.AccountID)
			return Identity{}, errNoSession
		}
		return s.reissueAccess(ctx, w, sess.AccountID)
	}
	if s.now().After(sess.ExpiresAt) {
		return Identity{}, errNoSession
	}
	a, err := s.store.AccountByID(ctx, sess.AccountID)
	if err != nil {
		return Identity{}, err
	}

	raw, hash, err := auth.NewSessionToken()
	if err != nil {
		return Identity{}, err
	}
	if err := s.store.RotateSession(ctx, sess.ID, uuid.New().String(), a.ID, hash, s.now().Add(auth.SessionTTL)); err != nil {
		// another request rotated it between our read and write
		if cur, lerr := s.store.SessionByHash(ctx, sess.TokenHash); lerr == nil && cur.ReplacedBy != nil && s.inGrace(ctx, cur) {
			return s.reissueAccess(ctx, w, a.ID)
		}
		return Identity{}, errNoSession
	}
	if err := s.setAccess(w, a); err != nil {
		return Identity{}, err
	}
	s.setSession(w, raw)
	return Identity{AccountID: a.ID, Role: a.Role}, nil
}

// reissueAccess serves a request that lost a race with a concurrent refresh.
// The winner already set the new session cookie, so only the access token is
// reissued.
func (s *Sessions) reissueAccess(ctx context.Context, w http.ResponseWriter, accountID string) (Identity, error) {
	a, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		return Identity{}, err
	}
	if err := s.setAccess(w, a); err != nil {
		return Identity{}, err
	}
	return Identity{AccountID: a.ID, Role: a.Role}, nil
}

// inGrace reports whether a revoked session was rotated moments ago and its
// replacement is still live.
func (s *Sessions) inGrace(ctx context.Context, sess *store.Session) bool {
	if sess.RotatedAt == nil || s.now().Sub(*sess.RotatedAt) > RotationGrace {
		return false
	}
	next, err := s.store.SessionByID(ctx, *sess.ReplacedBy)
	return err == nil && !next.Revoked
}

// Optional attaches the identity when present and never blocks.
func (s *Sessions) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := s.identify(w, r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects anonymous callers: JSON requests get 401, browsers are
// sent to the login page.
func (s *Sessions) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identify(w, r)
		if err != nil {
			if !errors.Is(err, errNoSession) {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("session lookup")
			}
			if r.Header.Get("Content-Type") == "application/json" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"login required"}` + "\n"))
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
