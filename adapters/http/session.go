package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/nutriplanner/domain"
	"github.com/satriahrh/nutriplanner/utils/log"
)

const (
	// SessionIDKey is the echo context key holding the visitor's session id.
	SessionIDKey = "session_id"

	sessionIssuer = "nutriplanner"
)

type SessionClaims struct {
	jwt.RegisteredClaims
}

// Sessions binds browsers to store entries through a signed cookie.
type Sessions struct {
	store      domain.SessionStore
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

func NewSessions(store domain.SessionStore, secret []byte, ttl time.Duration, cookieName string, secure bool) *Sessions {
	return &Sessions{
		store:      store,
		secret:     secret,
		ttl:        ttl,
		cookieName: cookieName,
		secure:     secure,
		now:        time.Now,
	}
}

// Middleware loads the session named by the cookie, or starts a new one when
// the cookie is missing, invalid, expired or refers to an ended session.
func (s *Sessions) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := s.fromCookie(c)
		if !ok {
			sess := s.store.Create()
			id = sess.ID
			if err := s.setCookie(c, id); err != nil {
				log.WithCtx(c.Request().Context()).Error("signing session token", zap.Error(err))
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create session")
			}
		}

		c.Set(SessionIDKey, id)
		ctx := log.ContextWithSessionID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// End deletes the session and expires the cookie.
func (s *Sessions) End(c echo.Context) {
	if id := SessionID(c); id != "" {
		s.store.Delete(id)
	}
	c.SetCookie(&http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) fromCookie(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		log.WithCtx(c.Request().Context()).Debug("discarding session cookie", zap.Error(err))
		return "", false
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", false
	}
	if _, ok := s.store.Get(claims.Subject); !ok {
		return "", false
	}
	return claims.Subject, true
}

func (s *Sessions) setCookie(c echo.Context, id string) error {
	now := s.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     s.cookieName,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(s.ttl),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
