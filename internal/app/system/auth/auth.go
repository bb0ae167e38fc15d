package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/respond"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey   = "is_authenticated"
	userIDKey   = "user_id"
	usernameKey = "username"

	tokenIssuer = "studyhub"
)

// ErrInvalidToken is returned by ParseToken for any token that fails
// signature, expiry, or claim checks.
var ErrInvalidToken = errors.New("invalid token")

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the authenticated identity injected into r.Context().
type SessionUser struct {
	ID       string
	Username string
}

// ObjectID returns the user's id, or the zero ObjectID if it is not valid.
func (u *SessionUser) ObjectID() primitive.ObjectID {
	if u == nil {
		return primitive.NilObjectID
	}
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// UserID returns the signed-in user's id, or the zero ObjectID when the
// request is anonymous. Services treat the zero id as unauthenticated.
func UserID(r *http.Request) primitive.ObjectID {
	u, _ := CurrentUser(r)
	return u.ObjectID()
}

// WithTestUser injects u into the request context, bypassing cookies and
// tokens. Intended for handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// Config holds the cookie and token settings.
type Config struct {
	SessionKey  string
	SessionName string
	Domain      string
	MaxAge      time.Duration
	Secure      bool
	JWTSecret   string
	JWTTTL      time.Duration
}

// SessionManager authenticates requests from either a bearer token or a
// session cookie.
type SessionManager struct {
	store     *sessions.CookieStore
	name      string
	jwtSecret []byte
	jwtTTL    time.Duration
	log       *zap.Logger
	now       func() time.Time
}

type tokenClaims struct {
	Username string `json:"usr"`
	jwt.RegisteredClaims
}

// NewSessionManager builds the cookie store and token signer. An empty
// session key or JWT secret gets a random one, which invalidates all
// sessions and tokens on restart.
func NewSessionManager(cfg Config, logger *zap.Logger) (*SessionManager, error) {
	sessionKey := []byte(cfg.SessionKey)
	if len(sessionKey) == 0 {
		logger.Warn("session key is empty; using a random key")
		sessionKey = securecookie.GenerateRandomKey(32)
	} else if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		logger.Warn("jwt secret is empty; using a random secret")
		jwtSecret = securecookie.GenerateRandomKey(32)
	}
	if sessionKey == nil || jwtSecret == nil {
		return nil, fmt.Errorf("generate random key")
	}
	if cfg.SessionName == "" {
		cfg.SessionName = "studyhub-session"
	}
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 24 * time.Hour
	}

	store := sessions.NewCookieStore(sessionKey)
	store.Options = &sessions.Options{
		Domain:   cfg.Domain,
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.Secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("session manager initialized",
		zap.Bool("secure", cfg.Secure),
		zap.String("domain", cfg.Domain),
		zap.Duration("jwt_ttl", cfg.JWTTTL))

	return &SessionManager{
		store:     store,
		name:      cfg.SessionName,
		jwtSecret: jwtSecret,
		jwtTTL:    cfg.JWTTTL,
		log:       logger,
		now:       time.Now,
	}, nil
}

// IssueToken signs a bearer token for u and returns it with its expiry.
func (sm *SessionManager) IssueToken(u SessionUser) (string, time.Time, error) {
	now := sm.now()
	exp := now.Add(sm.jwtTTL)
	claims := tokenClaims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken validates a bearer token and returns its user.
func (sm *SessionManager) ParseToken(token string) (*SessionUser, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return sm.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(sm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := primitive.ObjectIDFromHex(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return &SessionUser{ID: claims.Subject, Username: claims.Username}, nil
}

// SignIn stores u in the session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[usernameKey] = u.Username
	return sess.Save(r, w)
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadSessionUser injects the user into context when the request carries a
// valid bearer token or session cookie. Invalid credentials leave the
// request anonymous.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok, ok := bearerToken(r); ok {
			u, err := sm.ParseToken(tok)
			if err != nil {
				sm.log.Debug("rejected bearer token", zap.Error(err))
			} else {
				r = withUser(r, u)
			}
			next.ServeHTTP(w, r)
			return
		}

		sess, err := sm.store.Get(r, sm.name)
		if err == nil {
			if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
				r = withUser(r, &SessionUser{
					ID:       getString(sess, userIDKey),
					Username: getString(sess, usernameKey),
				})
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects anonymous requests with 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		respond.Fail(w, http.StatusUnauthorized, "unauthenticated", "sign in required")
	})
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
