// Package auth handles password login and cookie sessions for the web UI and
// the JSON API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-doctype/pkg/model"
)

const (
	// SessionName is the cookie holding the session.
	SessionName = "doctype-session"
	// SessionMaxAge is seven days, in seconds.
	SessionMaxAge = 7 * 24 * 60 * 60

	contextKey  = "auth.user"
	keyUserID   = "user_id"
	keyUsername = "username"
	keyIsAdmin  = "is_admin"
	keyRole     = "role"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("auth: invalid username or password")

// UserFinder looks up a document by field value. *store.Store satisfies it.
type UserFinder interface {
	FindDocument(ctx context.Context, doctype, field string, value any) (model.Document, error)
}

// User is the authenticated principal kept in the session.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	Role     string `json:"role"`
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger for login events.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.log = logger
		}
	}
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(a *Authenticator) {
		a.secure = secure
	}
}

// WithSessionStore replaces the cookie store built from the session key.
func WithSessionStore(store sessions.Store) Option {
	return func(a *Authenticator) {
		a.sessions = store
	}
}

// WithLoginPath changes where anonymous page requests are redirected.
func WithLoginPath(path string) Option {
	return func(a *Authenticator) {
		if path != "" {
			a.loginPath = path
		}
	}
}

// Authenticator checks credentials against User documents and tracks the
// logged in user in a cookie session.
type Authenticator struct {
	users     UserFinder
	sessions  sessions.Store
	log       *zap.Logger
	secure    bool
	loginPath string
}

// New builds an Authenticator. sessionKey signs the cookie.
func New(users UserFinder, sessionKey []byte, opts ...Option) *Authenticator {
	a := &Authenticator{
		users:     users,
		log:       zap.NewNop(),
		loginPath: "/login",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.sessions == nil {
		store := sessions.NewCookieStore(sessionKey)
		store.Options = &sessions.Options{
			Path:     "/",
			MaxAge:   SessionMaxAge,
			HttpOnly: true,
			Secure:   a.secure,
			SameSite: http.SameSiteLaxMode,
		}
		a.sessions = store
	}
	return a
}

// HashPassword hashes password with bcrypt at cost. Out of range costs fall
// back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hashed), nil
}

// Hasher binds cost for callers that take a func(string) (string, error).
func Hasher(cost int) func(string) (string, error) {
	return func(password string) (string, error) {
		return HashPassword(password, cost)
	}
}

// Login verifies username and password against the User doctype.
func (a *Authenticator) Login(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	doc, err := a.users.FindDocument(ctx, model.UserDoctype, "username", username)
	if err != nil {
		a.log.Info("login rejected", zap.String("username", username), zap.Error(err))
		return User{}, ErrInvalidCredentials
	}

	hashed, _ := doc.Data["password"].(string)
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)); err != nil {
		a.log.Info("login rejected", zap.String("username", username), zap.String("reason", "password mismatch"))
		return User{}, ErrInvalidCredentials
	}

	user := userFromDocument(doc)
	a.log.Info("login", zap.String("username", user.Username), zap.Bool("admin", user.IsAdmin))
	return user, nil
}

// StartSession stores user in the session cookie.
func (a *Authenticator) StartSession(c echo.Context, user User) error {
	session, err := a.sessions.Get(c.Request(), SessionName)
	if err != nil && session == nil {
		return fmt.Errorf("auth: load session: %w", err)
	}
	session.Values[keyUserID] = user.ID
	session.Values[keyUsername] = user.Username
	session.Values[keyIsAdmin] = user.IsAdmin
	session.Values[keyRole] = user.Role
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return fmt.Errorf("auth: save session: %w", err)
	}
	return nil
}

// EndSession expires the session cookie.
func (a *Authenticator) EndSession(c echo.Context) error {
	session, err := a.sessions.Get(c.Request(), SessionName)
	if err != nil && session == nil {
		return fmt.Errorf("auth: load session: %w", err)
	}
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return fmt.Errorf("auth: clear session: %w", err)
	}
	return nil
}

// CurrentUser reads the user from the session. A tampered or expired cookie
// reads as anonymous.
func (a *Authenticator) CurrentUser(c echo.Context) (User, bool) {
	if user, ok := c.Get(contextKey).(User); ok {
		return user, true
	}
	session, err := a.sessions.Get(c.Request(), SessionName)
	if err != nil || session == nil {
		return User{}, false
	}
	username, _ := session.Values[keyUsername].(string)
	if username == "" {
		return User{}, false
	}
	user := User{Username: username}
	user.ID, _ = session.Values[keyUserID].(int64)
	user.IsAdmin, _ = session.Values[keyIsAdmin].(bool)
	user.Role, _ = session.Values[keyRole].(string)
	return user, true
}

// RequireLogin rejects anonymous requests. Paths under /api get a 401 JSON
// body; everything else is redirected to the login page.
func (a *Authenticator) RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := a.CurrentUser(c)
			if !ok {
				if wantsJSON(c) {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				}
				return c.Redirect(http.StatusFound, a.loginPath)
			}
			c.Set(contextKey, user)
			return next(c)
		}
	}
}

// UserFrom returns the user RequireLogin attached to c.
func UserFrom(c echo.Context) (User, bool) {
	user, ok := c.Get(contextKey).(User)
	return user, ok
}

func wantsJSON(c echo.Context) bool {
	if strings.HasPrefix(c.Request().URL.Path, "/api/") || c.Request().URL.Path == "/api" {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func userFromDocument(doc model.Document) User {
	user := User{ID: doc.ID}
	user.Username, _ = doc.Data["username"].(string)
	user.Role, _ = doc.Data["role"].(string)
	switch v := doc.Data["is_admin"].(type) {
	case int64:
		user.IsAdmin = v != 0
	case bool:
		user.IsAdmin = v
	}
	return user
}
