// Package login is a small session cookie login over the site database.
package login

import (
	"context"
	"errors"
	"net/http"

	"lastautoindex/internal/platform/sitedb"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

const (
	SessionName = "lai-session"

	isAuthKey = "is_authenticated"
	userKey   = "user"
)

var (
	ErrDisabled           = errors.New("login is disabled")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Users looks up accounts. *sitedb.Enabled satisfies it.
type Users interface {
	FindUser(ctx context.Context, name string) (*sitedb.User, error)
}

type Login struct {
	enabled bool
	users   Users
	store   *sessions.CookieStore
}

// Disabled returns a Login that refuses everything and touches nothing.
func Disabled() *Login {
	return &Login{}
}

// New returns an enabled Login. An empty key gets a random one.
func New(users Users, key []byte, secure bool) *Login {
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Login{enabled: true, users: users, store: store}
}

func (l *Login) Enabled() bool { return l != nil && l.enabled }

// CurrentUser returns the signed in user name, if any.
func (l *Login) CurrentUser(r *http.Request) (string, bool) {
	if !l.Enabled() {
		return "", false
	}
	sess, err := l.store.Get(r, SessionName)
	if err != nil {
		return "", false
	}
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return "", false
	}
	name, ok := sess.Values[userKey].(string)
	return name, ok && name != ""
}

// SignIn checks the credentials and starts a session.
func (l *Login) SignIn(w http.ResponseWriter, r *http.Request, user, pass string) error {
	if !l.Enabled() {
		return ErrDisabled
	}
	u, err := l.users.FindUser(r.Context(), user)
	if errors.Is(err, sitedb.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pass)) != nil {
		return ErrInvalidCredentials
	}

	// a stale or foreign cookie still yields a usable new session
	sess, _ := l.store.Get(r, SessionName)
	sess.Values[isAuthKey] = true
	sess.Values[userKey] = u.Name
	return sess.Save(r, w)
}

func (l *Login) SignOut(w http.ResponseWriter, r *http.Request) error {
	if !l.Enabled() {
		return ErrDisabled
	}
	sess, _ := l.store.Get(r, SessionName)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// HashPassword returns a bcrypt hash suitable for sitedb.User.
func HashPassword(pass string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	return string(h), err
}
