package login

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"lastautoindex/internal/platform/sitedb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers map[string]string

func (f fakeUsers) FindUser(_ context.Context, name string) (*sitedb.User, error) {
	if f == nil {
		panic("disabled login must not query users")
	}
	h, ok := f[name]
	if !ok {
		return nil, sitedb.ErrNotFound
	}
	return &sitedb.User{Name: name, PasswordHash: h}, nil
}

func hash(t *testing.T, pass string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func withCookies(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSignInAndOut(t *testing.T) {
	l := New(fakeUsers{"admin": hash(t, "hunter2")}, []byte("0123456789abcdef0123456789abcdef"), false)
	require.True(t, l.Enabled())

	rec := httptest.NewRecorder()
	require.NoError(t, l.SignIn(rec, httptest.NewRequest("POST", "/login", nil), "admin", "hunter2"))

	name, ok := l.CurrentUser(withCookies(rec))
	require.True(t, ok)
	assert.Equal(t, "admin", name)

	out := httptest.NewRecorder()
	require.NoError(t, l.SignOut(out, withCookies(rec)))
	cookies := out.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestSignInRejects(t *testing.T) {
	l := New(fakeUsers{"admin": hash(t, "hunter2")}, nil, false)

	tests := []struct {
		name, user, pass string
	}{
		{"wrong password", "admin", "hunter3"},
		{"unknown user", "root", "hunter2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			err := l.SignIn(rec, httptest.NewRequest("POST", "/login", nil), tt.user, tt.pass)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestDisabled(t *testing.T) {
	l := Disabled()
	assert.False(t, l.Enabled())

	r := httptest.NewRequest("GET", "/", nil)
	_, ok := l.CurrentUser(r)
	assert.False(t, ok)
	assert.ErrorIs(t, l.SignIn(httptest.NewRecorder(), r, "admin", "x"), ErrDisabled)
	assert.ErrorIs(t, l.SignOut(httptest.NewRecorder(), r), ErrDisabled)

	var nilLogin *Login
	assert.False(t, nilLogin.Enabled())
}

func TestHashPasswordSignsIn(t *testing.T) {
	h, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", h)

	l := New(fakeUsers{"admin": h}, nil, false)
	require.NoError(t, l.SignIn(httptest.NewRecorder(), httptest.NewRequest("POST", "/login", nil), "admin", "hunter2"))
}
