package paths

import (
	"crypto/tls"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDirs(t *testing.T) {
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	install := filepath.Join(base, "system")
	require.NoError(t, os.MkdirAll(install, 0o755))

	d, err := ResolveDirs(install, "dark")
	require.NoError(t, err)
	assert.Equal(t, base, d.Base)
	assert.Equal(t, filepath.Join(base, "system"), d.System)
	assert.Equal(t, filepath.Join(base, "public"), d.Public)
	assert.Equal(t, filepath.Join(base, "public", "themes"), d.Themes)
	assert.Equal(t, filepath.Join(base, "public", "themes", "dark"), d.Theme)
}

func TestThemeDefaultsForDirsAndURIs(t *testing.T) {
	for _, theme := range []string{"", "  "} {
		d := DirsFromBase("/srv/lai", theme)
		u := ResolveURIs(d, Request{Scheme: "http", Host: "example.com", Port: 80, DocumentRoot: "/srv"}, theme)
		assert.True(t, strings.HasSuffix(d.Theme, "/default"), "dir %q", d.Theme)
		assert.True(t, strings.HasSuffix(u.Theme, "/default"), "uri %q", u.Theme)
	}
}

func TestBaseURIPort(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"port 80 omitted", Request{Scheme: "https", Host: "example.com", Port: 80, DocumentRoot: "/srv"}, "https://example.com/lai"},
		{"port 8443 kept", Request{Scheme: "https", Host: "example.com", Port: 8443, DocumentRoot: "/srv"}, "https://example.com:8443/lai"},
		{"port 443 kept", Request{Scheme: "https", Host: "example.com", Port: 443, DocumentRoot: "/srv"}, "https://example.com:443/lai"},
		{"served at root", Request{Scheme: "http", Host: "example.com", Port: 80, DocumentRoot: "/srv/lai"}, "http://example.com"},
		{"outside document root", Request{Scheme: "http", Host: "example.com", Port: 80, DocumentRoot: "/var/www"}, "http://example.com"},
		{"no document root", Request{Scheme: "http", Host: "example.com", Port: 8080}, "http://example.com:8080"},
		{"ipv6", Request{Scheme: "http", Host: "::1", Port: 8080, DocumentRoot: "/srv"}, "http://[::1]:8080/lai"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseURI("/srv/lai", tt.req))
		})
	}
}

func TestResolveURIsMirrorDirs(t *testing.T) {
	d := DirsFromBase("/srv/www/index", "dark")
	u := ResolveURIs(d, Request{Scheme: "http", Host: "files.local", Port: 8080, DocumentRoot: "/srv/www"}, "dark")

	assert.Equal(t, "http://files.local:8080/index", u.Base)
	assert.Equal(t, "http://files.local:8080/index/public", u.Public)
	assert.Equal(t, "http://files.local:8080/index/public/themes", u.Themes)
	assert.Equal(t, "http://files.local:8080/index/public/themes/dark", u.Theme)

	// same relative suffix on both sides
	relDir, err := filepath.Rel(d.Base, d.Theme)
	require.NoError(t, err)
	assert.Equal(t, u.Base+"/"+filepath.ToSlash(relDir), u.Theme)
}

func TestRequestFromHTTP(t *testing.T) {
	r := httptest.NewRequest("GET", "http://example.com/", nil)
	req := RequestFromHTTP(r, "/srv")
	assert.Equal(t, Request{Scheme: "http", Host: "example.com", Port: 80, DocumentRoot: "/srv"}, req)

	r = httptest.NewRequest("GET", "http://example.com:8443/", nil)
	r.TLS = &tls.ConnectionState{}
	req = RequestFromHTTP(r, "")
	assert.Equal(t, "https", req.Scheme)
	assert.Equal(t, 8443, req.Port)

	r = httptest.NewRequest("GET", "http://example.com/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	req = RequestFromHTTP(r, "")
	assert.Equal(t, "https", req.Scheme)
	assert.Equal(t, 443, req.Port)

	r = httptest.NewRequest("GET", "http://[::1]/", nil)
	req = RequestFromHTTP(r, "")
	assert.Equal(t, "::1", req.Host)
	assert.Equal(t, "http://[::1]", BaseURI("/x", req))
}
