// Package paths derives the install's filesystem layout and its public URIs.
//
// Layout under the base directory:
//
//	<base>/system
//	<base>/public
//	<base>/public/themes
//	<base>/public/themes/<theme>
//
// URIs mirror the same suffixes on top of the base URI.
package paths

import (
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultTheme = "default"
	DefaultPort  = 80

	systemSuffix = "system"
	publicSuffix = "public"
	themesSuffix = "themes"
)

// Dirs are the absolute filesystem directories of the install.
type Dirs struct {
	Base   string
	System string
	Public string
	Themes string
	Theme  string
}

// URIs are the public counterparts of Dirs.
type URIs struct {
	Base   string
	Public string
	Themes string
	Theme  string
}

// Request is the part of an inbound request the URI derivation needs.
type Request struct {
	Scheme       string
	Host         string // without port
	Port         int
	DocumentRoot string // filesystem directory served at "/"
}

// ThemeName returns theme, or DefaultTheme when it is empty.
func ThemeName(theme string) string {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return DefaultTheme
	}
	return theme
}

// ResolveDirs derives the directory layout from the install location, whose
// canonical parent is the base directory.
func ResolveDirs(installDir, theme string) (Dirs, error) {
	abs, err := filepath.Abs(installDir)
	if err != nil {
		return Dirs{}, fmt.Errorf("failed to resolve install dir %s: %w", installDir, err)
	}
	base, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return Dirs{}, fmt.Errorf("failed to resolve base dir: %w", err)
	}
	return DirsFromBase(base, theme), nil
}

// DirsFromBase derives the layout from an already canonical base directory.
func DirsFromBase(base, theme string) Dirs {
	d := Dirs{Base: base}
	d.System = filepath.Join(base, systemSuffix)
	d.Public = filepath.Join(base, publicSuffix)
	d.Themes = filepath.Join(d.Public, themesSuffix)
	d.Theme = filepath.Join(d.Themes, ThemeName(theme))
	return d
}

// BaseURI returns scheme://host[:port] followed by the base directory's path
// relative to the document root. The port is omitted when it is 80. A base
// directory outside the document root is treated as being served at "/".
func BaseURI(base string, req Request) string {
	host := req.Host
	if req.Port != 0 && req.Port != DefaultPort {
		host = net.JoinHostPort(req.Host, strconv.Itoa(req.Port))
	} else if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		// bare IPv6 literal
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s://%s%s", req.Scheme, host, relativeURIPath(base, req.DocumentRoot))
}

func relativeURIPath(base, docRoot string) string {
	if docRoot == "" {
		return ""
	}
	rel, err := filepath.Rel(docRoot, base)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return "/" + strings.ReplaceAll(filepath.ToSlash(rel), `\`, "/")
}

// ResolveURIs derives the public URIs for the layout in dirs. The theme
// defaults independently of the directory derivation.
func ResolveURIs(dirs Dirs, req Request, theme string) URIs {
	u := URIs{Base: BaseURI(dirs.Base, req)}
	u.Public = u.Base + "/" + publicSuffix
	u.Themes = u.Public + "/" + themesSuffix
	u.Theme = u.Themes + "/" + ThemeName(theme)
	return u
}

// RequestFromHTTP extracts the scheme, host and port of r. The scheme honors
// X-Forwarded-Proto. A Host without a port gets the scheme's default port.
func RequestFromHTTP(r *http.Request, docRoot string) Request {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	host := strings.TrimSuffix(strings.TrimPrefix(r.Host, "["), "]")
	port := 0
	if h, p, err := net.SplitHostPort(r.Host); err == nil {
		host = h
		port, _ = strconv.Atoi(p)
	}
	if port == 0 {
		port = DefaultPort
		if scheme == "https" {
			port = 443
		}
	}
	return Request{Scheme: scheme, Host: host, Port: port, DocumentRoot: docRoot}
}
