// Package cookie implements the update cookie store over HTTP cookies.
//
// Values are signed with gorilla/securecookie, a cookie that fails to decode
// (tampered, expired signature, rotated key) reads as absent. Writes made
// during a request are visible to later reads in the same request.
package cookie

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// DefaultTTL is used for Set calls with a zero ttl.
const DefaultTTL = 365 * 24 * time.Hour

// Codec signs cookie values. Create one per process and share it.
type Codec struct {
	sc     *securecookie.SecureCookie
	Path   string
	Secure bool
}

// NewCodec returns a codec keyed with hashKey. An empty key gets a random one,
// which invalidates every cookie when the process restarts.
func NewCodec(hashKey []byte, secure bool) *Codec {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
	}
	sc := securecookie.New(hashKey, nil)
	sc.MaxAge(0) // expiry is the browser's job, per cookie
	return &Codec{sc: sc, Path: "/", Secure: secure}
}

type entry struct {
	value   string
	deleted bool
}

// Jar is a per-request cookie store.
type Jar struct {
	codec   *Codec
	w       http.ResponseWriter
	r       *http.Request
	now     func() time.Time
	pending map[string]entry
}

// Jar binds the codec to one request/response pair.
func (c *Codec) Jar(w http.ResponseWriter, r *http.Request) *Jar {
	return &Jar{codec: c, w: w, r: r, now: time.Now, pending: make(map[string]entry)}
}

func (j *Jar) lookup(name string) (string, bool) {
	if e, ok := j.pending[name]; ok {
		return e.value, !e.deleted
	}
	ck, err := j.r.Cookie(name)
	if err != nil {
		return "", false
	}
	var value string
	if err := j.codec.sc.Decode(name, ck.Value, &value); err != nil {
		return "", false
	}
	return value, true
}

func (j *Jar) Exists(name string) bool {
	_, ok := j.lookup(name)
	return ok
}

func (j *Jar) Get(name string) string {
	v, _ := j.lookup(name)
	return v
}

func (j *Jar) Set(name, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	encoded, err := j.codec.sc.Encode(name, value)
	if err != nil {
		return err
	}
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     j.codec.Path,
		Expires:  j.now().Add(ttl),
		MaxAge:   int(ttl / time.Second),
		Secure:   j.codec.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	j.pending[name] = entry{value: value}
	return nil
}

func (j *Jar) Delete(name string) error {
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     j.codec.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   j.codec.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	j.pending[name] = entry{deleted: true}
	return nil
}
