// Package update decides whether a newer release exists and whether the user
// should hear about it.
//
// The persistent state is three cookie-like entries in a Store:
//
//	ignore_release  a tag the user silenced
//	update_check    unix time of the last feed check (expires after a week)
//	has_update      tag of the newer release found last time (expires after a week)
//
// The feed is fetched only when update_check is gone or has_update is set.
// Classification and the decision over a fetched feed are pure functions so the
// policy can be tested without a store.
package update

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// IgnoreCookie holds the tag the user silenced.
	IgnoreCookie = "ignore_release"
	// CheckCookie holds the unix time of the last feed check.
	CheckCookie = "update_check"
	// FlagCookie holds the tag of a newer release found by the last check.
	FlagCookie = "has_update"

	// Week is the lifetime of CheckCookie and FlagCookie.
	Week = 7 * 24 * time.Hour
)

// Store is a cookie jar: named string values with an expiry.
// A ttl of zero means the store's default lifetime.
type Store interface {
	Exists(name string) bool
	Get(name string) string
	Set(name, value string, ttl time.Duration) error
	Delete(name string) error
}

// Cookies is a snapshot of the three entries.
type Cookies struct {
	Ignore     string
	HasIgnore  bool
	Checked    string
	HasChecked bool
	Flagged    string
	HasFlagged bool
}

// ReadCookies takes a snapshot of s.
func ReadCookies(s Store) Cookies {
	var c Cookies
	if c.HasIgnore = s.Exists(IgnoreCookie); c.HasIgnore {
		c.Ignore = s.Get(IgnoreCookie)
	}
	if c.HasChecked = s.Exists(CheckCookie); c.HasChecked {
		c.Checked = s.Get(CheckCookie)
	}
	if c.HasFlagged = s.Exists(FlagCookie); c.HasFlagged {
		c.Flagged = s.Get(FlagCookie)
	}
	return c
}

// LastChecked parses the update_check timestamp.
func (c Cookies) LastChecked() (time.Time, bool) {
	if !c.HasChecked {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(strings.TrimSpace(c.Checked), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// Phase is where a visitor stands in the check cycle, derived from the cookies.
type Phase int

const (
	// NeverChecked: no update_check entry, the throttle window expired or never started.
	NeverChecked Phase = iota
	// RecentlyChecked: checked within the window and nothing was found.
	RecentlyChecked
	// UpdateFlagged: a newer release was found and is still being reported.
	UpdateFlagged
	// Ignored: checked within the window and the user silenced a release.
	Ignored
)

func (p Phase) String() string {
	switch p {
	case NeverChecked:
		return "never-checked"
	case RecentlyChecked:
		return "recently-checked"
	case UpdateFlagged:
		return "update-flagged"
	case Ignored:
		return "ignored"
	}
	return "unknown"
}

// Classify maps the cookie snapshot to a phase. has_update wins over everything.
func Classify(c Cookies) Phase {
	switch {
	case c.HasFlagged:
		return UpdateFlagged
	case !c.HasChecked:
		return NeverChecked
	case c.HasIgnore:
		return Ignored
	default:
		return RecentlyChecked
	}
}

// Policy holds the throttle knobs.
type Policy struct {
	// FlaggedRecheck bounds how often the feed is re-fetched while an update is
	// flagged. Zero re-fetches on every call.
	FlaggedRecheck time.Duration
}

// ShouldFetch reports whether the feed must be consulted now.
func (p Policy) ShouldFetch(c Cookies, now time.Time) bool {
	switch Classify(c) {
	case NeverChecked:
		return true
	case UpdateFlagged:
		if p.FlaggedRecheck <= 0 {
			return true
		}
		last, ok := c.LastChecked()
		if !ok {
			return true
		}
		return now.Sub(last) >= p.FlaggedRecheck
	default:
		return false
	}
}

// Outcome is the effect of a fetched feed on the state.
type Outcome struct {
	HasUpdate bool
	Ignored   bool   // latest release is silenced, nothing changes
	SetFlag   string // tag to store in has_update
	ClearFlag bool   // delete has_update
}

// Evaluate applies the latest feed tag to the snapshot.
func Evaluate(c Cookies, latestTag, current string) Outcome {
	if c.HasIgnore && AtLeast(c.Ignore, latestTag) {
		return Outcome{Ignored: true}
	}
	if Newer(latestTag, current) {
		return Outcome{HasUpdate: true, SetFlag: latestTag}
	}
	if c.HasFlagged {
		return Outcome{ClearFlag: true}
	}
	return Outcome{}
}

// Canonical prefixes a bare version with "v" as golang.org/x/mod/semver expects.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// Newer reports a > b. Invalid versions are never newer and nothing is newer than them.
func Newer(a, b string) bool {
	a, b = Canonical(a), Canonical(b)
	if !semver.IsValid(a) || !semver.IsValid(b) {
		return false
	}
	return semver.Compare(a, b) > 0
}

// AtLeast reports a >= b. False when either version is invalid.
func AtLeast(a, b string) bool {
	a, b = Canonical(a), Canonical(b)
	if !semver.IsValid(a) || !semver.IsValid(b) {
		return false
	}
	return semver.Compare(a, b) >= 0
}
