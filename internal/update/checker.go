package update

import (
	"context"
	"strconv"
	"time"

	"lastautoindex/internal/platform/release"

	"github.com/Data-Corruption/stdx/xlog"
)

const DefaultTimeout = 10 * time.Second

// Result is what the rendering layer gets to see.
type Result struct {
	Phase       Phase
	HasUpdate   bool
	Update      *release.Release
	OldReleases []release.Release
}

// Checker runs one throttled update check against a Store.
type Checker struct {
	Store   Store
	Source  release.ReleaseSource
	Repo    release.Repo
	Version string // running version
	Policy  Policy
	Timeout time.Duration // feed fetch bound, DefaultTimeout when zero

	Now     func() time.Time // time.Now when nil
	Log     *xlog.Logger     // optional
	Metrics *Metrics         // optional
}

// Run performs the check. ignore, when not empty, silences that release first.
// Failures never propagate: a check that can't complete reports no update.
func (c *Checker) Run(ctx context.Context, ignore string) Result {
	if ignore != "" {
		if err := c.Store.Set(IgnoreCookie, ignore, 0); err != nil {
			c.warnf("failed to store %s: %v", IgnoreCookie, err)
		}
	}

	cookies := ReadCookies(c.Store)
	now := c.now()
	res := Result{Phase: Classify(cookies)}

	if !c.Policy.ShouldFetch(cookies, now) {
		c.Metrics.observe(OutcomeSkipped)
		if res.Phase == UpdateFlagged {
			c.fromFlag(cookies, &res)
		}
		return res
	}

	// refresh the throttle window before fetching, a flaky feed must not cause retries
	if err := c.Store.Set(CheckCookie, strconv.FormatInt(now.Unix(), 10), Week); err != nil {
		c.warnf("failed to store %s: %v", CheckCookie, err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	releases, err := c.Source.Releases(fetchCtx, c.Repo)
	c.Metrics.observeFetch(time.Since(start))
	if err != nil {
		c.warnf("update check failed: %v", err)
		c.Metrics.observe(OutcomeError)
		return res
	}
	if len(releases) == 0 {
		c.debugf("release feed for %s is empty", c.Repo)
		c.Metrics.observe(OutcomeEmpty)
		return res
	}

	latest := releases[0]
	out := Evaluate(cookies, latest.Tag, c.Version)
	c.debugf("Latest version: %s, Current version: %s, Update available: %t, Ignored: %t",
		latest.Tag, c.Version, out.HasUpdate, out.Ignored)

	switch {
	case out.Ignored:
		c.Metrics.observe(OutcomeIgnored)
	case out.HasUpdate:
		if err := c.Store.Set(FlagCookie, out.SetFlag, Week); err != nil {
			c.warnf("failed to store %s: %v", FlagCookie, err)
		}
		res.HasUpdate = true
		res.Update = &latest
		res.OldReleases = releases[1:]
		c.Metrics.observe(OutcomeUpdate)
	default:
		if out.ClearFlag {
			if err := c.Store.Delete(FlagCookie); err != nil {
				c.warnf("failed to delete %s: %v", FlagCookie, err)
			}
		}
		c.Metrics.observe(OutcomeCurrent)
	}
	return res
}

// fromFlag reports the flagged release without a fetch.
func (c *Checker) fromFlag(cookies Cookies, res *Result) {
	if cookies.HasIgnore && AtLeast(cookies.Ignore, cookies.Flagged) {
		return
	}
	if Newer(cookies.Flagged, c.Version) {
		res.HasUpdate = true
		res.Update = &release.Release{Tag: cookies.Flagged}
	}
}

func (c *Checker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Checker) warnf(format string, args ...any) {
	if c.Log != nil {
		c.Log.Warnf(format, args...)
	}
}

func (c *Checker) debugf(format string, args ...any) {
	if c.Log != nil {
		c.Log.Debugf(format, args...)
	}
}
