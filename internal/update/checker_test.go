package update

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"lastautoindex/internal/platform/release"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// memStore is a Store over a map with a controllable clock.
type memStore struct {
	now     func() time.Time
	values  map[string]string
	expires map[string]time.Time
	ttls    map[string]time.Duration
	writes  []string
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{now: now, values: map[string]string{}, expires: map[string]time.Time{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Exists(name string) bool {
	if _, ok := m.values[name]; !ok {
		return false
	}
	if exp, ok := m.expires[name]; ok && !m.now().Before(exp) {
		return false
	}
	return true
}

func (m *memStore) Get(name string) string {
	if !m.Exists(name) {
		return ""
	}
	return m.values[name]
}

func (m *memStore) Set(name, value string, ttl time.Duration) error {
	m.writes = append(m.writes, "set:"+name)
	m.values[name] = value
	m.ttls[name] = ttl
	delete(m.expires, name)
	if ttl > 0 {
		m.expires[name] = m.now().Add(ttl)
	}
	return nil
}

func (m *memStore) Delete(name string) error {
	m.writes = append(m.writes, "delete:"+name)
	delete(m.values, name)
	delete(m.expires, name)
	return nil
}

type fakeSource struct {
	releases []release.Release
	err      error
	calls    int
}

func (f *fakeSource) Releases(ctx context.Context, repo release.Repo) ([]release.Release, error) {
	f.calls++
	return f.releases, f.err
}

type fixture struct {
	now     time.Time
	store   *memStore
	source  *fakeSource
	checker *Checker
	reg     *prometheus.Registry
}

func newFixture(current string, releases ...string) *fixture {
	f := &fixture{now: time.Unix(1_700_000_000, 0)}
	clock := func() time.Time { return f.now }
	f.store = newMemStore(clock)
	f.source = &fakeSource{}
	for _, tag := range releases {
		f.source.releases = append(f.source.releases, release.Release{Tag: tag})
	}
	f.reg = prometheus.NewRegistry()
	f.checker = &Checker{
		Store:   f.store,
		Source:  f.source,
		Repo:    release.Repo{Owner: "project-cleverweb", Name: "LastAutoIndex"},
		Version: current,
		Now:     clock,
		Metrics: NewMetrics(f.reg),
	}
	return f
}

func (f *fixture) outcome(name string) float64 {
	return testutil.ToFloat64(f.checker.Metrics.checks.WithLabelValues(name))
}

func TestRunReportsNewerRelease(t *testing.T) {
	f := newFixture("1.1.0", "2.0.0", "1.9.0")

	res := f.checker.Run(context.Background(), "")

	require.True(t, res.HasUpdate)
	require.NotNil(t, res.Update)
	assert.Equal(t, "2.0.0", res.Update.Tag)
	require.Len(t, res.OldReleases, 1)
	assert.Equal(t, "1.9.0", res.OldReleases[0].Tag)

	assert.True(t, f.store.Exists(FlagCookie))
	assert.Equal(t, "2.0.0", f.store.Get(FlagCookie))
	assert.Equal(t, Week, f.store.ttls[FlagCookie])
	assert.Equal(t, strconv.FormatInt(f.now.Unix(), 10), f.store.Get(CheckCookie))
	assert.Equal(t, Week, f.store.ttls[CheckCookie])
	assert.Equal(t, 1.0, f.outcome(OutcomeUpdate))
}

func TestRunThrottlesWithinWindow(t *testing.T) {
	f := newFixture("1.1.0", "1.1.0")

	first := f.checker.Run(context.Background(), "")
	assert.False(t, first.HasUpdate)
	f.now = f.now.Add(24 * time.Hour)
	second := f.checker.Run(context.Background(), "")

	assert.False(t, second.HasUpdate)
	assert.Equal(t, RecentlyChecked, second.Phase)
	assert.Equal(t, 1, f.source.calls, "second call inside the window must not hit the feed")
	assert.Equal(t, 1.0, f.outcome(OutcomeSkipped))

	// window expires after a week
	f.now = f.now.Add(Week)
	f.checker.Run(context.Background(), "")
	assert.Equal(t, 2, f.source.calls)
}

func TestRunHonorsIgnoreCookie(t *testing.T) {
	f := newFixture("1.1.0", "2.0.0", "1.9.0")
	require.NoError(t, f.store.Set(IgnoreCookie, "2.0.0", 0))
	f.store.writes = nil

	res := f.checker.Run(context.Background(), "")

	assert.False(t, res.HasUpdate)
	assert.Nil(t, res.Update)
	assert.Equal(t, []string{"set:" + CheckCookie}, f.store.writes, "only the throttle refresh may be written")
	assert.False(t, f.store.Exists(FlagCookie))
	assert.Equal(t, 1.0, f.outcome(OutcomeIgnored))
}

func TestRunIgnoreParameterUpserts(t *testing.T) {
	f := newFixture("1.1.0", "2.0.0")
	require.NoError(t, f.store.Set(IgnoreCookie, "1.5.0", 0))

	res := f.checker.Run(context.Background(), "2.0.0")

	assert.False(t, res.HasUpdate)
	assert.Equal(t, "2.0.0", f.store.Get(IgnoreCookie))
	assert.Equal(t, time.Duration(0), f.store.ttls[IgnoreCookie], "ignore uses the store default ttl")
}

func TestRunClearsStaleFlag(t *testing.T) {
	f := newFixture("1.1.0", "1.1.0")
	require.NoError(t, f.store.Set(CheckCookie, strconv.FormatInt(f.now.Add(-time.Hour).Unix(), 10), Week))
	require.NoError(t, f.store.Set(FlagCookie, "1.1.0", Week))

	res := f.checker.Run(context.Background(), "")

	assert.False(t, res.HasUpdate)
	assert.False(t, f.store.Exists(FlagCookie))
	assert.Equal(t, 1, f.source.calls, "a flagged update is re-checked inside the window")
}

func TestRunFlaggedBackoffUsesCachedTag(t *testing.T) {
	f := newFixture("1.1.0", "2.0.0")
	f.checker.Policy.FlaggedRecheck = 10 * time.Minute

	first := f.checker.Run(context.Background(), "")
	require.True(t, first.HasUpdate)

	f.now = f.now.Add(time.Minute)
	second := f.checker.Run(context.Background(), "")
	assert.Equal(t, 1, f.source.calls)
	assert.Equal(t, UpdateFlagged, second.Phase)
	require.True(t, second.HasUpdate)
	assert.Equal(t, "2.0.0", second.Update.Tag)

	f.now = f.now.Add(10 * time.Minute)
	f.checker.Run(context.Background(), "")
	assert.Equal(t, 2, f.source.calls)
}

func TestRunFeedFailureDegrades(t *testing.T) {
	f := newFixture("1.1.0")
	f.source.err = errors.New("connection refused")
	require.NoError(t, f.store.Set(FlagCookie, "2.0.0", Week))

	res := f.checker.Run(context.Background(), "")

	assert.False(t, res.HasUpdate)
	assert.True(t, f.store.Exists(CheckCookie), "throttle is set before the fetch")
	assert.True(t, f.store.Exists(FlagCookie), "a failed fetch says nothing about the flag")
	assert.Equal(t, 1.0, f.outcome(OutcomeError))
}

func TestRunEmptyFeed(t *testing.T) {
	f := newFixture("1.1.0")

	res := f.checker.Run(context.Background(), "")

	assert.False(t, res.HasUpdate)
	assert.Equal(t, 1.0, f.outcome(OutcomeEmpty))
}

func TestRunWithoutMetrics(t *testing.T) {
	f := newFixture("1.1.0", "1.2.0")
	f.checker.Metrics = nil
	assert.True(t, f.checker.Run(context.Background(), "").HasUpdate)
}

func TestRunSharedSourceUnderRateLimit(t *testing.T) {
	feedCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feedCalls++
		w.Write([]byte(`[{"tag_name": "2.0.0"}, {"tag_name": "1.9.0"}]`))
	}))
	defer srv.Close()

	source := release.NewGitHubReleaseSource(srv.URL, "")
	source.Limiter = rate.NewLimiter(rate.Every(time.Hour), 5)

	// every visitor brings an empty cookie jar, the limiter is shared
	for i := 1; i <= 8; i++ {
		f := newFixture("1.1.0")
		f.checker.Source = source

		res := f.checker.Run(context.Background(), "")

		require.Truef(t, res.HasUpdate, "visitor %d", i)
		assert.Equalf(t, "2.0.0", res.Update.Tag, "visitor %d", i)
		assert.Lenf(t, res.OldReleases, 1, "visitor %d", i)
		assert.Equalf(t, "2.0.0", f.store.Get(FlagCookie), "visitor %d", i)
	}
	assert.Equal(t, 5, feedCalls)
}
