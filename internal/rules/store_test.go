package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state", "rules.json"), nil)
}

func TestSaveAndGetGeneratedRule(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveGeneratedRule("  Example.COM  ", domain.AdaptiveRule{
		ContainerRegexes: []string{`<article>(.*?)</article>`},
		Confidence:       0.8,
		Model:            "gemini-2.5-flash",
	})
	require.NoError(t, err)

	rule, err := store.GeneratedRule("example.com")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "example.com", rule.Host)
	assert.Equal(t, []string{`<article>(.*?)</article>`}, rule.ContainerRegexes)
	assert.Greater(t, rule.GeneratedAt, 0.0)

	missing, err := store.GeneratedRule("other.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEmptyHostIsNoOp(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveGeneratedRule("   ", domain.AdaptiveRule{}))
	require.NoError(t, store.RecordReplaySample("", domain.ReplaySample{Payload: "x"}))

	rule, err := store.GeneratedRule("")
	require.NoError(t, err)
	assert.Nil(t, rule)

	// nothing was persisted, so the file may not even exist yet
	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestPromotedAdapterLookup(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SavePromotedAdapter("example.com", domain.PromotedAdapter{
		Name:         "llm-promoted:example.com",
		HostSuffixes: []string{"example.com"},
	}))

	exact, err := store.PromotedAdapterForHost("example.com")
	require.NoError(t, err)
	require.NotNil(t, exact)
	assert.Equal(t, "llm-promoted:example.com", exact.Name)
	assert.Equal(t, "example.com", exact.Host)
	assert.Greater(t, exact.PromotedAt, 0.0)

	sub, err := store.PromotedAdapterForHost("blog.example.com")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "llm-promoted:example.com", sub.Name)

	// a host merely containing the key is not a match
	none, err := store.PromotedAdapterForHost("notexample.com")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestReplaySamplesBoundAndTruncation(t *testing.T) {
	store := newTestStore(t)

	big := strings.Repeat("x", ReplayMaxPayloadChars+500)
	require.NoError(t, store.RecordReplaySample("example.com", domain.ReplaySample{
		URL:     "https://example.com/big",
		Payload: big,
	}))

	for i := 0; i < ReplayMaxSamplesPerHost+5; i++ {
		require.NoError(t, store.RecordReplaySample("example.com", domain.ReplaySample{
			URL:     fmt.Sprintf("https://example.com/p/%d", i),
			Payload: "<html>sample</html>",
		}))
	}

	all, err := store.ReplaySamples("example.com", 0)
	require.NoError(t, err)
	require.Len(t, all, ReplayMaxSamplesPerHost)
	// the oversized first sample was evicted by newer ones
	assert.Equal(t, "https://example.com/p/5", all[0].URL)
	assert.Equal(t, fmt.Sprintf("https://example.com/p/%d", ReplayMaxSamplesPerHost+4), all[len(all)-1].URL)

	tail, err := store.ReplaySamples("example.com", 3)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Equal(t, all[len(all)-3:], tail)
}

func TestReplayPayloadTruncated(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordReplaySample("example.com", domain.ReplaySample{
		URL:     "https://example.com/big",
		Payload: strings.Repeat("y", ReplayMaxPayloadChars+1),
	}))

	samples, err := store.ReplaySamples("example.com", 1)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Len(t, samples[0].Payload, ReplayMaxPayloadChars)
	assert.Greater(t, samples[0].CapturedAt, 0.0)
}

func TestCorruptStateFileReinitializes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewStore(path, nil)
	rule, err := store.GeneratedRule("example.com")
	require.NoError(t, err)
	assert.Nil(t, rule)

	require.NoError(t, store.SaveGeneratedRule("example.com", domain.AdaptiveRule{
		ContainerRegexes: []string{"<p>(.*?)</p>"},
	}))
	restored, err := store.GeneratedRule("example.com")
	require.NoError(t, err)
	require.NotNil(t, restored)
}

func TestConcurrentWritersLoseNoUpdates(t *testing.T) {
	store := newTestStore(t)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.SaveGeneratedRule(fmt.Sprintf("host-%d.example.com", i), domain.AdaptiveRule{
				ContainerRegexes: []string{"<main>(.*?)</main>"},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		rule, err := store.GeneratedRule(fmt.Sprintf("host-%d.example.com", i))
		require.NoError(t, err)
		require.NotNil(t, rule, "rule for writer %d missing", i)
	}
}

func TestStoreClockOverride(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0)
	store := NewStore(filepath.Join(t.TempDir(), "rules.json"), nil, WithClock(func() time.Time { return fixed }))

	require.NoError(t, store.SaveGeneratedRule("example.com", domain.AdaptiveRule{
		ContainerRegexes: []string{"<p>(.*?)</p>"},
	}))
	rule, err := store.GeneratedRule("example.com")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.InDelta(t, 1_700_000_000.0, rule.GeneratedAt, 0.001)
}
