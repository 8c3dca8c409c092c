package rules

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

func freshRule(host string, generatedAt time.Time) domain.AdaptiveRule {
	return domain.AdaptiveRule{
		Host:             host,
		ContainerRegexes: []string{"<article>(.*?)</article>"},
		Confidence:       0.7,
		GeneratedAt:      float64(generatedAt.UnixNano()) / float64(time.Second),
	}
}

func TestCachePutGet(t *testing.T) {
	cache := NewCache(10, time.Hour)
	cache.Put(freshRule("Example.COM", time.Now()))

	got := cache.Get("example.com")
	assert.NotNil(t, got)
	assert.Equal(t, "example.com", got.Host)

	assert.Nil(t, cache.Get("other.com"))
	assert.Nil(t, cache.Get(""))
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := NewCache(10, time.Hour)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Put(freshRule("example.com", now))
	assert.NotNil(t, cache.Get("example.com"))

	now = now.Add(2 * time.Hour)
	assert.Nil(t, cache.Get("example.com"))
	assert.Equal(t, 0, cache.Len())
}

func TestCacheEvictsOldestWhenFull(t *testing.T) {
	cache := NewCache(3, time.Hour)
	base := time.Now()
	for i := 0; i < 4; i++ {
		cache.Put(freshRule(fmt.Sprintf("host-%d.com", i), base.Add(time.Duration(i)*time.Minute)))
	}

	assert.Equal(t, 3, cache.Len())
	assert.Nil(t, cache.Get("host-0.com"))
	assert.NotNil(t, cache.Get("host-3.com"))
}

func TestCacheUpdateRefreshesEntry(t *testing.T) {
	cache := NewCache(10, time.Hour)
	cache.Put(freshRule("example.com", time.Now().Add(-time.Minute)))
	updated := freshRule("example.com", time.Now())
	updated.Confidence = 0.95
	cache.Put(updated)

	got := cache.Get("example.com")
	assert.NotNil(t, got)
	assert.Equal(t, 0.95, got.Confidence)
	assert.Equal(t, 1, cache.Len())
}
