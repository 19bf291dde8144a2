package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
)

// segmentCache keeps well-formed segmentation results in memory for a TTL.
type segmentCache struct {
	c *cache.Cache
}

func newSegmentCache(ttl time.Duration) *segmentCache {
	return &segmentCache{c: cache.New(ttl, 2*ttl)}
}

// TextHash computes the SHA-256 cache key of already trimmed text.
func TextHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func (s *segmentCache) get(text string) ([]string, bool) {
	v, ok := s.c.Get(TextHash(text))
	if !ok {
		return nil, false
	}
	segments, ok := v.([]string)
	if !ok {
		return nil, false
	}
	return append([]string{}, segments...), true
}

func (s *segmentCache) set(text string, segments []string) {
	s.c.Set(TextHash(text), append([]string{}, segments...), cache.DefaultExpiration)
}
