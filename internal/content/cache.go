package content

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/inful/mdfp"
)

// CachingConverter memoizes conversions by content fingerprint. Rebuilds still
// write every output file; only the text conversion is skipped for unchanged input.
type CachingConverter struct {
	inner Converter
	cache *lru.Cache[string, string]
}

// NewCachingConverter wraps inner with an LRU of the given size. A size below 1
// returns inner unchanged.
func NewCachingConverter(inner Converter, size int) (Converter, error) {
	if size < 1 {
		return inner, nil
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachingConverter{inner: inner, cache: cache}, nil
}

func (c *CachingConverter) Convert(source string) string {
	key := mdfp.CalculateFingerprintFromParts("", source)
	if body, ok := c.cache.Get(key); ok {
		return body
	}
	body := c.inner.Convert(source)
	c.cache.Add(key, body)
	return body
}

// Len reports the number of cached conversions.
func (c *CachingConverter) Len() int { return c.cache.Len() }
