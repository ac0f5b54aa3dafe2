package cache

import (
	"strconv"
	"time"

	"github.com/OneOfOne/xxhash"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a cache key from its parts. Parts are separated by a NUL so
// ("ab","c") and ("a","bc") hash differently.
func Key(parts ...string) string {
	h := xxhash.NewS64(0)
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return "corroborate:v1:" + strconv.FormatUint(h.Sum64(), 16)
}
