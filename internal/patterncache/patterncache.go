// Package patterncache keeps a bounded set of compiled regular expressions
// shared by concurrent compilations.
package patterncache

import (
	"regexp"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the capacity of the shared cache.
const DefaultSize = 50

type entry struct {
	expr string
	re   *regexp.Regexp
}

// Cache is a least-recently-used cache of compiled expressions keyed by the
// hash of the expression text. It is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[uint64, entry]
}

// New creates a cache holding at most size expressions.
func New(size int) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[uint64, entry](size)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Cache{entries: entries}
}

var shared = New(DefaultSize)

// Shared returns the process wide cache.
func Shared() *Cache {
	return shared
}

// Compile returns the compiled form of expr, compiling and caching it on a miss.
func (c *Cache) Compile(expr string) (*regexp.Regexp, error) {
	key := xxhash.Sum64String(expr)
	if e, ok := c.entries.Get(key); ok && e.expr == expr {
		return e.re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, entry{expr: expr, re: re})
	return re, nil
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Contains reports whether expr is cached, without touching its recency.
func (c *Cache) Contains(expr string) bool {
	e, ok := c.entries.Peek(xxhash.Sum64String(expr))
	return ok && e.expr == expr
}
