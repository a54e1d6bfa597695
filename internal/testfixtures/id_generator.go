package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator produces deterministic identifiers for tests, such as the
// names of staging files.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
	before  func(n uint64)
}

// NewIDGenerator constructs a generator that yields identifiers with the given
// prefix. When prefix is empty, "id" is used.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// BeforeNext registers fn to run each time an identifier is requested, with
// the 1-based number of that request. Tests use it to interleave a competing
// writer with the code under test.
func (g *IDGenerator) BeforeNext(fn func(n uint64)) *IDGenerator {
	g.mu.Lock()
	g.before = fn
	g.mu.Unlock()
	return g
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	g.counter++
	n, prefix, before := g.counter, g.prefix, g.before
	g.mu.Unlock()

	if before != nil {
		before(n)
	}
	return fmt.Sprintf("%s-%d", prefix, n)
}

// NextFunc exposes Next as a function suitable for dependency injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Count reports how many identifiers were handed out.
func (g *IDGenerator) Count() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}
