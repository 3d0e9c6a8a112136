package mocks

import (
	"fmt"
	"sync"

	"github.com/quadmatch/quadmatch/internal/dependencies/ident"
)

// MockGenerator is a mock implementation of ident.Generator for testing.
// Safe for concurrent use so tests can exercise parallel callers.
type MockGenerator struct {
	mu sync.Mutex

	// IDResults is a queue of results to return from NewID
	IDResults []string
	idIndex   int
	fallback  int
}

// Ensure MockGenerator implements Generator
var _ ident.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a new MockGenerator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// NewID returns the next queued result, or a deterministic "id-N" value
// once the queue is exhausted
func (g *MockGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idIndex < len(g.IDResults) {
		result := g.IDResults[g.idIndex]
		g.idIndex++
		return result
	}
	g.fallback++
	return fmt.Sprintf("id-%d", g.fallback)
}

// QueueID adds values to the NewID result queue
func (g *MockGenerator) QueueID(values ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.IDResults = append(g.IDResults, values...)
}

// Reset clears all queued results
func (g *MockGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.IDResults = nil
	g.idIndex = 0
	g.fallback = 0
}
