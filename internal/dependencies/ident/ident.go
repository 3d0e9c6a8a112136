package ident

import "github.com/google/uuid"

// Generator produces entity identifiers and can be mocked for testing
type Generator interface {
	// NewID returns a new globally unique identifier
	NewID() string
}

// UUIDGenerator implements Generator using random UUIDs
type UUIDGenerator struct{}

// New creates a new UUIDGenerator
func New() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID returns a new random UUID string
func (g *UUIDGenerator) NewID() string {
	return uuid.NewString()
}
