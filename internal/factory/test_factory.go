package factory

import (
	"time"

	"github.com/quadmatch/quadmatch/internal/dependencies/mocks"
	"github.com/quadmatch/quadmatch/internal/storage/memory"
	"github.com/quadmatch/quadmatch/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIdent *mocks.MockGenerator
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIdent := mocks.NewMockGenerator()

	app := NewWithDependencies(store, mockClock, mockIdent, testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockIdent: mockIdent,
	}
}
