package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/quadmatch/quadmatch/internal/dependencies/clock"
	"github.com/quadmatch/quadmatch/internal/dependencies/ident"
	"github.com/quadmatch/quadmatch/internal/services/match"
	"github.com/quadmatch/quadmatch/internal/services/player"
	"github.com/quadmatch/quadmatch/internal/services/query"
	"github.com/quadmatch/quadmatch/internal/storage"
	"github.com/quadmatch/quadmatch/internal/storage/memory"
	redisstorage "github.com/quadmatch/quadmatch/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock
	Ident ident.Generator

	// Services
	PlayerService   *player.Service
	MatchController *match.Controller
	QueryService    *query.Service
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	idGen := ident.New()

	return NewWithDependencies(store, clk, idGen, logger), nil
}

// NewWithDependencies creates an App with the given dependencies (useful for testing)
func NewWithDependencies(store storage.Storage, clk clock.Clock, idGen ident.Generator, logger *slog.Logger) *App {
	playerService := player.New(store, idGen, logger)
	matchController := match.NewController(store, clk, idGen, logger)
	queryService := query.New(store)

	return &App{
		Storage:         store,
		Clock:           clk,
		Ident:           idGen,
		PlayerService:   playerService,
		MatchController: matchController,
		QueryService:    queryService,
	}
}
