package query

import (
	"context"

	"github.com/quadmatch/quadmatch/internal/model"
	"github.com/quadmatch/quadmatch/internal/storage"
)

// Service provides read-only projections over players and matches. It
// enforces no invariants and returns empty results rather than errors when
// nothing matches.
type Service struct {
	storage storage.Storage
}

// New creates a new query Service
func New(storage storage.Storage) *Service {
	return &Service{storage: storage}
}

// Matches returns all matches with their member sets
func (s *Service) Matches(ctx context.Context) ([]*model.Match, error) {
	return s.storage.ListMatches(ctx)
}

// OpenMatches returns all matches currently accepting joins
func (s *Service) OpenMatches(ctx context.Context) ([]*model.Match, error) {
	return s.storage.ListMatchesByStatus(ctx, model.MatchStatusOpen)
}

// Match returns a single match by ID
func (s *Service) Match(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return s.storage.GetMatch(ctx, id)
}

// HistoryForPlayer returns the finished matches the player was a member of
func (s *Service) HistoryForPlayer(ctx context.Context, id model.PlayerID) ([]*model.Match, error) {
	return s.storage.ListFinishedMatchesForPlayer(ctx, id)
}

// Players returns all players
func (s *Service) Players(ctx context.Context) ([]*model.Player, error) {
	return s.storage.ListPlayers(ctx)
}

// Player returns a single player by ID
func (s *Service) Player(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, id)
}
