package memory

import (
	"context"
	"sync"

	"github.com/quadmatch/quadmatch/internal/model"
	"github.com/quadmatch/quadmatch/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
//
// Matches are persisted as a record plus a member ID list; the member set is
// hydrated from the player table on every read. All reads return copies so
// callers can mutate results freely before saving them back.
type Storage struct {
	mu sync.RWMutex

	players    map[model.PlayerID]*model.Player
	emailIndex map[string]model.PlayerID
	matches    map[model.MatchID]*matchRecord
}

// matchRecord is the persisted form of a match: the member set is stored as
// IDs, mirroring the player-side back-reference as a separate fact.
type matchRecord struct {
	match   model.Match
	members []model.PlayerID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:    make(map[model.PlayerID]*model.Player),
		emailIndex: make(map[string]model.PlayerID),
		matches:    make(map[model.MatchID]*matchRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPlayerLocked(id)
}

func (s *Storage) GetPlayerByEmail(ctx context.Context, email string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPlayerByEmailLocked(email)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]*model.Player, 0, len(s.players))
	for id := range s.players {
		p, _ := s.getPlayerLocked(id)
		players = append(players, p)
	}
	return players, nil
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savePlayerLocked(player)
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletePlayerLocked(id)
}

// Match operations

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getMatchLocked(id)
}

func (s *Storage) ListMatches(ctx context.Context) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listMatchesLocked()
}

func (s *Storage) ListMatchesByStatus(ctx context.Context, status model.MatchStatus) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*model.Match, 0)
	for id, rec := range s.matches {
		if rec.match.Status != status {
			continue
		}
		m, _ := s.getMatchLocked(id)
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *Storage) ListFinishedMatchesForPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*model.Match, 0)
	for id, rec := range s.matches {
		if rec.match.Status != model.MatchStatusFinished {
			continue
		}
		if !containsID(rec.members, playerID) {
			continue
		}
		m, _ := s.getMatchLocked(id)
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *Storage) SaveMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveMatchLocked(match)
}

func (s *Storage) DeleteMatch(ctx context.Context, id model.MatchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
	return nil
}

// Txn runs fn under the store's write lock, making the whole unit atomic
// with respect to every other operation regardless of scope.
func (s *Storage) Txn(ctx context.Context, scope storage.TxnScope, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txView{s: s})
}

// Unlocked internals shared by the public methods and transactions

func (s *Storage) getPlayerLocked(id model.PlayerID) (*model.Player, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *p
	if p.CurrentMatch != nil {
		ref := *p.CurrentMatch
		cp.CurrentMatch = &ref
	}
	return &cp, nil
}

func (s *Storage) getPlayerByEmailLocked(email string) (*model.Player, error) {
	id, ok := s.emailIndex[email]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.getPlayerLocked(id)
}

func (s *Storage) savePlayerLocked(player *model.Player) error {
	if existing, ok := s.players[player.ID]; ok && existing.Email != player.Email {
		delete(s.emailIndex, existing.Email)
	}
	cp := *player
	if player.CurrentMatch != nil {
		ref := *player.CurrentMatch
		cp.CurrentMatch = &ref
	}
	s.players[player.ID] = &cp
	s.emailIndex[player.Email] = player.ID
	return nil
}

func (s *Storage) deletePlayerLocked(id model.PlayerID) error {
	if existing, ok := s.players[id]; ok {
		delete(s.emailIndex, existing.Email)
	}
	delete(s.players, id)
	return nil
}

func (s *Storage) getMatchLocked(id model.MatchID) (*model.Match, error) {
	rec, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}

	m := rec.match
	if m.StartedAt != nil {
		t := *rec.match.StartedAt
		m.StartedAt = &t
	}
	if m.EndedAt != nil {
		t := *rec.match.EndedAt
		m.EndedAt = &t
	}
	m.Scores = make(map[model.PlayerID]int, len(rec.match.Scores))
	for pid, score := range rec.match.Scores {
		m.Scores[pid] = score
	}

	// Hydrate the member set; players deleted out from under the record are
	// skipped rather than surfaced as an error.
	m.Players = make([]model.Player, 0, len(rec.members))
	for _, pid := range rec.members {
		p, err := s.getPlayerLocked(pid)
		if err != nil {
			continue
		}
		m.Players = append(m.Players, *p)
	}

	return &m, nil
}

func (s *Storage) listMatchesLocked() ([]*model.Match, error) {
	matches := make([]*model.Match, 0, len(s.matches))
	for id := range s.matches {
		m, _ := s.getMatchLocked(id)
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *Storage) saveMatchLocked(match *model.Match) error {
	rec := &matchRecord{
		match:   *match,
		members: match.PlayerIDs(),
	}
	rec.match.Players = nil
	if match.StartedAt != nil {
		t := *match.StartedAt
		rec.match.StartedAt = &t
	}
	if match.EndedAt != nil {
		t := *match.EndedAt
		rec.match.EndedAt = &t
	}
	rec.match.Scores = make(map[model.PlayerID]int, len(match.Scores))
	for pid, score := range match.Scores {
		rec.match.Scores[pid] = score
	}
	s.matches[match.ID] = rec
	return nil
}

func containsID(ids []model.PlayerID, id model.PlayerID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// txView exposes the unlocked internals while the transaction holds the
// store lock. Writes apply immediately.
type txView struct {
	s *Storage
}

var _ storage.Tx = (*txView)(nil)

func (t *txView) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return t.s.getPlayerLocked(id)
}

func (t *txView) GetPlayerByEmail(ctx context.Context, email string) (*model.Player, error) {
	return t.s.getPlayerByEmailLocked(email)
}

func (t *txView) SavePlayer(ctx context.Context, player *model.Player) error {
	return t.s.savePlayerLocked(player)
}

func (t *txView) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return t.s.deletePlayerLocked(id)
}

func (t *txView) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return t.s.getMatchLocked(id)
}

func (t *txView) ListMatches(ctx context.Context) ([]*model.Match, error) {
	return t.s.listMatchesLocked()
}

func (t *txView) SaveMatch(ctx context.Context, match *model.Match) error {
	return t.s.saveMatchLocked(match)
}

func (t *txView) DeleteMatch(ctx context.Context, id model.MatchID) error {
	delete(t.s.matches, id)
	return nil
}
