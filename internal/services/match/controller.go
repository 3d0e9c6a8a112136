package match

import (
	"context"
	"errors"
	"log/slog"

	"github.com/quadmatch/quadmatch/internal/dependencies/clock"
	"github.com/quadmatch/quadmatch/internal/dependencies/ident"
	"github.com/quadmatch/quadmatch/internal/model"
	"github.com/quadmatch/quadmatch/internal/storage"
)

// maxScopeAttempts bounds retries when the entities a deletion must cover
// keep moving between the scoping read and the transaction
const maxScopeAttempts = 3

// errScopeMoved signals that the member set changed between the scoping read
// and the transaction body
var errScopeMoved = errors.New("match members changed")

// Controller enforces the match membership and lifecycle state machine.
//
// Every mutation runs as one storage transaction covering the match and the
// players it touches, so the member cap and the one-match-per-player
// invariant hold under concurrent calls.
type Controller struct {
	storage storage.Storage
	clock   clock.Clock
	ident   ident.Generator
	logger  *slog.Logger
}

// NewController creates a new match Controller
func NewController(storage storage.Storage, clock clock.Clock, ident ident.Generator, logger *slog.Logger) *Controller {
	return &Controller{
		storage: storage,
		clock:   clock,
		ident:   ident,
		logger:  logger,
	}
}

// Create stores a new match. The initial status is always Open; the creation
// path accepts only a name, so callers cannot smuggle in another status.
func (c *Controller) Create(ctx context.Context, name string) (*model.Match, error) {
	if name == "" {
		return nil, model.ErrNameRequired
	}

	match := &model.Match{
		ID:        model.MatchID(c.ident.NewID()),
		Name:      name,
		Status:    model.MatchStatusOpen,
		CreatedAt: c.clock.Now().UTC(),
		Players:   []model.Player{},
		Scores:    map[model.PlayerID]int{},
	}

	if err := c.storage.SaveMatch(ctx, match); err != nil {
		return nil, err
	}

	c.logger.Info("match created",
		slog.String("match_id", string(match.ID)),
		slog.String("name", match.Name),
	)
	return match, nil
}

// Update replaces a match's name, status, timestamps and score map
// wholesale. The member set and creation timestamp are not mutated by this
// path.
func (c *Controller) Update(ctx context.Context, match *model.Match) error {
	if !model.ValidStatus(match.Status) {
		return model.ErrInvalidStatus
	}

	scope := storage.TxnScope{Matches: []model.MatchID{match.ID}}
	return c.storage.Txn(ctx, scope, func(tx storage.Tx) error {
		existing, err := tx.GetMatch(ctx, match.ID)
		if err != nil {
			return err
		}

		existing.Name = match.Name
		existing.Status = match.Status
		existing.StartedAt = match.StartedAt
		existing.EndedAt = match.EndedAt
		existing.Scores = match.Scores
		if existing.Scores == nil {
			existing.Scores = map[model.PlayerID]int{}
		}

		return tx.SaveMatch(ctx, existing)
	})
}

// Delete removes a match, clearing the current-match reference of every
// member in the same atomic unit. Members themselves are never deleted.
func (c *Controller) Delete(ctx context.Context, id model.MatchID) error {
	for attempt := 0; attempt < maxScopeAttempts; attempt++ {
		// The member set determines which players the transaction must
		// cover, so read it first and re-verify inside.
		match, err := c.storage.GetMatch(ctx, id)
		if err != nil {
			return err
		}
		members := match.PlayerIDs()

		scope := storage.TxnScope{
			Matches: []model.MatchID{id},
			Players: members,
		}

		err = c.storage.Txn(ctx, scope, func(tx storage.Tx) error {
			current, err := tx.GetMatch(ctx, id)
			if err != nil {
				return err
			}
			if !sameMembers(members, current.PlayerIDs()) {
				return errScopeMoved
			}

			if err := c.detachMembers(ctx, tx, current); err != nil {
				return err
			}
			return tx.DeleteMatch(ctx, id)
		})

		if errors.Is(err, errScopeMoved) || errors.Is(err, storage.ErrTxnConflict) {
			continue
		}
		if err == nil {
			c.logger.Info("match deleted", slog.String("match_id", string(id)))
		}
		return err
	}
	return storage.ErrTxnConflict
}

// DeleteAll removes every match and clears every member's current-match
// reference. Deleting an already-empty match set succeeds.
func (c *Controller) DeleteAll(ctx context.Context) error {
	for attempt := 0; attempt < maxScopeAttempts; attempt++ {
		matches, err := c.storage.ListMatches(ctx)
		if err != nil {
			return err
		}

		scope := storage.TxnScope{AllMatches: true}
		for _, m := range matches {
			scope.Matches = append(scope.Matches, m.ID)
			scope.Players = append(scope.Players, m.PlayerIDs()...)
		}

		err = c.storage.Txn(ctx, scope, func(tx storage.Tx) error {
			current, err := tx.ListMatches(ctx)
			if err != nil {
				return err
			}
			// New matches created since the scoping read are outside the
			// watch set; start over so nothing is left behind.
			if len(current) != len(matches) {
				return errScopeMoved
			}

			for _, m := range current {
				if err := c.detachMembers(ctx, tx, m); err != nil {
					return err
				}
				if err := tx.DeleteMatch(ctx, m.ID); err != nil {
					return err
				}
			}
			return nil
		})

		if errors.Is(err, errScopeMoved) || errors.Is(err, storage.ErrTxnConflict) {
			continue
		}
		if err == nil {
			c.logger.Info("all matches deleted", slog.Int("count", len(matches)))
		}
		return err
	}
	return storage.ErrTxnConflict
}

// Join adds a player to a match's member set and points the player's
// current-match reference at it, atomically.
func (c *Controller) Join(ctx context.Context, matchID model.MatchID, playerID model.PlayerID) error {
	scope := storage.TxnScope{
		Matches: []model.MatchID{matchID},
		Players: []model.PlayerID{playerID},
	}

	err := c.storage.Txn(ctx, scope, func(tx storage.Tx) error {
		match, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		player, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}

		if player.CurrentMatch != nil && *player.CurrentMatch != matchID {
			return model.ErrPlayerInAnotherMatch
		}
		if match.HasPlayer(playerID) {
			return model.ErrPlayerAlreadyJoined
		}
		if match.Status != model.MatchStatusOpen {
			return model.ErrMatchNotOpen
		}
		if len(match.Players) >= model.MaxMatchPlayers {
			return model.ErrMatchFull
		}

		match.AddPlayer(*player)
		ref := matchID
		player.CurrentMatch = &ref

		if err := tx.SaveMatch(ctx, match); err != nil {
			return err
		}
		return tx.SavePlayer(ctx, player)
	})
	if err != nil {
		return err
	}

	c.logger.Info("player joined match",
		slog.String("match_id", string(matchID)),
		slog.String("player_id", string(playerID)),
	)
	return nil
}

// Leave removes a player from a match's member set and clears the player's
// current-match reference, atomically. Finished matches cannot be left.
func (c *Controller) Leave(ctx context.Context, matchID model.MatchID, playerID model.PlayerID) error {
	scope := storage.TxnScope{
		Matches: []model.MatchID{matchID},
		Players: []model.PlayerID{playerID},
	}

	err := c.storage.Txn(ctx, scope, func(tx storage.Tx) error {
		match, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}

		if !match.HasPlayer(playerID) {
			return model.ErrPlayerNotInMatch
		}
		if match.Status == model.MatchStatusFinished {
			return model.ErrMatchFinished
		}

		match.RemovePlayer(playerID)
		if err := tx.SaveMatch(ctx, match); err != nil {
			return err
		}

		player, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			// Membership without a player record is already inconsistent;
			// removing the membership is the best repair.
			if errors.Is(err, model.ErrPlayerNotFound) {
				return nil
			}
			return err
		}
		if player.InMatch(matchID) {
			player.CurrentMatch = nil
			return tx.SavePlayer(ctx, player)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("player left match",
		slog.String("match_id", string(matchID)),
		slog.String("player_id", string(playerID)),
	)
	return nil
}

// Start transitions an Open match with at least one member to InProgress and
// stamps the start time.
func (c *Controller) Start(ctx context.Context, matchID model.MatchID) error {
	scope := storage.TxnScope{Matches: []model.MatchID{matchID}}

	err := c.storage.Txn(ctx, scope, func(tx storage.Tx) error {
		match, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}

		if match.Status != model.MatchStatusOpen {
			return model.ErrMatchNotOpen
		}
		if len(match.Players) < 1 {
			return model.ErrMatchEmpty
		}

		now := c.clock.Now().UTC()
		match.Status = model.MatchStatusInProgress
		match.StartedAt = &now

		return tx.SaveMatch(ctx, match)
	})
	if err != nil {
		return err
	}

	c.logger.Info("match started", slog.String("match_id", string(matchID)))
	return nil
}

// Finish transitions a match to Finished, stamps the end time and replaces
// the score map wholesale with the supplied one (empty when nil).
//
// There is no status precondition: a match in any state, a never-started one
// included, can be finished, and finishing again replaces the scores rather
// than merging them. Score keys are not checked against the member set.
func (c *Controller) Finish(ctx context.Context, matchID model.MatchID, scores map[model.PlayerID]int) error {
	scope := storage.TxnScope{Matches: []model.MatchID{matchID}}

	err := c.storage.Txn(ctx, scope, func(tx storage.Tx) error {
		match, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}

		now := c.clock.Now().UTC()
		match.Status = model.MatchStatusFinished
		match.EndedAt = &now
		if scores == nil {
			scores = map[model.PlayerID]int{}
		}
		match.Scores = scores

		return tx.SaveMatch(ctx, match)
	})
	if err != nil {
		return err
	}

	c.logger.Info("match finished",
		slog.String("match_id", string(matchID)),
		slog.Int("scores", len(scores)),
	)
	return nil
}

// Get retrieves a match by ID with its member set
func (c *Controller) Get(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return c.storage.GetMatch(ctx, id)
}

// detachMembers clears the current-match reference of every member still
// pointing at the match
func (c *Controller) detachMembers(ctx context.Context, tx storage.Tx, match *model.Match) error {
	for _, pid := range match.PlayerIDs() {
		player, err := tx.GetPlayer(ctx, pid)
		if err != nil {
			if errors.Is(err, model.ErrPlayerNotFound) {
				continue
			}
			return err
		}
		if !player.InMatch(match.ID) {
			continue
		}
		player.CurrentMatch = nil
		if err := tx.SavePlayer(ctx, player); err != nil {
			return err
		}
	}
	return nil
}

func sameMembers(a, b []model.PlayerID) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[model.PlayerID]struct{}, len(a))
	for _, id := range a {
		seen[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}
