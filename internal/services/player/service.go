package player

import (
	"context"
	"errors"
	"log/slog"

	"github.com/quadmatch/quadmatch/internal/dependencies/ident"
	"github.com/quadmatch/quadmatch/internal/model"
	"github.com/quadmatch/quadmatch/internal/storage"
)

// maxDeleteAttempts bounds retries when a player's membership moves while a
// deletion is in flight
const maxDeleteAttempts = 3

// errMembershipMoved signals that the player's current match changed between
// the scoping read and the transaction body
var errMembershipMoved = errors.New("player membership changed")

// Service manages player registration and profile lifecycle
type Service struct {
	storage storage.Storage
	ident   ident.Generator
	logger  *slog.Logger
}

// New creates a new player Service
func New(storage storage.Storage, ident ident.Generator, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		ident:   ident,
		logger:  logger,
	}
}

// Register creates a new player. The email address must not belong to any
// existing player; the check and the write are one atomic unit so two
// concurrent registrations cannot both claim the same address.
func (s *Service) Register(ctx context.Context, name, nickname, email string) (*model.Player, error) {
	if err := validateProfile(name, nickname, email); err != nil {
		return nil, err
	}

	player := &model.Player{
		ID:           model.PlayerID(s.ident.NewID()),
		Name:         name,
		Nickname:     nickname,
		Email:        email,
		CurrentMatch: nil,
	}

	scope := storage.TxnScope{
		Players: []model.PlayerID{player.ID},
		Emails:  []string{email},
	}
	err := s.storage.Txn(ctx, scope, func(tx storage.Tx) error {
		if _, err := tx.GetPlayerByEmail(ctx, email); err == nil {
			return model.ErrEmailInUse
		} else if !errors.Is(err, model.ErrPlayerNotFound) {
			return err
		}
		return tx.SavePlayer(ctx, player)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("player registered", slog.String("player_id", string(player.ID)))
	return player, nil
}

// Update overwrites a player's name, nickname and email. The identifier and
// current-match reference are never touched by this path. The new email must
// not belong to another player.
func (s *Service) Update(ctx context.Context, id model.PlayerID, name, nickname, email string) error {
	if err := validateProfile(name, nickname, email); err != nil {
		return err
	}

	scope := storage.TxnScope{
		Players: []model.PlayerID{id},
		Emails:  []string{email},
	}
	return s.storage.Txn(ctx, scope, func(tx storage.Tx) error {
		existing, err := tx.GetPlayer(ctx, id)
		if err != nil {
			return err
		}

		if other, err := tx.GetPlayerByEmail(ctx, email); err == nil {
			if other.ID != id {
				return model.ErrEmailInUse
			}
		} else if !errors.Is(err, model.ErrPlayerNotFound) {
			return err
		}

		existing.Name = name
		existing.Nickname = nickname
		existing.Email = email

		return tx.SavePlayer(ctx, existing)
	})
}

// Delete removes a player. If the player occupies a match, the membership is
// removed from that match in the same atomic unit; the match itself is never
// deleted.
func (s *Service) Delete(ctx context.Context, id model.PlayerID) error {
	for attempt := 0; attempt < maxDeleteAttempts; attempt++ {
		// The occupied match determines the transaction scope, so read it
		// first and re-verify inside the transaction.
		player, err := s.storage.GetPlayer(ctx, id)
		if err != nil {
			return err
		}

		scope := storage.TxnScope{Players: []model.PlayerID{id}}
		if player.CurrentMatch != nil {
			scope.Matches = []model.MatchID{*player.CurrentMatch}
		}

		err = s.storage.Txn(ctx, scope, func(tx storage.Tx) error {
			current, err := tx.GetPlayer(ctx, id)
			if err != nil {
				return err
			}
			if !sameMatchRef(current.CurrentMatch, player.CurrentMatch) {
				return errMembershipMoved
			}

			if current.CurrentMatch != nil {
				match, err := tx.GetMatch(ctx, *current.CurrentMatch)
				if err == nil {
					if match.RemovePlayer(id) {
						if err := tx.SaveMatch(ctx, match); err != nil {
							return err
						}
					}
				} else if !errors.Is(err, model.ErrMatchNotFound) {
					return err
				}
			}

			return tx.DeletePlayer(ctx, id)
		})

		if errors.Is(err, errMembershipMoved) || errors.Is(err, storage.ErrTxnConflict) {
			continue
		}
		if err == nil {
			s.logger.Info("player deleted", slog.String("player_id", string(id)))
		}
		return err
	}
	return storage.ErrTxnConflict
}

// Get retrieves a player by ID
func (s *Service) Get(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, id)
}

// GetByEmail retrieves a player by email address
func (s *Service) GetByEmail(ctx context.Context, email string) (*model.Player, error) {
	return s.storage.GetPlayerByEmail(ctx, email)
}

// List retrieves all players
func (s *Service) List(ctx context.Context) ([]*model.Player, error) {
	return s.storage.ListPlayers(ctx)
}

func validateProfile(name, nickname, email string) error {
	if name == "" {
		return model.ErrNameRequired
	}
	if nickname == "" {
		return model.ErrNicknameRequired
	}
	if email == "" {
		return model.ErrEmailRequired
	}
	return nil
}

func sameMatchRef(a, b *model.MatchID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
