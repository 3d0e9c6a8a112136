package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/quadmatch/quadmatch/internal/model"
	"github.com/quadmatch/quadmatch/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Player tests

func (s *StorageSuite) TestSaveAndGetPlayer() {
	player := &model.Player{
		ID:       "player-1",
		Name:     "Alice Smith",
		Nickname: "alice",
		Email:    "alice@example.com",
	}

	err := s.storage.SavePlayer(s.ctx, player)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(player.ID, retrieved.ID)
	s.Equal(player.Nickname, retrieved.Nickname)
	s.Nil(retrieved.CurrentMatch)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestPlayerCurrentMatchRoundTrips() {
	ref := model.MatchID("match-1")
	player := &model.Player{ID: "player-1", Email: "a@example.com", CurrentMatch: &ref}

	s.Require().NoError(s.storage.SavePlayer(s.ctx, player))

	retrieved, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Require().NotNil(retrieved.CurrentMatch)
	s.Equal(ref, *retrieved.CurrentMatch)
}

func (s *StorageSuite) TestGetPlayerByEmail() {
	player := &model.Player{ID: "player-1", Email: "alice@example.com"}
	_ = s.storage.SavePlayer(s.ctx, player)

	retrieved, err := s.storage.GetPlayerByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), retrieved.ID)
}

func (s *StorageSuite) TestGetPlayerByEmailNotFound() {
	_, err := s.storage.GetPlayerByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestSavePlayerReindexesEmail() {
	player := &model.Player{ID: "player-1", Email: "old@example.com"}
	_ = s.storage.SavePlayer(s.ctx, player)

	player.Email = "new@example.com"
	_ = s.storage.SavePlayer(s.ctx, player)

	_, err := s.storage.GetPlayerByEmail(s.ctx, "old@example.com")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	retrieved, err := s.storage.GetPlayerByEmail(s.ctx, "new@example.com")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), retrieved.ID)
}

func (s *StorageSuite) TestDeletePlayer() {
	player := &model.Player{ID: "player-1", Email: "alice@example.com"}
	_ = s.storage.SavePlayer(s.ctx, player)

	err := s.storage.DeletePlayer(s.ctx, "player-1")
	s.Require().NoError(err)

	_, err = s.storage.GetPlayer(s.ctx, "player-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.storage.GetPlayerByEmail(s.ctx, "alice@example.com")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestListPlayers() {
	_ = s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", Email: "p1@example.com"})
	_ = s.storage.SavePlayer(s.ctx, &model.Player{ID: "p2", Email: "p2@example.com"})

	players, err := s.storage.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Len(players, 2)
}

func (s *StorageSuite) TestListPlayersEmpty() {
	players, err := s.storage.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *StorageSuite) TestPlayerRecordIsDurable() {
	_ = s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", Email: "p1@example.com"})

	ttl := s.mini.TTL(playerKey("p1"))
	s.Equal(time.Duration(0), ttl, "Player records should not expire")
}

// Match tests

func (s *StorageSuite) TestSaveAndGetMatch() {
	match := &model.Match{
		ID:        "match-1",
		Name:      "Arena1",
		Status:    model.MatchStatusOpen,
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Scores:    map[model.PlayerID]int{},
	}

	err := s.storage.SaveMatch(s.ctx, match)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetMatch(s.ctx, "match-1")
	s.Require().NoError(err)
	s.Equal(match.ID, retrieved.ID)
	s.Equal(match.Status, retrieved.Status)
	s.Equal(match.CreatedAt, retrieved.CreatedAt)
}

func (s *StorageSuite) TestGetMatchNotFound() {
	_, err := s.storage.GetMatch(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StorageSuite) TestMatchScoresRoundTrip() {
	match := &model.Match{
		ID:     "match-1",
		Status: model.MatchStatusFinished,
		Scores: map[model.PlayerID]int{"p1": 10, "p2": 20},
	}
	_ = s.storage.SaveMatch(s.ctx, match)

	retrieved, err := s.storage.GetMatch(s.ctx, "match-1")
	s.Require().NoError(err)
	s.Equal(match.Scores, retrieved.Scores)
}

func (s *StorageSuite) TestGetMatchHydratesMembers() {
	alice := &model.Player{ID: "p1", Nickname: "alice", Email: "p1@example.com"}
	_ = s.storage.SavePlayer(s.ctx, alice)

	_ = s.storage.SaveMatch(s.ctx, &model.Match{
		ID:      "match-1",
		Status:  model.MatchStatusOpen,
		Players: []model.Player{*alice},
	})

	retrieved, err := s.storage.GetMatch(s.ctx, "match-1")
	s.Require().NoError(err)
	s.Require().Len(retrieved.Players, 1)
	s.Equal("alice", retrieved.Players[0].Nickname)
}

func (s *StorageSuite) TestGetMatchSkipsDeletedMembers() {
	alice := &model.Player{ID: "p1", Email: "p1@example.com"}
	_ = s.storage.SavePlayer(s.ctx, alice)
	_ = s.storage.SaveMatch(s.ctx, &model.Match{
		ID:      "match-1",
		Status:  model.MatchStatusOpen,
		Players: []model.Player{*alice},
	})

	_ = s.storage.DeletePlayer(s.ctx, "p1")

	retrieved, err := s.storage.GetMatch(s.ctx, "match-1")
	s.Require().NoError(err)
	s.Empty(retrieved.Players)
}

func (s *StorageSuite) TestDeleteMatch() {
	_ = s.storage.SaveMatch(s.ctx, &model.Match{ID: "match-1", Status: model.MatchStatusOpen})

	err := s.storage.DeleteMatch(s.ctx, "match-1")
	s.Require().NoError(err)

	_, err = s.storage.GetMatch(s.ctx, "match-1")
	s.ErrorIs(err, model.ErrMatchNotFound)

	matches, err := s.storage.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.Empty(matches)
}

func (s *StorageSuite) TestListMatchesEmpty() {
	matches, err := s.storage.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.Empty(matches)
}

func (s *StorageSuite) TestListMatchesByStatus() {
	_ = s.storage.SaveMatch(s.ctx, &model.Match{ID: "m1", Status: model.MatchStatusOpen})
	_ = s.storage.SaveMatch(s.ctx, &model.Match{ID: "m2", Status: model.MatchStatusFinished})
	_ = s.storage.SaveMatch(s.ctx, &model.Match{ID: "m3", Status: model.MatchStatusOpen})

	open, err := s.storage.ListMatchesByStatus(s.ctx, model.MatchStatusOpen)
	s.Require().NoError(err)
	s.Len(open, 2)
}

func (s *StorageSuite) TestListFinishedMatchesForPlayer() {
	alice := &model.Player{ID: "p1", Email: "p1@example.com"}
	_ = s.storage.SavePlayer(s.ctx, alice)

	_ = s.storage.SaveMatch(s.ctx, &model.Match{
		ID: "m1", Status: model.MatchStatusFinished, Players: []model.Player{*alice},
	})
	_ = s.storage.SaveMatch(s.ctx, &model.Match{
		ID: "m2", Status: model.MatchStatusOpen, Players: []model.Player{*alice},
	})
	_ = s.storage.SaveMatch(s.ctx, &model.Match{
		ID: "m3", Status: model.MatchStatusFinished,
	})

	history, err := s.storage.ListFinishedMatchesForPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(model.MatchID("m1"), history[0].ID)
}

// Txn tests

func (s *StorageSuite) TestTxnCommitsBufferedWrites() {
	ref := model.MatchID("m1")
	scope := storage.TxnScope{
		Matches: []model.MatchID{"m1"},
		Players: []model.PlayerID{"p1"},
	}

	err := s.storage.Txn(s.ctx, scope, func(tx storage.Tx) error {
		if err := tx.SaveMatch(s.ctx, &model.Match{ID: "m1", Status: model.MatchStatusOpen}); err != nil {
			return err
		}
		return tx.SavePlayer(s.ctx, &model.Player{ID: "p1", Email: "p1@example.com", CurrentMatch: &ref})
	})
	s.Require().NoError(err)

	m, err := s.storage.GetMatch(s.ctx, "m1")
	s.Require().NoError(err)
	s.Equal(model.MatchStatusOpen, m.Status)

	p, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Require().NotNil(p.CurrentMatch)
	s.Equal(ref, *p.CurrentMatch)
}

func (s *StorageSuite) TestTxnDiscardsWritesOnError() {
	scope := storage.TxnScope{Players: []model.PlayerID{"p1"}}

	err := s.storage.Txn(s.ctx, scope, func(tx storage.Tx) error {
		if err := tx.SavePlayer(s.ctx, &model.Player{ID: "p1", Email: "p1@example.com"}); err != nil {
			return err
		}
		return model.ErrPlayerNotFound
	})
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.storage.GetPlayer(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestTxnReadsCurrentState() {
	_ = s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", Nickname: "alice", Email: "p1@example.com"})

	scope := storage.TxnScope{Players: []model.PlayerID{"p1"}}
	err := s.storage.Txn(s.ctx, scope, func(tx storage.Tx) error {
		p, err := tx.GetPlayer(s.ctx, "p1")
		if err != nil {
			return err
		}
		p.Nickname = "updated"
		return tx.SavePlayer(s.ctx, p)
	})
	s.Require().NoError(err)

	p, _ := s.storage.GetPlayer(s.ctx, "p1")
	s.Equal("updated", p.Nickname)
}

func (s *StorageSuite) TestTxnReadsEmailIndex() {
	_ = s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", Email: "p1@example.com"})

	scope := storage.TxnScope{Emails: []string{"p1@example.com"}}
	err := s.storage.Txn(s.ctx, scope, func(tx storage.Tx) error {
		p, err := tx.GetPlayerByEmail(s.ctx, "p1@example.com")
		if err != nil {
			return err
		}
		s.Equal(model.PlayerID("p1"), p.ID)

		_, err = tx.GetPlayerByEmail(s.ctx, "nobody@example.com")
		s.ErrorIs(err, model.ErrPlayerNotFound)
		return nil
	})
	s.Require().NoError(err)
}

func (s *StorageSuite) TestTxnEmailClaimIsGuarded() {
	// A write to a watched email index key between the read and the commit
	// must abort the optimistic transaction rather than double-claim the
	// address.
	scope := storage.TxnScope{
		Players: []model.PlayerID{"p1"},
		Emails:  []string{"dup@example.com"},
	}

	first := true
	err := s.storage.Txn(s.ctx, scope, func(tx storage.Tx) error {
		if _, err := tx.GetPlayerByEmail(s.ctx, "dup@example.com"); err == nil {
			return model.ErrEmailInUse
		} else if !errors.Is(err, model.ErrPlayerNotFound) {
			return err
		}

		if first {
			first = false
			// A competing writer claims the address mid-transaction
			s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{ID: "p2", Email: "dup@example.com"}))
		}

		return tx.SavePlayer(s.ctx, &model.Player{ID: "p1", Email: "dup@example.com"})
	})
	s.ErrorIs(err, model.ErrEmailInUse)

	winner, err := s.storage.GetPlayerByEmail(s.ctx, "dup@example.com")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p2"), winner.ID)
}

func (s *StorageSuite) TestTxnDeletesEntities() {
	_ = s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", Email: "p1@example.com"})
	_ = s.storage.SaveMatch(s.ctx, &model.Match{ID: "m1", Status: model.MatchStatusOpen})

	scope := storage.TxnScope{
		Matches: []model.MatchID{"m1"},
		Players: []model.PlayerID{"p1"},
	}
	err := s.storage.Txn(s.ctx, scope, func(tx storage.Tx) error {
		if err := tx.DeleteMatch(s.ctx, "m1"); err != nil {
			return err
		}
		return tx.DeletePlayer(s.ctx, "p1")
	})
	s.Require().NoError(err)

	_, err = s.storage.GetMatch(s.ctx, "m1")
	s.ErrorIs(err, model.ErrMatchNotFound)
	_, err = s.storage.GetPlayer(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.storage.GetPlayerByEmail(s.ctx, "p1@example.com")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}
