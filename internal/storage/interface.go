package storage

import (
	"context"
	"errors"

	"github.com/quadmatch/quadmatch/internal/model"
)

// ErrTxnConflict is returned by Txn when the entities in scope kept changing
// underneath an optimistic transaction and the retry budget ran out.
var ErrTxnConflict = errors.New("transaction conflict")

// TxnScope names the entities a transaction reads and writes. Backends use
// it to serialize conflicting transactions.
type TxnScope struct {
	Matches []model.MatchID
	Players []model.PlayerID
	// Emails covers the email-uniqueness claims the transaction checks
	// before writing a player
	Emails []string
	// AllMatches covers the whole match set (bulk deletion)
	AllMatches bool
}

// Tx is the view of storage available inside a transaction. Writes may be
// deferred until the transaction commits, so a Tx must not read an entity
// it has already written.
type Tx interface {
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	GetPlayerByEmail(ctx context.Context, email string) (*model.Player, error)
	SavePlayer(ctx context.Context, player *model.Player) error
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	ListMatches(ctx context.Context) ([]*model.Match, error)
	SaveMatch(ctx context.Context, match *model.Match) error
	DeleteMatch(ctx context.Context, id model.MatchID) error
}

// Storage defines the interface for data persistence.
//
// Match reads return matches with their member sets hydrated. List reads
// return empty slices, never errors, when nothing is stored.
type Storage interface {
	// Player reads
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	GetPlayerByEmail(ctx context.Context, email string) (*model.Player, error)
	ListPlayers(ctx context.Context) ([]*model.Player, error)

	// Player writes
	SavePlayer(ctx context.Context, player *model.Player) error
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Match reads
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	ListMatches(ctx context.Context) ([]*model.Match, error)
	ListMatchesByStatus(ctx context.Context, status model.MatchStatus) ([]*model.Match, error)
	ListFinishedMatchesForPlayer(ctx context.Context, id model.PlayerID) ([]*model.Match, error)

	// Match writes
	SaveMatch(ctx context.Context, match *model.Match) error
	DeleteMatch(ctx context.Context, id model.MatchID) error

	// Txn runs fn as one atomic unit. Two concurrent transactions whose
	// scopes overlap never interleave; a transaction that keeps losing to
	// concurrent writers fails with ErrTxnConflict.
	Txn(ctx context.Context, scope TxnScope, fn func(tx Tx) error) error
}
