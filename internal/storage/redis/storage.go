package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quadmatch/quadmatch/internal/model"
	"github.com/quadmatch/quadmatch/internal/storage"
)

// maxTxnAttempts bounds optimistic transaction retries under contention
const maxTxnAttempts = 5

// Storage is a Redis-backed implementation of the storage interface.
//
// Records are stored as JSON values. The match record holds the member set
// as player IDs; the player record holds the current-match back-reference.
// Transactions use WATCH over the scope's keys with all writes queued into
// a single MULTI/EXEC pipeline.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Persisted record forms

type playerRecord struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Nickname     string  `json:"nickname"`
	Email        string  `json:"email"`
	CurrentMatch *string `json:"current_match,omitempty"`
}

type matchRecord struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	MemberIDs []string       `json:"member_ids"`
	Scores    map[string]int `json:"scores"`
}

func playerToRecord(p *model.Player) playerRecord {
	rec := playerRecord{
		ID:       string(p.ID),
		Name:     p.Name,
		Nickname: p.Nickname,
		Email:    p.Email,
	}
	if p.CurrentMatch != nil {
		ref := string(*p.CurrentMatch)
		rec.CurrentMatch = &ref
	}
	return rec
}

func playerFromRecord(rec playerRecord) *model.Player {
	p := &model.Player{
		ID:       model.PlayerID(rec.ID),
		Name:     rec.Name,
		Nickname: rec.Nickname,
		Email:    rec.Email,
	}
	if rec.CurrentMatch != nil {
		ref := model.MatchID(*rec.CurrentMatch)
		p.CurrentMatch = &ref
	}
	return p
}

func matchToRecord(m *model.Match) matchRecord {
	rec := matchRecord{
		ID:        string(m.ID),
		Name:      m.Name,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
		MemberIDs: make([]string, 0, len(m.Players)),
		Scores:    make(map[string]int, len(m.Scores)),
	}
	for i := range m.Players {
		rec.MemberIDs = append(rec.MemberIDs, string(m.Players[i].ID))
	}
	for pid, score := range m.Scores {
		rec.Scores[string(pid)] = score
	}
	return rec
}

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.getPlayer(ctx, s.client, id)
}

func (s *Storage) GetPlayerByEmail(ctx context.Context, email string) (*model.Player, error) {
	return s.getPlayerByEmail(ctx, s.client, email)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	ids, err := s.client.SMembers(ctx, playersIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Player{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(model.PlayerID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue
		}
		var rec playerRecord
		if err := json.Unmarshal([]byte(val.(string)), &rec); err != nil {
			continue
		}
		players = append(players, playerFromRecord(rec))
	}
	return players, nil
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	oldEmail, err := s.currentEmail(ctx, s.client, player.ID)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	if err := queuePlayerWrite(ctx, pipe, player, oldEmail); err != nil {
		return err
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	email, err := s.currentEmail(ctx, s.client, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	queuePlayerDelete(ctx, pipe, id, email)
	_, err = pipe.Exec(ctx)
	return err
}

// Match operations

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return s.getMatch(ctx, s.client, id)
}

func (s *Storage) ListMatches(ctx context.Context) ([]*model.Match, error) {
	return s.listMatches(ctx, s.client)
}

func (s *Storage) ListMatchesByStatus(ctx context.Context, status model.MatchStatus) ([]*model.Match, error) {
	matches, err := s.listMatches(ctx, s.client)
	if err != nil {
		return nil, err
	}
	filtered := make([]*model.Match, 0, len(matches))
	for _, m := range matches {
		if m.Status == status {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func (s *Storage) ListFinishedMatchesForPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Match, error) {
	matches, err := s.listMatches(ctx, s.client)
	if err != nil {
		return nil, err
	}
	filtered := make([]*model.Match, 0)
	for _, m := range matches {
		if m.Status == model.MatchStatusFinished && m.HasPlayer(playerID) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func (s *Storage) SaveMatch(ctx context.Context, match *model.Match) error {
	pipe := s.client.TxPipeline()
	if err := queueMatchWrite(ctx, pipe, match); err != nil {
		return err
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) DeleteMatch(ctx context.Context, id model.MatchID) error {
	pipe := s.client.TxPipeline()
	queueMatchDelete(ctx, pipe, id)
	_, err := pipe.Exec(ctx)
	return err
}

// Txn runs fn under an optimistic WATCH transaction over the scope's keys.
// Reads inside fn go through the watched connection; writes are buffered and
// committed in a single MULTI/EXEC pipeline. Lost races retry up to
// maxTxnAttempts before failing with storage.ErrTxnConflict.
func (s *Storage) Txn(ctx context.Context, scope storage.TxnScope, fn func(tx storage.Tx) error) error {
	keys := watchKeys(scope)

	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			view := &txView{s: s, tx: rtx}
			if err := fn(view); err != nil {
				return err
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, write := range view.writes {
					if err := write(ctx, pipe); err != nil {
						return err
					}
				}
				return nil
			})
			return err
		}, keys...)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return storage.ErrTxnConflict
}

func watchKeys(scope storage.TxnScope) []string {
	keys := make([]string, 0, len(scope.Matches)+len(scope.Players)+len(scope.Emails)+1)
	for _, id := range scope.Matches {
		keys = append(keys, matchKey(id))
	}
	for _, id := range scope.Players {
		keys = append(keys, playerKey(id))
	}
	// WATCH fires on key creation too, so an absent email index entry still
	// guards against a concurrent claim of the same address.
	for _, email := range scope.Emails {
		keys = append(keys, emailIndexKey(email))
	}
	if scope.AllMatches {
		keys = append(keys, matchesIndexKey())
	}
	return keys
}

// Shared read helpers; c is either the pooled client or a WATCH connection

func (s *Storage) getPlayer(ctx context.Context, c redis.Cmdable, id model.PlayerID) (*model.Player, error) {
	data, err := c.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var rec playerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return playerFromRecord(rec), nil
}

func (s *Storage) getPlayerByEmail(ctx context.Context, c redis.Cmdable, email string) (*model.Player, error) {
	playerID, err := c.Get(ctx, emailIndexKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return s.getPlayer(ctx, c, model.PlayerID(playerID))
}

func (s *Storage) currentEmail(ctx context.Context, c redis.Cmdable, id model.PlayerID) (string, error) {
	existing, err := s.getPlayer(ctx, c, id)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return "", nil
		}
		return "", err
	}
	return existing.Email, nil
}

func (s *Storage) getMatch(ctx context.Context, c redis.Cmdable, id model.MatchID) (*model.Match, error) {
	data, err := c.Get(ctx, matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var rec matchRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return s.hydrateMatch(ctx, c, rec)
}

func (s *Storage) listMatches(ctx context.Context, c redis.Cmdable) ([]*model.Match, error) {
	ids, err := c.SMembers(ctx, matchesIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Match{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = matchKey(model.MatchID(id))
	}
	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	matches := make([]*model.Match, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue
		}
		var rec matchRecord
		if err := json.Unmarshal([]byte(val.(string)), &rec); err != nil {
			continue
		}
		m, err := s.hydrateMatch(ctx, c, rec)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// hydrateMatch builds a model.Match from its record, loading the member
// players. Members whose player record has vanished are skipped.
func (s *Storage) hydrateMatch(ctx context.Context, c redis.Cmdable, rec matchRecord) (*model.Match, error) {
	m := &model.Match{
		ID:        model.MatchID(rec.ID),
		Name:      rec.Name,
		Status:    model.MatchStatus(rec.Status),
		CreatedAt: rec.CreatedAt,
		StartedAt: rec.StartedAt,
		EndedAt:   rec.EndedAt,
		Players:   make([]model.Player, 0, len(rec.MemberIDs)),
		Scores:    make(map[model.PlayerID]int, len(rec.Scores)),
	}
	for pid, score := range rec.Scores {
		m.Scores[model.PlayerID(pid)] = score
	}

	if len(rec.MemberIDs) == 0 {
		return m, nil
	}

	keys := make([]string, len(rec.MemberIDs))
	for i, id := range rec.MemberIDs {
		keys[i] = playerKey(model.PlayerID(id))
	}
	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, val := range values {
		if val == nil {
			continue
		}
		var prec playerRecord
		if err := json.Unmarshal([]byte(val.(string)), &prec); err != nil {
			continue
		}
		m.Players = append(m.Players, *playerFromRecord(prec))
	}
	return m, nil
}

// Write helpers shared by the plain and transactional paths

func queuePlayerWrite(ctx context.Context, pipe redis.Pipeliner, player *model.Player, oldEmail string) error {
	data, err := json.Marshal(playerToRecord(player))
	if err != nil {
		return err
	}
	pipe.Set(ctx, playerKey(player.ID), data, 0)
	pipe.SAdd(ctx, playersIndexKey(), string(player.ID))
	if oldEmail != "" && oldEmail != player.Email {
		pipe.Del(ctx, emailIndexKey(oldEmail))
	}
	pipe.Set(ctx, emailIndexKey(player.Email), string(player.ID), 0)
	return nil
}

func queuePlayerDelete(ctx context.Context, pipe redis.Pipeliner, id model.PlayerID, email string) {
	pipe.Del(ctx, playerKey(id))
	pipe.SRem(ctx, playersIndexKey(), string(id))
	if email != "" {
		pipe.Del(ctx, emailIndexKey(email))
	}
}

func queueMatchWrite(ctx context.Context, pipe redis.Pipeliner, match *model.Match) error {
	data, err := json.Marshal(matchToRecord(match))
	if err != nil {
		return err
	}
	pipe.Set(ctx, matchKey(match.ID), data, 0)
	pipe.SAdd(ctx, matchesIndexKey(), string(match.ID))
	return nil
}

func queueMatchDelete(ctx context.Context, pipe redis.Pipeliner, id model.MatchID) {
	pipe.Del(ctx, matchKey(id))
	pipe.SRem(ctx, matchesIndexKey(), string(id))
}

// txView buffers writes until the surrounding WATCH transaction commits.
// Reads that inform a buffered write (the old email on a player save) run
// before any write is queued, so deferred commits stay consistent.
type txView struct {
	s      *Storage
	tx     *redis.Tx
	writes []func(context.Context, redis.Pipeliner) error
}

var _ storage.Tx = (*txView)(nil)

func (t *txView) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return t.s.getPlayer(ctx, t.tx, id)
}

func (t *txView) GetPlayerByEmail(ctx context.Context, email string) (*model.Player, error) {
	return t.s.getPlayerByEmail(ctx, t.tx, email)
}

func (t *txView) SavePlayer(ctx context.Context, player *model.Player) error {
	oldEmail, err := t.s.currentEmail(ctx, t.tx, player.ID)
	if err != nil {
		return err
	}
	p := *player
	t.writes = append(t.writes, func(ctx context.Context, pipe redis.Pipeliner) error {
		return queuePlayerWrite(ctx, pipe, &p, oldEmail)
	})
	return nil
}

func (t *txView) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	email, err := t.s.currentEmail(ctx, t.tx, id)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, func(ctx context.Context, pipe redis.Pipeliner) error {
		queuePlayerDelete(ctx, pipe, id, email)
		return nil
	})
	return nil
}

func (t *txView) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return t.s.getMatch(ctx, t.tx, id)
}

func (t *txView) ListMatches(ctx context.Context) ([]*model.Match, error) {
	return t.s.listMatches(ctx, t.tx)
}

func (t *txView) SaveMatch(ctx context.Context, match *model.Match) error {
	m := *match
	m.Players = append([]model.Player(nil), match.Players...)
	t.writes = append(t.writes, func(ctx context.Context, pipe redis.Pipeliner) error {
		return queueMatchWrite(ctx, pipe, &m)
	})
	return nil
}

func (t *txView) DeleteMatch(ctx context.Context, id model.MatchID) error {
	t.writes = append(t.writes, func(ctx context.Context, pipe redis.Pipeliner) error {
		queueMatchDelete(ctx, pipe, id)
		return nil
	})
	return nil
}
