package redis

import (
	"fmt"

	"github.com/quadmatch/quadmatch/internal/model"
)

// Key prefix for all match coordination data
const keyPrefix = "quadmatch"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// playersIndexKey returns the Redis key for the SET of all player IDs
func playersIndexKey() string {
	return fmt.Sprintf("%s:players", keyPrefix)
}

// emailIndexKey returns the Redis key for the email -> player_id index
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, email)
}

// matchKey returns the Redis key for a Match
func matchKey(id model.MatchID) string {
	return fmt.Sprintf("%s:match:%s", keyPrefix, id)
}

// matchesIndexKey returns the Redis key for the SET of all match IDs
func matchesIndexKey() string {
	return fmt.Sprintf("%s:matches", keyPrefix)
}
