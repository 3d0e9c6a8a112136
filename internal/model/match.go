package model

import "time"

// MatchID uniquely identifies a match
type MatchID string

// MatchStatus represents the lifecycle state of a match
type MatchStatus string

const (
	MatchStatusOpen       MatchStatus = "open"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"

	// MatchStatusWaiting is a legal persisted status for compatibility with
	// older data, but no creation path or transition produces it.
	MatchStatusWaiting MatchStatus = "waiting"
)

// MaxMatchPlayers is the member cap enforced while a match accepts joins
const MaxMatchPlayers = 4

// ValidStatus reports whether s is one of the declared match statuses
func ValidStatus(s MatchStatus) bool {
	switch s {
	case MatchStatusOpen, MatchStatusInProgress, MatchStatusFinished, MatchStatusWaiting:
		return true
	}
	return false
}

// Match represents a multiplayer match and its member set.
//
// Players is hydrated eagerly on reads. Scores keys are drawn from the
// global player ID space; they are not required to be members.
type Match struct {
	ID        MatchID
	Name      string
	Status    MatchStatus
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	Players   []Player
	Scores    map[PlayerID]int
}

// HasPlayer reports whether the player is in the member set
func (m *Match) HasPlayer(id PlayerID) bool {
	for i := range m.Players {
		if m.Players[i].ID == id {
			return true
		}
	}
	return false
}

// PlayerIDs returns the IDs of the member set
func (m *Match) PlayerIDs() []PlayerID {
	ids := make([]PlayerID, len(m.Players))
	for i := range m.Players {
		ids[i] = m.Players[i].ID
	}
	return ids
}

// AddPlayer appends a player to the member set
func (m *Match) AddPlayer(p Player) {
	m.Players = append(m.Players, p)
}

// RemovePlayer removes the player from the member set, reporting whether
// they were a member
func (m *Match) RemovePlayer(id PlayerID) bool {
	for i := range m.Players {
		if m.Players[i].ID == id {
			m.Players = append(m.Players[:i], m.Players[i+1:]...)
			return true
		}
	}
	return false
}
