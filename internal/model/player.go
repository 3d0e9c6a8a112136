package model

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player represents a registered participant.
//
// CurrentMatch is the back-reference to the single match the player
// currently occupies, or nil when they are in none. It is only ever
// mutated together with the match's member set, inside one storage
// transaction.
type Player struct {
	ID           PlayerID
	Name         string
	Nickname     string
	Email        string // globally unique contact address
	CurrentMatch *MatchID
}

// InMatch reports whether the player currently occupies the given match
func (p *Player) InMatch(id MatchID) bool {
	return p.CurrentMatch != nil && *p.CurrentMatch == id
}
