package response

import (
	"time"

	"github.com/quadmatch/quadmatch/internal/model"
)

// Player represents a player in API responses
type Player struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Nickname     string  `json:"nickname"`
	Email        string  `json:"email"`
	CurrentMatch *string `json:"current_match"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	resp := Player{
		ID:       string(p.ID),
		Name:     p.Name,
		Nickname: p.Nickname,
		Email:    p.Email,
	}
	if p.CurrentMatch != nil {
		ref := string(*p.CurrentMatch)
		resp.CurrentMatch = &ref
	}
	return resp
}

// PlayersFromModel converts a slice of model players
func PlayersFromModel(players []*model.Player) []Player {
	resp := make([]Player, len(players))
	for i, p := range players {
		resp[i] = PlayerFromModel(p)
	}
	return resp
}

// Match represents a match in API responses
type Match struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	StartedAt *time.Time     `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at"`
	Players   []Player       `json:"players"`
	Scores    map[string]int `json:"scores"`
}

// MatchFromModel converts a model.Match to a response Match
func MatchFromModel(m *model.Match) Match {
	players := make([]Player, len(m.Players))
	for i := range m.Players {
		players[i] = PlayerFromModel(&m.Players[i])
	}

	scores := make(map[string]int, len(m.Scores))
	for pid, score := range m.Scores {
		scores[string(pid)] = score
	}

	return Match{
		ID:        string(m.ID),
		Name:      m.Name,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
		Players:   players,
		Scores:    scores,
	}
}

// MatchesFromModel converts a slice of model matches
func MatchesFromModel(matches []*model.Match) []Match {
	resp := make([]Match, len(matches))
	for i, m := range matches {
		resp[i] = MatchFromModel(m)
	}
	return resp
}
