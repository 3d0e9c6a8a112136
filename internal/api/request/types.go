package request

import "time"

// CreatePlayerRequest is the request body for registering a player
type CreatePlayerRequest struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

// UpdatePlayerRequest is the request body for updating a player. The ID must
// match the one in the URL.
type UpdatePlayerRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

// CreateMatchRequest is the request body for creating a match
type CreateMatchRequest struct {
	Name string `json:"name"`
}

// UpdateMatchRequest is the request body for replacing a match's mutable
// fields. The ID must match the one in the URL; the member set is not
// updatable through this path.
type UpdateMatchRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	StartedAt *time.Time     `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at"`
	Scores    map[string]int `json:"scores"`
}

// FinishMatchRequest is the request body for finishing a match: the score
// map itself, keyed by player ID. An empty or absent body means no scores.
type FinishMatchRequest map[string]int
