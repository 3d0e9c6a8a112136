package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case []Player:
		o.printPlayers(v)
	case Match:
		o.printMatch(v)
	case []Match:
		o.printMatches(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Nickname     string  `json:"nickname"`
	Email        string  `json:"email"`
	CurrentMatch *string `json:"current_match"`
}

// Match response type
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

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printPlayer(p Player) {
	fmt.Printf("Player: %s (%s)\n", p.Nickname, p.ID)
	fmt.Printf("Name: %s\n", p.Name)
	fmt.Printf("Email: %s\n", p.Email)
	if p.CurrentMatch != nil {
		fmt.Printf("Current Match: %s\n", *p.CurrentMatch)
	}
}

func (o *Output) printPlayers(players []Player) {
	fmt.Printf("Players (%d):\n", len(players))
	for _, p := range players {
		inMatch := ""
		if p.CurrentMatch != nil {
			inMatch = fmt.Sprintf(" [in match %s]", *p.CurrentMatch)
		}
		fmt.Printf("  - %s (%s) <%s>%s\n", p.Nickname, p.ID, p.Email, inMatch)
	}
}

func (o *Output) printMatch(m Match) {
	fmt.Printf("Match: %s (%s)\n", m.Name, m.ID)
	fmt.Printf("Status: %s\n", m.Status)
	fmt.Printf("Created: %s\n", m.CreatedAt.Format(time.RFC3339))
	if m.StartedAt != nil {
		fmt.Printf("Started: %s\n", m.StartedAt.Format(time.RFC3339))
	}
	if m.EndedAt != nil {
		fmt.Printf("Ended: %s\n", m.EndedAt.Format(time.RFC3339))
	}

	fmt.Printf("Players (%d):\n", len(m.Players))
	for _, p := range m.Players {
		fmt.Printf("  - %s (%s)\n", p.Nickname, p.ID)
	}

	if len(m.Scores) > 0 {
		ids := make([]string, 0, len(m.Scores))
		for id := range m.Scores {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Println("Scores:")
		for _, id := range ids {
			fmt.Printf("  %s: %d\n", id, m.Scores[id])
		}
	}
}

func (o *Output) printMatches(matches []Match) {
	fmt.Printf("Matches (%d):\n", len(matches))
	for _, m := range matches {
		fmt.Printf("  - %s (%s) - %s, %d players\n", m.Name, m.ID, m.Status, len(m.Players))
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
