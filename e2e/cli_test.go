package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadmatch/quadmatch/internal/api"
	"github.com/quadmatch/quadmatch/internal/factory"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(projectRoot, "bin", "quadmatch-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/quadmatch")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	server   *http.Server
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	// Create application
	app, err := factory.New(factory.Config{})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		PlayerService:   app.PlayerService,
		MatchController: app.MatchController,
		QueryService:    app.QueryService,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		server: server,
		addr:   serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type playerResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Nickname     string  `json:"nickname"`
	Email        string  `json:"email"`
	CurrentMatch *string `json:"current_match"`
}

type matchResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	StartedAt *time.Time       `json:"started_at"`
	EndedAt   *time.Time       `json:"ended_at"`
	Players   []playerResponse `json:"players"`
	Scores    map[string]int   `json:"scores"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Helpers

func registerPlayer(t *testing.T, cli *cliRunner, name, nickname, email string) playerResponse {
	t.Helper()

	output, err := cli.run("player", "register", "--name", name, "--nickname", nickname, "--email", email)
	require.NoError(t, err, "output: %s", output)

	var resp playerResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	return resp
}

func createMatch(t *testing.T, cli *cliRunner, name string) matchResponse {
	t.Helper()

	output, err := cli.run("match", "create", "--name", name)
	require.NoError(t, err, "output: %s", output)

	var resp matchResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	return resp
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_PlayerCommands(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Register a player
	alice := registerPlayer(t, cli, "Alice Smith", "alice", "alice@example.com")
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, "Alice Smith", alice.Name)
	assert.Equal(t, "alice", alice.Nickname)
	assert.Nil(t, alice.CurrentMatch)

	// Get the player back
	output, err := cli.run("player", "get", alice.ID)
	require.NoError(t, err, "output: %s", output)

	var fetched playerResponse
	require.NoError(t, json.Unmarshal([]byte(output), &fetched))
	assert.Equal(t, alice.ID, fetched.ID)

	// List players
	registerPlayer(t, cli, "Bob Jones", "bob", "bob@example.com")

	output, err = cli.run("player", "list")
	require.NoError(t, err, "output: %s", output)

	var players []playerResponse
	require.NoError(t, json.Unmarshal([]byte(output), &players))
	assert.Len(t, players, 2)

	// Update the player
	output, err = cli.run("player", "update", alice.ID,
		"--name", "Alice B Smith", "--nickname", "ab", "--email", "ab@example.com")
	require.NoError(t, err, "output: %s", output)

	var msg messageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &msg))
	assert.Contains(t, msg.Message, "updated")

	output, err = cli.run("player", "get", alice.ID)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &fetched))
	assert.Equal(t, "ab", fetched.Nickname)
	assert.Equal(t, "ab@example.com", fetched.Email)

	// Delete the player
	output, err = cli.run("player", "delete", alice.ID)
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("player", "get", alice.ID)
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "not found")
}

func TestCLI_FullMatchFlow(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	alice := registerPlayer(t, cli, "Alice Smith", "alice", "alice@example.com")
	bob := registerPlayer(t, cli, "Bob Jones", "bob", "bob@example.com")

	// Create a match
	match := createMatch(t, cli, "Arena1")
	assert.Equal(t, "open", match.Status)
	assert.Empty(t, match.Players)
	t.Logf("Created match: %s", match.ID)

	// Both players join
	output, err := cli.run("match", "join", match.ID, alice.ID)
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("match", "join", match.ID, bob.ID)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &match))
	assert.Len(t, match.Players, 2)

	// Joined players show their membership
	output, err = cli.run("player", "get", alice.ID)
	require.NoError(t, err, "output: %s", output)
	var joined playerResponse
	require.NoError(t, json.Unmarshal([]byte(output), &joined))
	require.NotNil(t, joined.CurrentMatch)
	assert.Equal(t, match.ID, *joined.CurrentMatch)

	// Start the match
	output, err = cli.run("match", "start", match.ID)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &match))
	assert.Equal(t, "in_progress", match.Status)
	require.NotNil(t, match.StartedAt)
	t.Logf("Match started at %s", match.StartedAt)

	// A third player cannot join while in progress
	carol := registerPlayer(t, cli, "Carol White", "carol", "carol@example.com")
	output, err = cli.run("match", "join", match.ID, carol.ID)
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "not open")

	// Finish with scores
	output, err = cli.run("match", "finish", match.ID,
		"--score", alice.ID+"=100",
		"--score", bob.ID+"=80")
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &match))
	assert.Equal(t, "finished", match.Status)
	require.NotNil(t, match.EndedAt)
	assert.Equal(t, 100, match.Scores[alice.ID])
	assert.Equal(t, 80, match.Scores[bob.ID])
	assert.Len(t, match.Players, 2)

	// Finished match shows up in the players' history
	output, err = cli.run("match", "history", alice.ID)
	require.NoError(t, err, "output: %s", output)

	var history []matchResponse
	require.NoError(t, json.Unmarshal([]byte(output), &history))
	require.Len(t, history, 1)
	assert.Equal(t, match.ID, history[0].ID)
}

func TestCLI_MatchListAndDelete(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	alice := registerPlayer(t, cli, "Alice Smith", "alice", "alice@example.com")

	m1 := createMatch(t, cli, "Arena1")
	createMatch(t, cli, "Arena2")

	// Both matches are open
	output, err := cli.run("match", "list", "--open")
	require.NoError(t, err, "output: %s", output)

	var matches []matchResponse
	require.NoError(t, json.Unmarshal([]byte(output), &matches))
	assert.Len(t, matches, 2)

	// Starting the first removes it from the open listing
	_, err = cli.run("match", "join", m1.ID, alice.ID)
	require.NoError(t, err)
	_, err = cli.run("match", "start", m1.ID)
	require.NoError(t, err)

	output, err = cli.run("match", "list", "--open")
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "Arena2", matches[0].Name)

	// Delete everything; the member is freed
	output, err = cli.run("match", "delete", "--all")
	require.NoError(t, err, "output: %s", output)

	var msg messageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &msg))
	assert.Equal(t, "All matches deleted", msg.Message)

	output, err = cli.run("match", "list")
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &matches))
	assert.Empty(t, matches)

	output, err = cli.run("player", "get", alice.ID)
	require.NoError(t, err, "output: %s", output)
	var freed playerResponse
	require.NoError(t, json.Unmarshal([]byte(output), &freed))
	assert.Nil(t, freed.CurrentMatch)
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Get non-existent match
	output, err := cli.run("match", "get", "nonexistent")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "not found")

	// Duplicate email registration
	registerPlayer(t, cli, "Alice Smith", "alice", "alice@example.com")

	output, err = cli.run("player", "register",
		"--name", "Other Alice", "--nickname", "alice2", "--email", "alice@example.com")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "email")

	// Starting an empty match is rejected
	match := createMatch(t, cli, "Arena1")
	output, err = cli.run("match", "start", match.ID)
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "no players")
}
