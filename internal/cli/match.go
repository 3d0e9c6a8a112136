package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match lifecycle and membership commands",
	}

	cmd.AddCommand(newMatchCreateCmd())
	cmd.AddCommand(newMatchListCmd())
	cmd.AddCommand(newMatchGetCmd())
	cmd.AddCommand(newMatchDeleteCmd())
	cmd.AddCommand(newMatchJoinCmd())
	cmd.AddCommand(newMatchLeaveCmd())
	cmd.AddCommand(newMatchStartCmd())
	cmd.AddCommand(newMatchFinishCmd())
	cmd.AddCommand(newMatchHistoryCmd())

	return cmd
}

func newMatchCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new match",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": name}
			var result Match

			if err := client.Post("/api/v1/matches", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Match name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newMatchListCmd() *cobra.Command {
	var openOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/matches"
			if openOnly {
				path = "/api/v1/matches/open"
			}

			var result []Match
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&openOnly, "open", false, "Only show matches accepting joins")

	return cmd
}

func newMatchGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <match-id>",
		Short: "Show a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Match

			if err := client.Get("/api/v1/matches/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchDeleteCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "delete [match-id]",
		Short: "Delete a match, or all matches with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			if all {
				if err := client.Delete("/api/v1/matches"); err != nil {
					return err
				}
				out.PrintMessage("All matches deleted")
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("match-id is required unless --all is set")
			}

			if err := client.Delete("/api/v1/matches/" + args[0]); err != nil {
				return err
			}
			out.PrintMessage(fmt.Sprintf("Match %s deleted", args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every match")

	return cmd
}

func newMatchJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <match-id> <player-id>",
		Short: "Add a player to a match",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Match

			path := fmt.Sprintf("/api/v1/matches/%s/join/%s", args[0], args[1])
			if err := client.Post(path, nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <match-id> <player-id>",
		Short: "Remove a player from a match",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/matches/%s/leave/%s", args[0], args[1])
			if err := client.Post(path, nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Player %s left match %s", args[1], args[0]))
			return nil
		},
	}
}

func newMatchStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <match-id>",
		Short: "Start a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Match

			if err := client.Post("/api/v1/matches/"+args[0]+"/start", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchFinishCmd() *cobra.Command {
	var scoreFlags []string

	cmd := &cobra.Command{
		Use:   "finish <match-id>",
		Short: "Finish a match, optionally recording scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scores := map[string]int{}
			for _, s := range scoreFlags {
				parts := strings.SplitN(s, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("invalid score %q, expected player-id=points", s)
				}
				points, err := strconv.Atoi(parts[1])
				if err != nil {
					return fmt.Errorf("invalid score %q: %w", s, err)
				}
				scores[parts[0]] = points
			}

			var result Match
			if err := client.Post("/api/v1/matches/"+args[0]+"/finish", scores, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&scoreFlags, "score", nil, "Score as player-id=points (repeatable)")

	return cmd
}

func newMatchHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <player-id>",
		Short: "List finished matches for a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Match

			if err := client.Get("/api/v1/matches/history/players/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
