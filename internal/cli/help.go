package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

type workflow struct {
	title    string
	commands []string
}

var workflows = []workflow{
	{
		title: "First Run",
		commands: []string{
			"journal config init               # Write ~/.config/trade-journal/config.toml",
			"journal migrate                   # Create the database",
			"journal serve                     # Start the API on :5001",
			"journal user add me --password x  # Or register through the web app",
			"journal login me --password x     # Save a session token",
		},
	},
	{
		title: "Planning a Trade",
		commands: []string{
			"journal trades add AAPL --pattern VCP --quality A+ --entry 182.5 --stop 176 --target 201",
			"journal trades list --sort date",
			"journal trades show <id>",
		},
	},
	{
		title: "Review",
		commands: []string{
			"journal trades close <id> --result Win",
			"journal trades list --result Loss --from 2024-01-01",
			"journal stats",
			"journal rules list",
			"journal rules add \"No trades in a Stage 4 market\"",
		},
	},
	{
		title: "Deployment",
		commands: []string{
			"DATABASE_URL=postgres://... journal serve   # Use PostgreSQL",
			"JWT_SECRET=... NODE_ENV=production journal serve",
			"journal serve --read-only                   # Browse without edits",
		},
	},
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				out := make(map[string][]string, len(workflows))
				for _, w := range workflows {
					out[w.title] = w.commands
				}
				return output.JSON(out)
			}

			output.Bold("Common Workflow Examples")
			output.Println()
			for _, w := range workflows {
				output.Info(w.title)
				output.Println(strings.Repeat("-", len(w.title)))
				for _, c := range w.commands {
					output.Printf("  %s\n", c)
				}
				output.Println()
			}
			return nil
		},
	}
}
