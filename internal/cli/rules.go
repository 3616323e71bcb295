package cli

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"trade-journal/pkg/utils"
)

func newRulesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage your trading rules",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List trading rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			rules, err := app.client().ListRules(cmd.Context())
			if err != nil {
				return apiError(err)
			}
			if output.IsJSON() {
				return output.JSON(rules)
			}
			if len(rules) == 0 {
				output.Dim("No rules yet. Add one with 'journal rules add <text>'")
				return nil
			}

			table := NewTable(output, "ID", "RULE", "IMAGE")
			for _, r := range rules {
				image := ""
				if r.Image != "" {
					image = "yes"
				}
				table.AddRow(r.ID, utils.Truncate(utils.FirstLine(r.RuleText), 70), image)
			}
			table.Render()
			return nil
		},
	})

	addCmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a trading rule",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			image := ""
			if path, _ := cmd.Flags().GetString("image"); path != "" {
				var err error
				if image, err = imageDataURL(path); err != nil {
					return err
				}
			}

			rule, err := app.client().AddRule(cmd.Context(), strings.Join(args, " "), image)
			if err != nil {
				return apiError(err)
			}
			if output.IsJSON() {
				return output.JSON(rule)
			}
			output.Success("Added rule %s", rule.ID)
			return nil
		},
	}
	addCmd.Flags().String("image", "", "attach an image file")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a trading rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.client().DeleteRule(cmd.Context(), args[0]); err != nil {
				return apiError(err)
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("Rule deleted successfully")
			return nil
		},
	})

	return cmd
}

// imageDataURL reads an image file into a base64 data URL.
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
