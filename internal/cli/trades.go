package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/client"
	"trade-journal/internal/models"
	"trade-journal/internal/performance"
	"trade-journal/pkg/utils"
)

func newTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trades",
		Aliases: []string{"trade", "t"},
		Short:   "List, record and review trades",
	}

	cmd.AddCommand(newTradesListCmd(app))
	cmd.AddCommand(newTradesShowCmd(app))
	cmd.AddCommand(newTradesAddCmd(app))
	cmd.AddCommand(newTradesCloseCmd(app))
	cmd.AddCommand(newTradesDeleteCmd(app))
	return cmd
}

// loadTrades fills a trade cache from the server.
func loadTrades(cmd *cobra.Command, app *App) (*client.TradeStore, error) {
	ts := client.NewTradeStore(app.client())
	if err := ts.Load(cmd.Context()); err != nil {
		return nil, apiError(err)
	}
	return ts, nil
}

func newTradesListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trades",
		Example: `  journal trades list
  journal trades list --pattern VCP --result Win
  journal trades list --from 2024-01-01 --sort entryPrice --asc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			filter, order, err := parseListFlags(cmd)
			if err != nil {
				return err
			}

			ts, err := loadTrades(cmd, app)
			if err != nil {
				return err
			}
			trades := ts.Filtered(filter, order)

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Dim("No trades found")
				return nil
			}

			table := NewTable(output, "ID", "DATE", "STOCK", "PATTERN", "SETUP", "ENTRY", "STOP", "TARGET", "R:R", "STATUS", "RESULT")
			for _, t := range trades {
				table.AddRow(
					t.ID,
					t.Date,
					t.StockName,
					string(t.PatternType),
					string(t.SetupQuality),
					utils.FormatPrice(t.EntryPrice),
					utils.FormatPrice(t.StopLoss),
					utils.FormatPrice(t.TargetPrice),
					performance.FormatRR(t.EntryPrice, t.StopLoss, t.TargetPrice),
					output.Status(t.Status),
					output.Result(t.Result),
				)
			}
			table.Render()
			output.Dim("%d of %d trades", len(trades), len(ts.Trades()))
			return nil
		},
	}

	cmd.Flags().String("pattern", "", "filter by pattern type")
	cmd.Flags().String("result", "", "filter by result (Win, Loss, Breakeven)")
	cmd.Flags().String("from", "", "only trades on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "only trades on or before this date (YYYY-MM-DD)")
	cmd.Flags().String("sort", string(performance.SortByDate), "sort column")
	cmd.Flags().Bool("asc", false, "sort ascending")
	return cmd
}

func parseListFlags(cmd *cobra.Command) (performance.Filter, performance.Sort, error) {
	var filter performance.Filter

	if p, _ := cmd.Flags().GetString("pattern"); p != "" {
		filter.PatternType = models.PatternType(p)
		if !filter.PatternType.Valid() {
			return filter, performance.Sort{}, fmt.Errorf("unknown pattern %q", p)
		}
	}
	if r, _ := cmd.Flags().GetString("result"); r != "" {
		filter.Result = models.TradeResult(r)
		if !filter.Result.Valid() {
			return filter, performance.Sort{}, fmt.Errorf("unknown result %q", r)
		}
	}

	var err error
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		if filter.StartDate, err = time.Parse(models.DateLayout, from); err != nil {
			return filter, performance.Sort{}, fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		if filter.EndDate, err = time.Parse(models.DateLayout, to); err != nil {
			return filter, performance.Sort{}, fmt.Errorf("invalid --to date: %w", err)
		}
	}

	name, _ := cmd.Flags().GetString("sort")
	key, ok := performance.ParseSortKey(name)
	if !ok {
		return filter, performance.Sort{}, fmt.Errorf("unknown sort column %q", name)
	}
	asc, _ := cmd.Flags().GetBool("asc")
	return filter, performance.Sort{Key: key, Desc: !asc}, nil
}

func newTradesShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			t, err := app.client().GetTrade(cmd.Context(), args[0])
			if err != nil {
				return apiError(err)
			}
			if output.IsJSON() {
				return output.JSON(t)
			}
			showTrade(output, t)
			return nil
		},
	}
}

func showTrade(output *Output, t *models.Trade) {
	output.Bold("%s  %s", t.StockName, utils.FormatDate(t.Date))
	output.Printf("  ID:          %s\n", t.ID)
	output.Printf("  Pattern:     %s\n", t.PatternType)
	output.Printf("  Setup:       %s\n", t.SetupQuality)
	if t.MarketStage != "" {
		output.Printf("  Stage:       %s\n", t.MarketStage)
	}
	output.Printf("  Entry:       %s\n", utils.FormatPrice(t.EntryPrice))
	output.Printf("  Stop:        %s%s\n", utils.FormatPrice(t.StopLoss), moveFromEntry(t.EntryPrice, t.StopLoss))
	output.Printf("  Target:      %s%s\n", utils.FormatPrice(t.TargetPrice), moveFromEntry(t.EntryPrice, t.TargetPrice))
	output.Printf("  Risk:        %s\n", utils.FormatPercent(t.RiskPercent, 2))
	output.Printf("  R:R:         %s\n", performance.FormatRR(t.EntryPrice, t.StopLoss, t.TargetPrice))
	output.Printf("  Status:      %s\n", output.Status(t.Status))
	output.Printf("  Result:      %s\n", output.Result(t.Result))
	if t.ChartImage != "" {
		output.Printf("  Chart:       attached\n")
	}
	if t.Notes != "" {
		output.Println()
		output.Println(t.Notes)
	}
}

// moveFromEntry renders the signed distance from entry, e.g. " (+15.00%)".
func moveFromEntry(entry, price float64) string {
	if entry <= 0 {
		return ""
	}
	return " (" + utils.FormatSignedPercent((price-entry)/entry*100) + ")"
}

func newTradesAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <stock>",
		Short: "Record a trade plan",
		Example: `  journal trades add AAPL --pattern VCP --quality A --entry 182.5 --stop 176 --target 201
  journal trades add MSFT --pattern Breakout --quality B --entry 410 --stop 398 --target 450 --status Executed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			flags := cmd.Flags()

			t := &models.Trade{StockName: strings.TrimSpace(args[0])}
			t.Date, _ = flags.GetString("date")
			if t.Date == "" {
				t.Date = time.Now().Format(models.DateLayout)
			}
			pattern, _ := flags.GetString("pattern")
			quality, _ := flags.GetString("quality")
			stage, _ := flags.GetString("stage")
			status, _ := flags.GetString("status")
			t.PatternType = models.PatternType(pattern)
			t.SetupQuality = models.SetupQuality(quality)
			t.MarketStage = models.MarketStage(stage)
			t.Status = models.TradeStatus(status)
			t.EntryPrice, _ = flags.GetFloat64("entry")
			t.StopLoss, _ = flags.GetFloat64("stop")
			t.TargetPrice, _ = flags.GetFloat64("target")
			t.RiskPercent, _ = flags.GetFloat64("risk")
			t.Notes, _ = flags.GetString("notes")
			t.ApplyDefaults()

			ts := client.NewTradeStore(app.client())
			created, err := ts.Add(cmd.Context(), t)
			if err != nil {
				return apiError(err)
			}
			if output.IsJSON() {
				return output.JSON(created)
			}
			output.Success("Recorded %s (%s)", created.StockName, created.ID)
			output.Dim("Risk %s, R:R %s", utils.FormatPercent(created.RiskPercent, 2),
				performance.FormatRR(created.EntryPrice, created.StopLoss, created.TargetPrice))
			return nil
		},
	}

	cmd.Flags().String("date", "", "trade date YYYY-MM-DD (default: today)")
	cmd.Flags().String("pattern", string(models.PatternVCP), "pattern type")
	cmd.Flags().String("quality", string(models.SetupA), "setup quality")
	cmd.Flags().String("stage", "", "market stage")
	cmd.Flags().String("status", string(models.StatusPlanned), "trade status")
	cmd.Flags().Float64("entry", 0, "entry price")
	cmd.Flags().Float64("stop", 0, "stop loss")
	cmd.Flags().Float64("target", 0, "target price")
	cmd.Flags().Float64("risk", 0, "risk percent (default: derived from entry and stop)")
	cmd.Flags().String("notes", "", "notes")
	cmd.MarkFlagRequired("entry")
	cmd.MarkFlagRequired("stop")
	cmd.MarkFlagRequired("target")
	return cmd
}

func newTradesCloseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Mark a trade closed with its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			name, _ := cmd.Flags().GetString("result")
			result := models.TradeResult(name)
			if !result.Valid() || result == models.ResultNone {
				return fmt.Errorf("--result must be one of Win, Loss, Breakeven")
			}

			ts, err := loadTrades(cmd, app)
			if err != nil {
				return err
			}
			t, ok := ts.Get(args[0])
			if !ok {
				return fmt.Errorf("trade %s not found", args[0])
			}
			t.Status = models.StatusClosed
			t.Result = result

			updated, err := ts.Update(cmd.Context(), t.ID, &t)
			if err != nil {
				return apiError(err)
			}
			if output.IsJSON() {
				return output.JSON(updated)
			}
			output.Success("Closed %s as %s", updated.StockName, output.Result(updated.Result))
			return nil
		},
	}
	cmd.Flags().String("result", "", "Win, Loss or Breakeven")
	cmd.MarkFlagRequired("result")
	return cmd
}

func newTradesDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ts := client.NewTradeStore(app.client())
			if err := ts.Delete(cmd.Context(), args[0]); err != nil {
				return apiError(err)
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("Trade deleted successfully")
			return nil
		},
	}
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show win rate and average risk:reward",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ts, err := loadTrades(cmd, app)
			if err != nil {
				return err
			}
			stats := ts.Stats()
			if output.IsJSON() {
				return output.JSON(stats)
			}

			output.Bold("Journal Statistics")
			output.Printf("  Total trades:  %d\n", stats.Total)
			output.Printf("  Wins:          %s\n", output.Green(fmt.Sprint(stats.Wins)))
			output.Printf("  Losses:        %s\n", output.Red(fmt.Sprint(stats.Losses)))
			output.Printf("  Win rate:      %s\n", utils.FormatPercent(stats.WinRate, 1))
			output.Printf("  Avg R:R:       1:%.2f\n", stats.AvgRR)
			return nil
		},
	}
}
