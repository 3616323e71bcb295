// Package cli provides the command-line interface for the trade journal.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-journal/internal/client"
	"trade-journal/internal/config"
	"trade-journal/internal/logging"
	"trade-journal/internal/security"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// tokenFile holds the session token saved by 'journal login'.
const tokenFile = "token"

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	// set from persistent flags
	serverURL string
	token     string
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade Journal - plan, track and review swing trades",
		Long: `Trade Journal records planned and executed trades, your trading rules,
and the statistics that tell you whether the rules are working.

Run 'journal serve' to start the API server, then use the trades, rules
and stats commands against it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("server", "", "API server URL (default: client.server_url)")
	rootCmd.PersistentFlags().String("token", "", "session token (env JOURNAL_TOKEN)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newMigrateCmd(app))
	rootCmd.AddCommand(newUserCmd(app))
	rootCmd.AddCommand(newLoginCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
	rootCmd.AddCommand(newRulesCmd(app))
	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newExamplesCmd())

	return rootCmd
}

// Execute runs the root command and prints any error.
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// init loads configuration and builds the logger.
func (app *App) init(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	app.Config = cfg

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
		logging.SetDebugLevel()
	}
	app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())

	app.serverURL, _ = cmd.Flags().GetString("server")
	app.token, _ = cmd.Flags().GetString("token")
	return nil
}

// client returns an API client for the configured server, authenticated
// with the first token found in --token, JOURNAL_TOKEN, or the saved
// session.
func (app *App) client() *client.Client {
	url := app.serverURL
	if url == "" {
		url = app.Config.Client.ServerURL
	}
	return client.New(
		client.WithBaseURL(url),
		client.WithTimeout(app.Config.Client.Timeout),
		client.WithToken(app.sessionToken()),
		client.WithLogger(app.Logger),
	)
}

func (app *App) sessionToken() string {
	if app.token != "" {
		return app.token
	}
	if env := os.Getenv("JOURNAL_TOKEN"); env != "" {
		return env
	}
	data, err := os.ReadFile(app.tokenPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (app *App) tokenPath() string {
	return filepath.Join(app.Config.Dir, tokenFile)
}

func (app *App) saveToken(token string) error {
	if err := os.MkdirAll(app.Config.Dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(app.tokenPath(), []byte(token+"\n"), 0600)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// version needs no configuration
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Trade Journal v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg := *app.Config
			cfg.Database.URL = security.MaskDSN(cfg.Database.URL)
			cfg.Auth.JWTSecret = security.MaskCredential(cfg.Auth.JWTSecret)
			if output.IsJSON() {
				return output.JSON(cfg)
			}
			showConfig(output, &cfg)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"dir": app.Config.Dir, "file": config.ConfigPath(app.Config.Dir)})
			} else {
				output.Println(app.Config.Dir)
			}
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented config.toml",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			force, _ := cmd.Flags().GetBool("force")
			path, err := config.WriteTemplate(app.Config.Dir, force)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"file": path})
			}
			output.Success("Wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	cmd.AddCommand(initCmd)

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	file := cfg.File
	if file == "" {
		file = "(none, using defaults)"
	}
	output.Bold("Files")
	output.Printf("  Config dir:      %s\n", cfg.Dir)
	output.Printf("  Config file:     %s\n", file)
	output.Println()

	output.Bold("Server")
	output.Printf("  Listen:          %s\n", cfg.Addr())
	output.Printf("  Production:      %v\n", cfg.Server.Production)
	output.Printf("  Static dir:      %s\n", cfg.Server.StaticDir)
	output.Printf("  Body limit:      %d MB\n", cfg.Server.BodyLimitMB)
	output.Printf("  Shutdown:        %s\n", cfg.Server.ShutdownTimeout)
	output.Println()

	output.Bold("Database")
	if cfg.UsesPostgres() {
		output.Printf("  Backend:         postgres\n")
		output.Printf("  URL:             %s\n", cfg.Database.URL)
	} else {
		output.Printf("  Backend:         sqlite\n")
		output.Printf("  Path:            %s\n", cfg.Database.SQLitePath)
	}
	output.Println()

	output.Bold("Auth")
	output.Printf("  JWT secret:      %s\n", cfg.Auth.JWTSecret)
	output.Printf("  Token TTL:       %s\n", cfg.Auth.TokenTTL)
	output.Printf("  Bcrypt cost:     %d\n", cfg.Auth.BcryptCost)
	output.Println()

	output.Bold("Security")
	output.Printf("  Read-only:       %v\n", cfg.Security.ReadOnlyMode)
	output.Printf("  Audit log:       %v\n", cfg.Security.AuditEnabled)
	output.Printf("  Strict input:    %v\n", cfg.Security.StrictValidation)
	output.Println()

	output.Bold("Client")
	output.Printf("  Server URL:      %s\n", cfg.Client.ServerURL)
	output.Printf("  Timeout:         %s\n", cfg.Client.Timeout)
}

// apiError turns an API error into a short user-facing message.
func apiError(err error) error {
	var e *client.APIError
	if errors.As(err, &e) {
		switch e.Status {
		case 401:
			return fmt.Errorf("%s: run 'journal login' first", e.Message)
		case 403:
			return fmt.Errorf("%s: session token rejected or server is read-only", e.Message)
		}
		return errors.New(e.Message)
	}
	return err
}
