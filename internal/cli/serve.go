package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trade-journal/internal/api"
	"trade-journal/internal/auth"
	"trade-journal/internal/resilience"
	"trade-journal/internal/security"
	"trade-journal/internal/store"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the journal API server",
		Long: `Run the HTTP API. The store is chosen from configuration: PostgreSQL when
database.url (or DATABASE_URL) is set, otherwise the SQLite file at
database.sqlite_path. In production mode the web bundle in server.static_dir
is served as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				app.Config.Server.Port = port
			}
			if ro, _ := cmd.Flags().GetBool("read-only"); ro {
				app.Config.Security.ReadOnlyMode = true
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, app)
		},
	}
	cmd.Flags().Int("port", 0, "listen port (default: server.port)")
	cmd.Flags().Bool("read-only", false, "reject every mutating request")
	return cmd
}

// runServe wires the store, auth and API server and blocks until ctx is
// cancelled. The store is closed after the server drains.
func runServe(ctx context.Context, app *App) error {
	cfg := app.Config
	logger := app.Logger

	st, err := openStore(ctx, app)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close store")
		}
	}()

	var audit *security.AuditLogger
	if cfg.Security.AuditEnabled {
		auditCfg := security.DefaultAuditConfig()
		auditCfg.LogDir = cfg.Security.AuditDir
		audit, err = security.NewAuditLogger(auditCfg)
		if err != nil {
			return fmt.Errorf("audit log: %w", err)
		}
		defer audit.Close()
	}

	validator := security.NewInputValidator(cfg.Security.StrictValidation)
	access := security.NewAccessController(cfg.Security.ReadOnlyMode, audit)
	authSvc := auth.NewService(st, validator, auth.Config{
		Secret:     cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, logger)

	health := resilience.NewHealthMonitor(resilience.DefaultHealthMonitorConfig())
	health.RegisterComponent("database", resilience.DatabaseHealthCheck(st.Backend(), st.Ping, st.CountTrades))

	srv := api.NewServer(api.Options{
		Store:       st,
		Auth:        authSvc,
		Validator:   validator,
		Access:      access,
		Audit:       audit,
		Health:      health,
		Logger:      logger,
		BodyLimit:   cfg.BodyLimit(),
		CORSOrigins: cfg.Server.CORSOrigins,
		Production:  cfg.Server.Production,
		StaticDir:   cfg.Server.StaticDir,
	})

	logger.Info().
		Str("addr", cfg.Addr()).
		Str("backend", st.Backend()).
		Bool("production", cfg.Server.Production).
		Bool("read_only", cfg.Security.ReadOnlyMode).
		Msg("Starting trade journal")

	return srv.Run(ctx, cfg.Addr(), cfg.Server.ShutdownTimeout)
}

func openStore(ctx context.Context, app *App) (store.DataStore, error) {
	st, err := store.Open(ctx, store.Options{
		URL:        app.Config.Database.URL,
		SQLitePath: app.Config.Database.SQLitePath,
	}, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			// Opening a store applies the schema and column migrations.
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.CountTrades(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"backend": st.Backend(), "trades": n})
			}
			output.Success("Schema is up to date (%s, %d trades)", st.Backend(), n)
			return nil
		},
	}
}

func newUserCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage journal users",
	}

	addCmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user directly in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			password, _ := cmd.Flags().GetString("password")

			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := auth.NewService(st, security.NewInputValidator(app.Config.Security.StrictValidation), auth.Config{
				Secret:     app.Config.Auth.JWTSecret,
				TokenTTL:   app.Config.Auth.TokenTTL,
				BcryptCost: app.Config.Auth.BcryptCost,
			}, app.Logger)
			user, err := svc.Register(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(user)
			}
			output.Success("Created user %s", user.Username)
			return nil
		},
	}
	addCmd.Flags().String("password", "", "password for the new user")
	addCmd.MarkFlagRequired("password")
	cmd.AddCommand(addCmd)

	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in to the server and save the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			password, _ := cmd.Flags().GetString("password")

			c := app.client()
			token, err := c.Login(cmd.Context(), args[0], password)
			if err != nil {
				return apiError(err)
			}
			if err := app.saveToken(token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"username": args[0], "token": token})
			}
			output.Success("Logged in as %s", args[0])
			output.Dim("Token saved to %s", app.tokenPath())
			return nil
		},
	}
	cmd.Flags().String("password", "", "account password")
	cmd.MarkFlagRequired("password")
	return cmd
}
