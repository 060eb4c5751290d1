package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/shohag/cimonitor/internal/api"
	"github.com/shohag/cimonitor/internal/config"
	"github.com/shohag/cimonitor/internal/events"
	"github.com/shohag/cimonitor/internal/mcp"
	"github.com/shohag/cimonitor/internal/notify"
	"github.com/shohag/cimonitor/internal/prompts"
	"github.com/shohag/cimonitor/internal/storage"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cimonitor",
		Short: "cimonitor: GitHub Actions webhook monitor with MCP tools",
	}

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(mcpCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(eventsCmd(&configPath))
	rootCmd.AddCommand(statusCmd(&configPath))
	rootCmd.AddCommand(notifyCmd(&configPath))
	rootCmd.AddCommand(promptCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log := setupLogger(cfg.Logging, os.Stdout)

			store, err := setupStorage(cmd.Context(), cfg.Storage, log)
			if err != nil {
				return fmt.Errorf("failed to setup storage: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			server := api.NewServer(cfg.Server, cfg.Webhook, store, log)
			errc := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					errc <- err
				}
			}()

			log.Info().
				Str("version", version).
				Int("port", cfg.Server.Port).
				Str("storage", cfg.Storage.Driver).
				Msg("cimonitor is running")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
			case err := <-errc:
				return fmt.Errorf("server error: %w", err)
			}

			log.Info().Msg("shutting down...")

			if err := server.Shutdown(10 * time.Second); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}

			log.Info().Msg("cimonitor stopped")
			return nil
		},
	}
}

func mcpCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve tools and prompts over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// stdout carries the protocol.
			log := setupLogger(cfg.Logging, os.Stderr)

			store, err := setupStorage(cmd.Context(), cfg.Storage, log)
			if err != nil {
				return fmt.Errorf("failed to setup storage: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			svc := events.NewService(store, log)
			relay := notify.NewRelay(cfg.Notify, log)
			server := mcp.NewServer(svc, relay, version, log)

			return server.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the event log storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cleanup, err := storeFromConfig(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Fprintln(cmd.OutOrStdout(), "storage is ready")
			return nil
		},
	}
}

func eventsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the most recent webhook events",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			store, cleanup, err := storeFromConfig(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			recent, err := events.NewService(store, zerolog.Nop()).Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to read events: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), recent)
		},
	}
	cmd.Flags().Int("limit", events.DefaultRecentLimit, "number of events to show")
	return cmd
}

func statusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the latest conclusion of each workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := storeFromConfig(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			status, err := events.NewService(store, zerolog.Nop()).WorkflowStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read events: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
}

func notifyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <message>",
		Short: "Send a message to the configured Slack webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := setupLogger(cfg.Logging, cmd.ErrOrStderr())

			result := notify.NewRelay(cfg.Notify, log).Send(cmd.Context(), args[0])
			fmt.Fprintln(cmd.OutOrStdout(), result.String())
			return nil
		},
	}
}

func promptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt [name]",
		Short: "List prompt templates or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, p := range prompts.All() {
					fmt.Fprintf(out, "  %-32s %s\n", p.Name, p.Description)
				}
				return nil
			}

			text, ok := prompts.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown prompt %q", args[0])
			}
			fmt.Fprintln(out, text)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cimonitor v%s\n", version)
		},
	}
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).
			With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func setupStorage(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case "json", "":
		log.Info().Str("path", cfg.JSON.Path).Msg("using JSON file storage")
		return storage.NewJSONFile(afero.NewOsFs(), cfg.JSON.Path), nil
	case "sqlite":
		log.Info().Str("path", cfg.SQLite.Path).Msg("using SQLite storage")
		return storage.NewSQLite(cfg.SQLite.Path)
	case "postgres":
		log.Info().Msg("using Postgres storage")
		return storage.NewPostgres(ctx, cfg.Postgres.DSN)
	case "redis":
		log.Info().Str("key", cfg.Redis.Key).Msg("using Redis storage")
		return storage.NewRedis(ctx, cfg.Redis.URL, cfg.Redis.Key)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func storeFromConfig(ctx context.Context, configPath string, logOut io.Writer) (storage.Storage, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg.Logging, logOut)
	store, err := setupStorage(ctx, cfg.Storage, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, func() { store.Close() }, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
