package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"todoList/internal/app"
	"todoList/internal/config"
	"todoList/internal/logger"
	"todoList/internal/repository/postgres"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "todo-api",
		Short:         "HTTP API списка задач",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP сервер",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Миграции схемы PostgreSQL",
	}
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Применить все миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(postgres.MigrateUp)
		},
	}
	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "Откатить все миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(postgres.MigrateDown)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "путь к yaml конфигу")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "ошибка:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg)
	if err := a.Init(ctx); err != nil {
		return err
	}
	return a.Run(ctx)
}

func runMigrate(migrate func(string) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Type != config.RepositoryPostgres {
		return fmt.Errorf("миграции нужны только для postgres, в конфиге %q", cfg.Database.Type)
	}

	if err := logger.Init(cfg.Logging.Development); err != nil {
		return err
	}
	defer logger.Sync()

	return migrate(cfg.Database.Postgres.URL)
}
