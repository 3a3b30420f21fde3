package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/RealZimboGuy/flowstudio/internal/config"
	"github.com/RealZimboGuy/flowstudio/internal/repository"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:           "flowstudio",
		Short:         "Workflow automation API server",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := config.LoadConfigFile(configFile); err != nil {
					return fmt.Errorf("failed to read config file: %w", err)
				}
			}
			flowstudio.SetupLogger()
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file")

	root.AddCommand(newServeCommand(), newUserCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				config.SetSystemSetting(config.SERVER_WEB_PORT, port)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := flowstudio.Start(ctx, nil); err != nil {
				slog.Error("Server exited with error", "error", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on")
	return cmd
}

func newUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var (
		username string
		password string
		withKey  bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return createUser(cmd.Context(), username, password, withKey)
		},
	}
	create.Flags().StringVarP(&username, "username", "u", "", "username")
	create.Flags().StringVar(&password, "password", "", "password")
	create.Flags().BoolVar(&withKey, "api-key", false, "generate an API key for the user")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("password")

	userCmd.AddCommand(create)
	return userCmd
}

func createUser(ctx context.Context, username, password string, withKey bool) error {
	dialect, err := repository.DialectFromConfig()
	if err != nil {
		return err
	}
	db, err := flowstudio.OpenDatabase(dialect)
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &domain.User{
		Username: username,
		Password: string(hash),
		Enabled:  sql.NullBool{Bool: true, Valid: true},
	}
	if withKey {
		user.ApiKey = sql.NullString{String: uuid.NewString(), Valid: true}
	}

	users := repository.NewUserRepository(db, dialect, core.NewRealClock())
	if _, err := users.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("User created", "userId", user.ID, "username", user.Username)
	if withKey {
		fmt.Println(user.ApiKey.String)
	}
	return nil
}
