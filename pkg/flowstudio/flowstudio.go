package flowstudio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/RealZimboGuy/flowstudio/internal/config"
	"github.com/RealZimboGuy/flowstudio/internal/controllers"
	"github.com/RealZimboGuy/flowstudio/internal/credentials"
	"github.com/RealZimboGuy/flowstudio/internal/migrations"
	"github.com/RealZimboGuy/flowstudio/internal/otelhelper"
	"github.com/RealZimboGuy/flowstudio/internal/repository"
	"github.com/RealZimboGuy/flowstudio/internal/telemetry"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/hooks"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel/trace"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// App is the wired API: repositories, controllers and the telemetry bus on
// top of an open, migrated database.
type App struct {
	DB       *sql.DB
	Dialect  repository.Dialect
	Mux      *http.ServeMux
	Settings config.Settings

	Users           *repository.UserRepository
	Workflows       *repository.WorkflowRepository
	SharedWorkflows *repository.SharedWorkflowRepository
	Tags            *repository.TagRepository
	Credentials     *repository.CredentialsRepository

	pubSub *gochannel.GoChannel
}

type AppOptions struct {
	Settings config.Settings
	Clock    core.Clock
	Tracer   trace.Tracer
	Logger   *slog.Logger
	Hooks    []hooks.Registration
	// Mux receives the routes. A new one is created when nil.
	Mux *http.ServeMux
}

// NewApp wires every component on top of db. The telemetry sink runs until
// ctx is done or Close is called.
func NewApp(ctx context.Context, db *sql.DB, dialect repository.Dialect, opts AppOptions) (*App, error) {
	if opts.Clock == nil {
		opts.Clock = core.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otelhelper.NoopTracer()
	}
	if opts.Mux == nil {
		opts.Mux = http.NewServeMux()
	}

	roles := repository.NewRoleRepository(dialect)
	tags := repository.NewTagRepository(db, dialect, opts.Clock)
	workflows := repository.NewWorkflowRepository(db, dialect, opts.Clock)
	app := &App{
		DB:              db,
		Dialect:         dialect,
		Mux:             opts.Mux,
		Settings:        opts.Settings,
		Users:           repository.NewUserRepository(db, dialect, opts.Clock),
		Workflows:       workflows,
		SharedWorkflows: repository.NewSharedWorkflowRepository(db, dialect, opts.Clock, workflows, roles, tags),
		Tags:            tags,
		Credentials:     repository.NewCredentialsRepository(db, dialect, opts.Clock, roles),
	}

	app.pubSub = telemetry.NewChannel(opts.Logger)
	if err := telemetry.NewSink(app.pubSub, opts.Logger).Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start telemetry sink: %w", err)
	}
	internalHooks := telemetry.NewInternalHooks(app.pubSub, opts.Clock)

	auth := controllers.NewAuthController(app.Users, opts.Clock, opts.Settings)
	controllers.RegisterAll(app.Mux,
		auth,
		controllers.NewUsersController(app.Users, auth),
		controllers.NewWorkflowsController(
			auth,
			app.SharedWorkflows,
			app.Tags,
			credentials.NewSanitizer(app.Credentials),
			hooks.NewExternalHooks(opts.Hooks...),
			internalHooks,
			opts.Settings,
			opts.Tracer,
		),
		controllers.NewTagsController(auth, app.Tags),
		controllers.NewCredentialsController(auth, app.Credentials),
		controllers.NewHealthController(func(ctx context.Context) error { return repository.Ping(ctx, db) }),
	)
	return app, nil
}

// Close stops the telemetry bus. The database is owned by the caller.
func (a *App) Close() error {
	return a.pubSub.Close()
}

// Start opens and migrates the configured database, wires the API onto mux
// and serves HTTP until ctx is cancelled.
func Start(ctx context.Context, mux *http.ServeMux, registrations ...hooks.Registration) error {
	dialect, err := repository.DialectFromConfig()
	if err != nil {
		return fmt.Errorf("FSTUDIO_DATABASE_TYPE must be one of POSTGRES, MYSQL, SQLLITE: %w", err)
	}
	db, err := OpenDatabase(dialect)
	if err != nil {
		return err
	}
	defer db.Close()

	var tracer trace.Tracer
	if config.GetSystemSettingBool(config.OTEL_ENABLED) {
		t, shutdown, err := otelhelper.NewTracer(ctx, config.GetSystemSettingString(config.OTEL_SERVICE_NAME))
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("Tracer shutdown failed", "error", err)
			}
		}()
		tracer = t
	}

	app, err := NewApp(ctx, db, dialect, AppOptions{
		Settings: config.LoadSettings(),
		Tracer:   tracer,
		Hooks:    registrations,
		Mux:      mux,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	addr := ":" + config.GetSystemSettingString(config.SERVER_WEB_PORT)
	if v := config.GetSystemSettingString(config.SERVER_HTTP_ADDR); v != "" {
		addr = v
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// OpenDatabase migrates and opens the configured database.
func OpenDatabase(dialect repository.Dialect) (*sql.DB, error) {
	switch dialect {
	case repository.DialectPostgres:
		return setupPostgresDatabase()
	case repository.DialectMySQL:
		return setupMysqlDatabase()
	case repository.DialectSQLite:
		return setupSqlLiteDatabase()
	}
	return nil, fmt.Errorf("unsupported database type %q", dialect)
}

func setupPostgresDatabase() (*sql.DB, error) {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		return nil, errors.New("FSTUDIO_DATABASE_URL must be set when using the POSTGRES database type")
	}
	slog.Info("Using Postgres database")
	slog.Info("Running migrations")
	if err := migrations.Up("postgres", dbURL); err != nil {
		return nil, fmt.Errorf("DB migration failed: %w", err)
	}
	slog.Info("Opening Postgres database")
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("DB connection failed: %w", err)
	}
	return db, nil
}

func setupSqlLiteDatabase() (*sql.DB, error) {
	fileName := config.GetSystemSettingString(config.DATABASE_SQLLITE_FILE_NAME)
	if fileName == "" {
		return nil, errors.New("FSTUDIO_DATABASE_SQLLITE_FILE_NAME must be set")
	}
	slog.Info("Using SQLite database", "file", fileName)
	slog.Info("Running migrations")
	if err := migrations.Up("sqllite3", "sqlite3://"+fileName); err != nil {
		return nil, fmt.Errorf("DB migration failed: %w", err)
	}
	return OpenSqlLite(fileName)
}

// OpenSqlLite opens an already migrated SQLite file. SQLite allows a single
// writer, so the pool is limited to one connection.
func OpenSqlLite(fileName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite DB: %w", err)
	}
	return db, nil
}

func setupMysqlDatabase() (*sql.DB, error) {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		return nil, errors.New("FSTUDIO_DATABASE_URL must be set when using the MYSQL database type")
	}
	if !strings.HasPrefix(dbURL, "mysql://") {
		return nil, errors.New("FSTUDIO_DATABASE_URL must start with 'mysql://' for MySQL")
	}
	if !strings.Contains(dbURL, "parseTime=true") || !strings.Contains(dbURL, "multiStatements=true") {
		return nil, errors.New("FSTUDIO_DATABASE_URL must contain 'parseTime=true' and 'multiStatements=true' for MySQL")
	}

	slog.Info("Using MySQL database")
	slog.Info("Running migrations")
	if err := migrations.Up("mysql", dbURL); err != nil {
		return nil, fmt.Errorf("DB migration failed: %w", err)
	}
	slog.Info("Opening MySQL database")
	db, err := sql.Open("mysql", strings.TrimPrefix(dbURL, "mysql://"))
	if err != nil {
		return nil, fmt.Errorf("DB connection failed: %w", err)
	}
	return db, nil
}

// SetupLogger installs a tint handler at the configured level as the default logger.
func SetupLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(config.GetSystemSettingString(config.LOG_LEVEL))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}
