package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	goredis "github.com/redis/go-redis/v9"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/alexanderramin/procflow/internal/cli"
	"github.com/alexanderramin/procflow/internal/config"
	"github.com/alexanderramin/procflow/internal/db"
	"github.com/alexanderramin/procflow/internal/docstore"
	"github.com/alexanderramin/procflow/internal/docstore/memory"
	mongostore "github.com/alexanderramin/procflow/internal/docstore/mongo"
	redisstore "github.com/alexanderramin/procflow/internal/docstore/redis"
	sqlitestore "github.com/alexanderramin/procflow/internal/docstore/sqlite"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/alexanderramin/procflow/internal/service"
	"github.com/alexanderramin/procflow/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Plain output when piped or when NO_COLOR is set.
	if os.Getenv("NO_COLOR") != "" || !(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeBackend, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()
	defer store.Close()

	// Wire repositories
	workspaces := repository.NewWorkspaceStore(store,
		repository.WithCollection(cfg.Collection),
		repository.WithLogger(logger),
	)
	projects := repository.NewProjectRepo(workspaces, repository.WithRevisionCheck(cfg.RevisionCheck))

	var observers []service.UseCaseObserver
	if cfg.LogUseCases {
		observers = append(observers, service.NewSlogUseCaseObserver(logger))
	}

	app := &cli.App{
		Workspaces: service.NewWorkspaceService(workspaces, observers...),
		Projects:   service.NewProjectService(projects, observers...),
		Steps:      service.NewStepService(projects, observers...),
		Checklists: service.NewChecklistService(projects, observers...),
		Notes:      service.NewNoteService(projects, observers...),
		Templates:  service.NewTemplateService(projects, observers...),
		AccessCode: cli.NewSessionFile(cfg.SessionFile),
		NewSession: func(code string) *session.Session {
			return session.New(projects, code, session.WithLogger(logger))
		},
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

// openStore builds the configured document store. The returned func
// releases the underlying client after the store is closed.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (docstore.Store, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), noop, nil

	case config.BackendSQLite:
		database, err := db.OpenDB(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		store := sqlitestore.New(database,
			sqlitestore.WithLogger(logger),
			sqlitestore.WithPollInterval(cfg.PollInterval()),
		)
		return store, func() { database.Close() }, nil

	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := redisstore.New(client,
			redisstore.WithLogger(logger),
			redisstore.WithPollInterval(cfg.PollInterval()),
		)
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return store, func() { client.Close() }, nil

	case config.BackendMongo:
		client, err := mongod.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("connecting to mongo: %w", err)
		}
		store := mongostore.New(client.Database(cfg.Mongo.Database),
			mongostore.WithLogger(logger),
			mongostore.WithPollInterval(cfg.PollInterval()),
		)
		return store, func() { client.Disconnect(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
