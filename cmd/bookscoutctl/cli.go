package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alecthomas/kong"

	"github.com/bookscout/bookscout/internal/auth"
	"github.com/bookscout/bookscout/internal/bookprovider"
	"github.com/bookscout/bookscout/internal/config"
	"github.com/bookscout/bookscout/internal/handler/dto"
	"github.com/bookscout/bookscout/internal/metrics"
	"github.com/bookscout/bookscout/internal/repository"
	"github.com/bookscout/bookscout/internal/service"
)

var (
	runMigrations = repository.Migrate
	openUserStore = func(ctx context.Context, dsn string) (service.UserStore, func(), error) {
		repo, err := repository.New(ctx, dsn, repository.PoolOptions{MaxConns: 2, MinConns: 0})
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	}
)

// Globals are flags shared by every command.
type Globals struct {
	DatabaseURL string        `help:"PostgreSQL connection string (defaults to the server's DB_* settings)" env:"DATABASE_URL"`
	Timeout     time.Duration `help:"Overall command timeout" default:"30s"`

	out io.Writer `kong:"-"`
}

// CLI is the bookscoutctl command tree.
type CLI struct {
	Globals

	Migrate MigrateCmd `cmd:"" help:"Run schema migrations"`
	User    UserCmd    `cmd:"" help:"Manage user accounts"`
	Lookup  LookupCmd  `cmd:"" help:"Fetch and normalize a book without recording a search"`
}

// MigrateCmd runs goose in the given direction.
type MigrateCmd struct {
	Direction string `arg:"" optional:"" enum:"up,down,status,reset" default:"up" help:"One of up, down, status, reset"`
}

func (m *MigrateCmd) Run(g *Globals) error {
	dsn, err := g.dsn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()

	repository.SetMigrationOutput(g.out)
	return runMigrations(ctx, dsn, repository.MigrationDirection(m.Direction))
}

// UserCmd groups account commands.
type UserCmd struct {
	Create UserCreateCmd `cmd:"" help:"Create a user account"`
	List   UserListCmd   `cmd:"" help:"List user accounts"`
}

type UserCreateCmd struct {
	Username string `required:"" help:"Username, must be unique"`
	Password string `required:"" help:"Password"`
	Scheme   string `default:"plaintext" enum:"plaintext,argon2" env:"CREDENTIAL_SCHEME" help:"Credential scheme the server is configured with"`
}

func (c *UserCreateCmd) Run(g *Globals) error {
	scheme, err := auth.NewScheme(c.Scheme)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()

	users, closeStore, err := g.userStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := service.NewUserService(users, scheme, metrics.NewNoop())
	user, err := svc.Register(ctx, c.Username, c.Password)
	if err != nil {
		return err
	}

	return writeJSON(g.out, dto.RegisterResponse{
		UserID:  user.ID,
		Message: "user created",
	})
}

type UserListCmd struct{}

func (c *UserListCmd) Run(g *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()

	users, closeStore, err := g.userStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	list, err := users.ListUsers(ctx)
	if err != nil {
		return err
	}
	return writeJSON(g.out, dto.ToUserResponses(list))
}

// LookupCmd prints the normalized book for a title.
type LookupCmd struct {
	Title   string `required:"" help:"Title to search for"`
	BaseURL string `default:"https://www.googleapis.com/books/v1" env:"BOOKS_API_BASE_URL" help:"Books API base URL"`
	APIKey  string `env:"GOOGLE_BOOKS_API_KEY" help:"Books API key"`
}

func (l *LookupCmd) Run(g *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()

	provider := bookprovider.New(bookprovider.Options{
		BaseURL:    l.BaseURL,
		APIKey:     l.APIKey,
		HTTPClient: bookprovider.NewHTTPClient(g.Timeout),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	// Lookups never touch the stores.
	svc := service.NewBookService(provider, nil, nil, metrics.NewNoop())
	book, err := svc.LookupBook(ctx, l.Title)
	if err != nil {
		return err
	}
	return writeJSON(g.out, dto.ToBookResponse(*book))
}

func (g *Globals) dsn() (string, error) {
	if g.DatabaseURL != "" {
		return g.DatabaseURL, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if !cfg.UsesPostgres() {
		return "", errors.New("STORE_DRIVER is not postgres; set --database-url")
	}
	return cfg.DSN(), nil
}

func (g *Globals) userStore(ctx context.Context) (service.UserStore, func(), error) {
	dsn, err := g.dsn()
	if err != nil {
		return nil, nil, err
	}
	users, closeStore, err := openUserStore(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return users, closeStore, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// run parses args and executes the selected command.
func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("bookscoutctl"),
		kong.Description("Operator tool for the Bookscout API."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cli.Globals.out = stdout
	return ctx.Run(&cli.Globals)
}
