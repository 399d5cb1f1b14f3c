package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	dbfs "github.com/garnizeh/tasso/db"
	"github.com/garnizeh/tasso/internal/auth"
	"github.com/garnizeh/tasso/internal/config"
	"github.com/garnizeh/tasso/internal/db"
	"github.com/garnizeh/tasso/internal/repository/store"
	"github.com/garnizeh/tasso/pkg/models"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `usage: tasso [-config file] <command> [args]

commands:
  init              apply migrations and create the first administrator (default)
  migrate           apply migrations only
  passwd <user>     set a new password (TASSO_NEW_PASS or generated)
  token <user>      authenticate with TASSO_PASSWORD and print a session token
`

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("starting tasso", slog.String("version", version), slog.String("build_time", buildTime))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "init"
	}
	if err := run(ctx, cfg, logger, cmd, flag.Args()); err != nil {
		logger.Error("command failed", slog.String("command", cmd), slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd string, args []string) error {
	database, err := db.New(ctx, cfg.Driver, cfg.DatabaseURL, &db.Options{
		MaxConns:       cfg.MaxConns,
		AcquireTimeout: cfg.AcquireTimeout,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Warn("error closing DB", slog.Any("err", err))
		}
	}()

	// resource operations assume the schema is current
	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		return err
	}
	if cmd == "migrate" {
		return nil
	}

	hasher, err := auth.NewHasher(auth.Params{
		Time:       cfg.Password.Time,
		Memory:     cfg.Password.Memory,
		Threads:    cfg.Password.Threads,
		SaltLength: auth.DefaultParams.SaltLength,
		KeyLength:  auth.DefaultParams.KeyLength,
	})
	if err != nil {
		return err
	}
	st := store.New(database, logger)
	svc := auth.NewService(st.Users, hasher, logger)

	switch cmd {
	case "init":
		_, err := svc.InitializeAdmin(ctx, auth.AdminOptions{Username: cfg.Admin.Username, Password: cfg.Admin.Password})
		return err
	case "passwd":
		if len(args) < 2 {
			return errors.New("passwd: username required")
		}
		return passwd(ctx, st, svc, args[1])
	case "token":
		if len(args) < 2 {
			return errors.New("token: username required")
		}
		tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenDuration)
		if err != nil {
			return err
		}
		user, err := svc.Authenticate(ctx, models.Credentials{Username: args[1], Password: os.Getenv("TASSO_PASSWORD")})
		if err != nil {
			return err
		}
		token, err := tokens.Issue(user)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func passwd(ctx context.Context, st *store.Store, svc *auth.Service, username string) error {
	user, err := st.Users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	password := os.Getenv("TASSO_NEW_PASS")
	generated := password == ""
	if generated {
		if password, err = auth.GeneratePassword(auth.DefaultPasswordLength); err != nil {
			return err
		}
	}
	if err := svc.SetPassword(ctx, user, password); err != nil {
		return err
	}
	if generated {
		fmt.Printf("password for %s: %s\n", username, password)
	} else {
		fmt.Printf("password for %s updated\n", username)
	}
	return nil
}
