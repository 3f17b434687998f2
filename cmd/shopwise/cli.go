package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/matiasleandrokruk/shopwise/internal/api"
	"github.com/matiasleandrokruk/shopwise/internal/domain/search"
	"github.com/matiasleandrokruk/shopwise/internal/infra/config"
	"github.com/matiasleandrokruk/shopwise/internal/infra/llm"
	"github.com/matiasleandrokruk/shopwise/internal/infra/logging"
	"github.com/matiasleandrokruk/shopwise/internal/infra/sqlite"
	"github.com/matiasleandrokruk/shopwise/internal/server"
	"github.com/matiasleandrokruk/shopwise/internal/version"
)

// CLI is the command-line interface. Flags left empty fall back to the
// config file, then the environment.
type CLI struct {
	Config string `help:"Path to a YAML config file." type:"path" short:"c"`

	Serve   ServeCmd   `cmd:"" help:"Run the HTTP server."`
	Migrate MigrateCmd `cmd:"" help:"Apply pending database migrations."`
	Version VersionCmd `cmd:"" default:"1" help:"Print version information."`
}

// ServeCmd runs the HTTP server until SIGINT or SIGTERM.
type ServeCmd struct {
	Host string `help:"Listen host (overrides HTTP_HOST)."`
	Port int    `help:"Listen port (overrides HTTP_PORT)."`
}

// MigrateCmd applies the embedded migrations.
type MigrateCmd struct {
	Database string `help:"SQLite database path (overrides DATABASE_PATH)." type:"path"`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

var errMissingJWTSecret = errors.New("JWT_SECRET must be set")

func (c *VersionCmd) Run(out io.Writer) error {
	_, err := fmt.Fprintln(out, version.String())
	return err
}

func (c *MigrateCmd) Run(cli *CLI, out io.Writer) error {
	cfg, err := config.LoadFile(cli.Config)
	if err != nil {
		return err
	}
	if c.Database != "" {
		cfg.DatabasePath = c.Database
	}

	db, err := sqlite.NewDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	applied, err := sqlite.MigrateUp(ctx, db)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		if _, err := fmt.Fprintln(out, "database is up to date"); err != nil {
			return err
		}
	}
	for _, name := range applied {
		if _, err := fmt.Fprintf(out, "applied %s\n", name); err != nil {
			return err
		}
	}
	schema, err := sqlite.MigrationVersion(ctx, db)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "schema version %d\n", schema)
	return err
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.LoadFile(cli.Config)
	if err != nil {
		return err
	}
	if c.Host != "" {
		cfg.HTTPHost = c.Host
	}
	if c.Port != 0 {
		cfg.HTTPPort = c.Port
	}
	if os.Getenv("JWT_SECRET") == "" {
		return errMissingJWTSecret
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	chat, err := newChatClient(cfg, log)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg.DatabasePath, log)
	if err != nil {
		return err
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.HTTPHost
	srvCfg.Port = cfg.HTTPPort
	srv := server.NewServer(api.Deps{
		DB:   db,
		Chat: chat,
		Log:  log,
		Search: search.Options{
			Temperature: cfg.ChatTemperature,
			MaxTokens:   cfg.ChatMaxTokens,
		},
		PublicURL: cfg.PublicURL,
	}, srvCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.WithFields(logrus.Fields{
		"version":  version.Version,
		"provider": cfg.ChatProvider,
		"addr":     srv.Addr(),
	}).Info("shopwise starting")
	return srv.Start(ctx)
}

// newChatClient registers both OpenAI-compatible backends and routes to the
// configured provider.
func newChatClient(cfg config.Config, log logrus.FieldLogger) (llm.ChatClient, error) {
	router := llm.NewRouter(map[string]llm.ChatClient{
		"openai": llm.NewOpenAIClient(llm.OpenAIConfig{
			Provider:      "openai",
			BaseURL:       cfg.OpenAIBaseURL,
			APIKey:        cfg.OpenAIAPIKey,
			Model:         cfg.OpenAIModel,
			HeaderTimeout: cfg.ChatHeaderTimeout,
		}, log),
		"ollama": llm.NewOpenAIClient(llm.OpenAIConfig{
			Provider:      "ollama",
			BaseURL:       cfg.OllamaBaseURL,
			Model:         cfg.OllamaChatModel,
			HeaderTimeout: cfg.ChatHeaderTimeout,
		}, log),
	}, cfg.ChatProvider)
	if _, err := router.Route(context.Background()); err != nil {
		return nil, err
	}
	return router, nil
}

func openDatabase(path string, log logrus.FieldLogger) (*sql.DB, error) {
	db, err := sqlite.NewDB(path)
	if err != nil {
		return nil, err
	}
	applied, err := sqlite.MigrateUp(context.Background(), db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(applied) > 0 {
		log.WithField("migrations", applied).Info("database migrated")
	}
	return db, nil
}
