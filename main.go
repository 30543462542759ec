package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/reblog/auth"
	"github.com/deemkeen/reblog/client"
	"github.com/deemkeen/reblog/db"
	"github.com/deemkeen/reblog/db/mongostore"
	"github.com/deemkeen/reblog/events"
	"github.com/deemkeen/reblog/feed"
	"github.com/deemkeen/reblog/localstore"
	"github.com/deemkeen/reblog/media"
	"github.com/deemkeen/reblog/session"
	"github.com/deemkeen/reblog/socialcache"
	"github.com/deemkeen/reblog/tumblr"
	"github.com/deemkeen/reblog/ui"
	"github.com/deemkeen/reblog/util"
	"github.com/deemkeen/reblog/web"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v3"
)

const (
	tuiLogFile  = "reblog-tui.log"
	tuiStateDir = "state"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to config.yaml (default: ./config.yaml, then ~/.config/reblog/config.yaml)",
	Sources: cli.EnvVars("REBLOG_CONFIG"),
}

var logLevelFlag = &cli.StringFlag{
	Name:    "log-level",
	Aliases: []string{"l"},
	Usage:   "The level of the logs, overrides the config file",
	Validator: func(value string) error {
		if !slices.Contains(validLogLevels, value) {
			return fmt.Errorf("invalid log level: %s, allowed values are: %s", value, validLogLevels)
		}
		return nil
	},
}

var app = &cli.Command{
	Name:    util.Name,
	Usage:   "A small social blogging server with a terminal client",
	Version: util.GetVersion(),
	Flags: []cli.Flag{
		configFlag,
		logLevelFlag,
	},
	Commands: []*cli.Command{
		serveCmd,
		migrateCmd,
		tuiCmd,
	},
}

var serveCmd = &cli.Command{
	Name:   "serve",
	Usage:  "Run the HTTP API",
	Action: serve,
}

var migrateCmd = &cli.Command{
	Name:   "migrate",
	Usage:  "Apply database migrations and exit",
	Action: migrate,
}

var tuiCmd = &cli.Command{
	Name:   "tui",
	Usage:  "Run the terminal client",
	Action: runTui,
}

func main() {
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConf(c *cli.Command) (*util.AppConfig, error) {
	conf, err := util.ReadConfFrom(c.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if level := c.String(logLevelFlag.Name); level != "" {
		conf.Conf.LogLevel = level
	}
	return conf, nil
}

func openStore(ctx context.Context, conf *util.AppConfig) (db.Store, error) {
	switch conf.Conf.StoreDriver {
	case "", "sqlite":
		return db.Open(util.ResolveFilePath(conf.Conf.DbPath))
	case "mongo":
		return mongostore.Open(ctx, conf.Conf.MongoUri, conf.Conf.MongoDatabase)
	}
	return nil, fmt.Errorf("unknown store driver %q", conf.Conf.StoreDriver)
}

func serve(ctx context.Context, c *cli.Command) error {
	conf, err := loadConf(c)
	if err != nil {
		return err
	}
	if err := util.InitLogger(conf.Conf.LogLevel); err != nil {
		return err
	}
	slog.Debug("configuration", slog.String("conf", util.PrettyPrint(conf)))

	store, err := openStore(ctx, conf)
	if err != nil {
		return err
	}
	defer store.Close()

	var external feed.ExternalSource
	if conf.Conf.TumblrApiKey != "" {
		tc := tumblr.New(tumblr.Config{
			BaseURL:  conf.Conf.TumblrBaseUrl,
			ApiKey:   conf.Conf.TumblrApiKey,
			Timeout:  conf.Conf.ExternalTimeout,
			CacheTtl: conf.Conf.ExternalCacheTtl,
		})
		defer tc.Close()
		external = tc
	} else {
		slog.Warn("no tumblr api key configured, feeds will only hold local posts")
	}

	uploadDir := util.ResolveFilePath(conf.Conf.UploadDir)
	uploads, err := media.NewDiskStorage(uploadDir, conf.Conf.PublicUrl)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.Nop{}
	if conf.Conf.NatsUrl != "" {
		np, err := events.Connect(conf.Conf.NatsUrl)
		if err != nil {
			slog.Warn("events disabled, could not connect to nats", slog.Any("error", err))
		} else {
			defer np.Close()
			publisher = np
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return web.Serve(ctx, conf, web.Deps{
		Store:     store,
		Auth:      auth.New(store, conf.Conf.JwtSecret, conf.Conf.TokenTtl),
		Tumblr:    external,
		Media:     uploads,
		UploadDir: uploadDir,
		Events:    publisher,
	})
}

func migrate(ctx context.Context, c *cli.Command) error {
	conf, err := loadConf(c)
	if err != nil {
		return err
	}
	if err := util.InitLogger(conf.Conf.LogLevel); err != nil {
		return err
	}
	if conf.Conf.StoreDriver == "mongo" {
		slog.Info("mongo needs no migrations")
		return nil
	}

	database, err := db.Open(util.ResolveFilePath(conf.Conf.DbPath))
	if err != nil {
		return err
	}
	defer database.Close()

	version, err := database.SchemaVersion()
	if err != nil {
		return err
	}
	slog.Info("database migrations complete", slog.Int("version", version))
	return nil
}

func runTui(ctx context.Context, c *cli.Command) error {
	conf, err := loadConf(c)
	if err != nil {
		return err
	}

	configDir, err := util.GetConfigDir()
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(configDir, tuiLogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	if err := util.InitLoggerTo(logFile, conf.Conf.LogLevel); err != nil {
		return err
	}

	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())

	stateDir, err := util.StateDir(tuiStateDir)
	if err != nil {
		return err
	}
	storage, err := localstore.NewFileStorage(stateDir)
	if err != nil {
		return err
	}

	api := client.New(conf.Conf.ApiUrl, client.DefaultTimeout)
	defer api.Close()

	model := ui.NewModel(ui.Options{
		API:     api,
		Session: session.NewManager(storage, api),
		Cache: socialcache.New(storage, socialcache.Config{
			MaxEntries: conf.Conf.CacheMaxEntries,
			MaxAge:     conf.Conf.CacheMaxAge,
		}),
		DefaultBlog:     conf.Conf.TumblrDefaultBlog,
		ExternalTimeout: conf.Conf.ExternalTimeout,
	}, 80, 24)

	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
