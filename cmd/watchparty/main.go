package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"watchparty/internal/api"
	"watchparty/internal/config"
	"watchparty/internal/logging"
	"watchparty/internal/mockdata"
	"watchparty/internal/settings"
	"watchparty/internal/store"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
)

// CLI defines the command-line interface structure.
var CLI struct {
	// Global flags
	Config   string `help:"Config file path (default ~/.config/watchparty/config.toml)"`
	Mock     bool   `help:"Serve requests from the mock table" xor:"mode"`
	Live     bool   `help:"Talk to the live backend" xor:"mode"`
	APIBase  string `name:"api-base" help:"Backend base URL"`
	WSBase   string `name:"ws-base" help:"Realtime base URL"`
	Store    string `help:"Settings store URL (sqlite:PATH, file:PATH, redis://HOST, memory:)"`
	Token    string `help:"Bearer token (defaults to access_token from the settings store)"`
	Overlay  string `name:"fixtures-file" help:"YAML file overlaid on the built-in mock table" type:"existingfile"`
	LogLevel string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFile  string `name:"log-file" help:"Write logs to a rotating file"`

	// Commands
	Status    StatusCmd    `cmd:"" help:"Show the resolved configuration"`
	Get       GetCmd       `cmd:"" help:"Send a GET request"`
	Post      PostCmd      `cmd:"" help:"Send a POST request"`
	Patch     PatchCmd     `cmd:"" help:"Send a PATCH request"`
	Delete    DeleteCmd    `cmd:"" help:"Send a DELETE request"`
	Fixtures  FixturesCmd  `cmd:"" name:"fixtures" help:"List mock table entries"`
	Login     LoginCmd     `cmd:"" help:"Sign in and store the access token"`
	Dashboard DashboardCmd `cmd:"" help:"Show the dashboard summary"`
	Party     PartyCmd     `cmd:"" help:"List or schedule parties"`
	Listen    ListenCmd    `cmd:"" help:"Connect to a realtime channel and print events"`
	Relay     RelayCmd     `cmd:"" help:"Consume relayed events"`
	Runtime   ConfigCmd    `cmd:"" name:"config" help:"Manage runtime settings"`
}

// App holds shared CLI state.
type App struct {
	ctx    context.Context
	cfg    config.Config
	logger *log.Logger
	table  *mockdata.Table
	token  string

	kv       store.KV
	settings *settings.Store
}

// Settings opens the runtime settings store on first use.
func (a *App) Settings() (*settings.Store, error) {
	if a.settings != nil {
		return a.settings, nil
	}
	kv, err := store.Open(a.cfg.StoreURL)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	a.kv = kv
	a.settings = settings.Open(kv, settings.WithLogger(a.logger))
	return a.settings, nil
}

func (a *App) tokens() api.TokenProvider {
	if a.token != "" {
		return api.StaticToken(a.token)
	}
	return api.TokenFunc(func() (string, bool) {
		s, err := a.Settings()
		if err != nil {
			a.logger.Warn("Settings store unavailable, sending request without token", "error", err)
			return "", false
		}
		return settings.TokenSource{Store: s}.Token()
	})
}

// Client builds the request client for the resolved configuration.
func (a *App) Client() *api.Client {
	return api.NewClient(api.Options{
		Mock:    a.cfg.UseMockData,
		BaseURL: a.cfg.APIBaseURL,
		Table:   a.table,
		Tokens:  a.tokens(),
		Logger:  a.logger,
	})
}

func (a *App) Close() {
	if a.kv != nil {
		_ = a.kv.Close()
	}
}

func resolveConfig() (config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return config.Config{}, err
	}
	switch {
	case CLI.Mock:
		cfg.UseMockData = true
	case CLI.Live:
		cfg.UseMockData = false
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.APIBaseURL, CLI.APIBase)
	override(&cfg.WSBaseURL, CLI.WSBase)
	override(&cfg.StoreURL, CLI.Store)
	override(&cfg.LogLevel, CLI.LogLevel)
	override(&cfg.LogFile, CLI.LogFile)
	return cfg, nil
}

func run(kctx *kong.Context) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closer.Close()
	log.SetDefault(logger)

	table := mockdata.Default()
	if CLI.Overlay != "" {
		table, err = mockdata.LoadOverlayFile(table, CLI.Overlay)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &App{ctx: ctx, cfg: cfg, logger: logger, table: table, token: CLI.Token}
	defer app.Close()

	return kctx.Run(app)
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("watchparty"),
		kong.Description("Client for the WatchTogether API and realtime channels"),
		kong.UsageOnError(),
	)

	if err := run(kctx); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			fmt.Fprintln(os.Stderr, exit.Error())
			os.Exit(exit.code)
		}
		log.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// exitError is returned by commands whose failure was already reported.
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string { return e.msg }

var stdout io.Writer = os.Stdout
