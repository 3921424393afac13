package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/discutex/discutex/internal/client"
	"github.com/discutex/discutex/internal/config"
	"github.com/discutex/discutex/internal/nav"
	"github.com/discutex/discutex/internal/observability"
	"github.com/discutex/discutex/internal/session"
	"github.com/discutex/discutex/internal/store/sqlite"
	"github.com/discutex/discutex/internal/views"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "discutex",
		Usage:   "Discussion forum client and web frontend",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "api",
				Usage: "API base URL (overrides DISCUTEX_API_BASE_URL)",
			},
			&cli.StringFlag{
				Name:    "home",
				Usage:   "directory holding the local session database",
				EnvVars: []string{"DISCUTEX_HOME"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			loginCommand(),
			registerCommand(),
			logoutCommand(),
			whoamiCommand(),
			profileCommand(),
			deleteAccountCommand(),
			threadsCommand(),
			myThreadsCommand(),
			threadCommand(),
			groupCommand(),
			respondCommand(),
			voteCommand(),
			usersCommand(),
			rateCommand(),
			roleCommand(),
			notificationsCommand(),
		},
	}
}

// env is what a client command needs: the persisted session and the
// dependencies every view takes.
type env struct {
	cfg     *config.Config
	out     io.Writer
	backend *sqlite.Store
	sess    *session.Session
	nav     *nav.Recorder
	deps    views.Deps
}

func openEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if api := c.String("api"); api != "" {
		cfg.APIBaseURL = api
	}

	level := "warn"
	if c.Bool("verbose") {
		level = "debug"
	}
	logger := observability.NewLogger(c.App.ErrWriter, "development", level)

	dir := c.String("home")
	if dir == "" {
		dir = discutexDir()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	backend, err := sqlite.Open(filepath.Join(dir, "session.db"))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	sess := session.New(backend, session.DefaultKey)
	rec := &nav.Recorder{}
	return &env{
		cfg:     cfg,
		out:     c.App.Writer,
		backend: backend,
		sess:    sess,
		nav:     rec,
		deps: views.Deps{
			API:               client.New(cfg.APIBaseURL, sess, client.WithTimeout(cfg.HTTPTimeout)),
			Session:           sess,
			Nav:               rec,
			Logger:            logger,
			EnrichConcurrency: cfg.EnrichConcurrency,
		},
	}, nil
}

func (e *env) Close() {
	_ = e.backend.Close()
}

func withEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := openEnv(c)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(c, e)
	}
}

// exitError turns a view error into the message the user sees.
func exitError(err error) error {
	var f *views.Failure
	if errors.As(err, &f) {
		return cli.Exit(f.Text, 1)
	}
	return cli.Exit(client.Message(err, "Something went wrong."), 1)
}

func discutexDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".discutex")
}
