// Command devapi serves an in-memory Discutex API filled with fake data,
// for working on the frontend without the real backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/discutex/discutex/internal/apitest"
	"github.com/discutex/discutex/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "devapi",
		Usage: "Run a seeded fake of the Discutex API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8000", EnvVars: []string{"DEVAPI_ADDR"}},
			&cli.IntFlag{Name: "users", Value: 8},
			&cli.IntFlag{Name: "threads", Value: 2, Usage: "threads per user"},
			&cli.IntFlag{Name: "responses", Value: 4, Usage: "responses per thread"},
			&cli.Int64Flag{Name: "seed", Usage: "fixed seed for reproducible data"},
			&cli.BoolFlag{Name: "embed-authors", Usage: "inline authors in response lists"},
		},
		Action: run,
	}
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := observability.NewLogger(os.Stdout, "development", "info")

	api := apitest.New()
	api.EmbedAuthors(c.Bool("embed-authors"))
	seeded := api.Seed(apitest.SeedOptions{
		Users:              c.Int("users"),
		ThreadsPerUser:     c.Int("threads"),
		ResponsesPerThread: c.Int("responses"),
		Seed:               c.Int64("seed"),
	})
	logger.Info("seeded fake API",
		"users", len(seeded.Users)+1,
		"threads", api.ThreadCount(),
		"admin_email", apitest.SeedAdminEmail,
		"admin_password", apitest.SeedAdminPassword,
	)
	for _, u := range seeded.Users {
		logger.Info("seeded user", "email", u.Email, "password", apitest.SeedUserPassword)
	}

	srv := &http.Server{
		Addr:              c.String("addr"),
		Handler:           api,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("devapi listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-c.Context.Done():
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
