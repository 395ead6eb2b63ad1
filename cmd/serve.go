package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/nibzard/kanban-go/internal/server"
	"github.com/nibzard/kanban-go/internal/ui"
)

const shutdownTimeout = 10 * time.Second

// serveCommand runs the HTTP server until SIGINT or SIGTERM.
func (c *cli) serveCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(c, "serve")
	addr := fs.String("addr", a.cfg.HTTPAddr, "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srv := server.New(server.Options{
		Version:     Version,
		Environment: a.cfg.Environment,
		Store:       a.store,
		Metrics:     a.metrics,
		Logger:      a.logger,
	})

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- srv.Listen(*addr)
	}()
	a.logger.Info("server listening", "addr", *addr, "env", a.cfg.Environment)
	fmt.Fprintf(c.out, "Serving on %s (Ctrl+C to stop)\n", *addr)

	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			a.logger.Info("shutting down server")
			return srv.Shutdown(ctx)
		},
		"board": func(ctx context.Context) error {
			a.persist.Save(ctx)
			return a.persist.LastError()
		},
	})

	var code int
	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("listening on %s: %w", *addr, err)
		}
		code = <-wait
	case code = <-wait:
	}
	if code != 0 {
		return fmt.Errorf("shutdown finished with exit code %d", code)
	}
	return nil
}

// boardCommand opens the interactive board.
func (c *cli) boardCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(c, "board")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !ui.IsTTY(c.out) {
		return errors.New("board needs an interactive terminal, use 'kanban ls' instead")
	}
	if err := ui.Run(ctx, a.store); err != nil {
		return err
	}
	return a.commit()
}
