// Package cmd implements the kanban command line.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/kanban-go/internal/config"
	"github.com/nibzard/kanban-go/internal/kv"
	"github.com/nibzard/kanban-go/internal/logging"
	"github.com/nibzard/kanban-go/internal/metrics"
	"github.com/nibzard/kanban-go/internal/persist"
	"github.com/nibzard/kanban-go/internal/store"
)

// Version is set via ldflags at build time.
var Version = "dev"

// errUsage marks errors caused by bad arguments.
var errUsage = errors.New("usage")

// Run executes the kanban CLI.
func Run(ctx context.Context, args []string) error {
	c := &cli{out: os.Stdout, errOut: os.Stderr}
	err := c.run(ctx, args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

// cli carries the process streams and config loader so tests can swap them.
type cli struct {
	out    io.Writer
	errOut io.Writer
	loader config.Loader
}

func (c *cli) run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("kanban", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	fs.Usage = func() {
		c.printUsage(fs, c.errOut)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cfg, err := c.loader.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		c.printUsage(fs, c.out)
		return nil
	}
	if *showVersion {
		return c.versionCommand()
	}

	subcommand := "ls"
	remaining := fs.Args()
	if len(remaining) > 0 {
		subcommand = remaining[0]
		remaining = remaining[1:]
	}

	switch subcommand {
	case "add":
		return c.withApp(ctx, cfg, func(a *app) error { return c.addCommand(a, remaining) })
	case "update", "edit":
		return c.withApp(ctx, cfg, func(a *app) error { return c.updateCommand(a, remaining) })
	case "move", "mv":
		return c.withApp(ctx, cfg, func(a *app) error { return c.moveCommand(a, remaining) })
	case "rm", "delete":
		return c.withApp(ctx, cfg, func(a *app) error { return c.rmCommand(a, remaining) })
	case "ls", "list":
		return c.withApp(ctx, cfg, func(a *app) error { return c.lsCommand(a, remaining) })
	case "show":
		return c.withApp(ctx, cfg, func(a *app) error { return c.showCommand(a, remaining) })
	case "seed":
		return c.withApp(ctx, cfg, func(a *app) error { return c.seedCommand(a, remaining) })
	case "export":
		return c.withApp(ctx, cfg, func(a *app) error { return c.exportCommand(a, remaining) })
	case "board", "tui":
		return c.withApp(ctx, cfg, func(a *app) error { return c.boardCommand(ctx, a, remaining) })
	case "serve":
		return c.withApp(ctx, cfg, func(a *app) error { return c.serveCommand(ctx, a, remaining) })
	case "config":
		return c.configCommand(cfg, remaining)
	case "version":
		return c.versionCommand()
	case "help":
		c.printUsage(fs, c.out)
		return nil
	default:
		fmt.Fprintf(c.errOut, "Unknown command: %s\n", subcommand)
		c.printUsage(fs, c.errOut)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// app is the per-invocation wiring from config to a loaded store.
type app struct {
	ctx     context.Context
	cfg     *config.Config
	logger  *log.Logger
	runLog  *logging.RunLog
	metrics *metrics.Recorder
	backend kv.Store
	store   *store.Store
	persist *persist.Adapter
}

// withApp opens the configured backend, loads the board, runs fn and
// tears everything down again.
func (c *cli) withApp(ctx context.Context, cfg *config.Config, fn func(*app) error) error {
	a, err := c.openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func (c *cli) openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{ctx: ctx, cfg: cfg, metrics: metrics.New()}

	logOut := c.errOut
	if cfg.LogDir != "" {
		rl, err := logging.OpenRunLog(cfg.LogDir, cfg.ProjectRoot)
		if err != nil {
			return nil, fmt.Errorf("opening run log: %w", err)
		}
		a.runLog = rl
		logOut = io.MultiWriter(c.errOut, rl.Writer())
	}
	a.logger = logging.FromConfig(logOut, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)

	backend, err := kv.Open(ctx, cfg.KVOptions())
	if err != nil {
		a.runLog.Close()
		return nil, fmt.Errorf("opening %s backend: %w", cfg.Backend, err)
	}
	a.backend = backend
	a.logger.Debug("backend opened", "backend", cfg.Backend)

	a.store = store.New(
		store.WithStrictIDs(),
		store.WithLogger(a.logger),
		store.WithMetrics(a.metrics),
	)
	a.persist = persist.New(a.store, backend,
		persist.WithKey(cfg.StorageKey),
		persist.WithLogger(a.logger),
		persist.WithMetrics(a.metrics),
	)
	a.persist.Load(ctx)
	if cfg.AutoSave {
		a.persist.EnableAutoSave()
	}
	return a, nil
}

// commit writes the board when auto-save is off. With auto-save on the
// store change has already been written.
func (a *app) commit() error {
	if !a.persist.AutoSave() {
		a.persist.Save(a.ctx)
	}
	if err := a.persist.LastError(); err != nil {
		return fmt.Errorf("saving board: %w", err)
	}
	return nil
}

func (a *app) close() {
	a.persist.DisableAutoSave()
	a.store.Dispose()
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("closing backend", "err", err)
	}
	a.runLog.Close()
}

// versionCommand prints version information.
func (c *cli) versionCommand() error {
	fmt.Fprintf(c.out, "kanban version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func (c *cli) printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Kanban - a task board for the terminal")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  kanban [global options] [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  add <title>            Add a task")
	fmt.Fprintln(w, "  update <id>            Change fields of a task")
	fmt.Fprintln(w, "  move <id> <status>     Move a task to another column")
	fmt.Fprintln(w, "  rm <id>...             Delete tasks")
	fmt.Fprintln(w, "  ls                     List tasks (default command)")
	fmt.Fprintln(w, "  show <id>              Show one task")
	fmt.Fprintln(w, "  board                  Open the interactive board")
	fmt.Fprintln(w, "  seed                   Fill an empty board with sample tasks")
	fmt.Fprintln(w, "  export                 Write the board as JSON or YAML")
	fmt.Fprintln(w, "  serve                  Serve the health, tasks and metrics endpoints")
	fmt.Fprintln(w, "  config                 Show the effective configuration")
	fmt.Fprintln(w, "  version                Show version information")
	fmt.Fprintln(w, "  help                   Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(c.errOut)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Statuses: todo, in-progress, done. Priorities: high, medium, low.")
	fmt.Fprintln(w, "Run 'kanban <command> -h' for command options.")
}

// IsUsageError reports whether err was caused by bad arguments.
func IsUsageError(err error) bool {
	return errors.Is(err, errUsage)
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func newFlagSet(c *cli, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("kanban "+name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

// joinArgs builds a title from the remaining arguments.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
