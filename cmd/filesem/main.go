package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/richinsley/filesem"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var logger *zap.Logger

func defaultSemaphorePath() string {
	return filepath.Join(os.TempDir(), "filesem.sem")
}

// loadConfig merges configuration sources, lowest to highest precedence:
// defaults, YAML config file, environment variables, CLI flags.
func loadConfig(ctx *cli.Context) (filesem.Config, error) {
	cfg := filesem.DefaultConfig()

	if path := ctx.String("config"); path != "" {
		var err error
		if cfg, err = filesem.LoadConfigFile(path); err != nil {
			return filesem.Config{}, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return filesem.Config{}, err
	}
	if ctx.IsSet("file") || cfg.SemaphoreFile == "" {
		cfg.SemaphoreFile = ctx.String("file")
	}
	if ctx.IsSet("max") {
		cfg.MaxConcurrentJobs = ctx.Int("max")
	}
	if ctx.IsSet("interval") {
		cfg.RetryInterval = ctx.Duration("interval")
	}
	if ctx.IsSet("timeout") {
		cfg.AcquireTimeout = ctx.Duration("timeout")
	}

	if err := cfg.Validate(); err != nil {
		return filesem.Config{}, err
	}
	return cfg, nil
}

func runAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.Exit("no workload command given; usage: filesem run [flags] -- <command> [args...]", 2)
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	sem, err := filesem.New(cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	args := ctx.Args().Slice()
	sem.Store().SetLabel(filepath.Base(args[0]))

	// An interrupt during polling cancels the wait and exits without
	// touching the counter; nothing was acquired yet.
	acquireCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.AcquireTimeout > 0 {
		acquireCtx, cancel = context.WithTimeout(acquireCtx, cfg.AcquireTimeout)
		defer cancel()
	}

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigC)
	go func() {
		<-sigC
		cancel()
	}()

	logger.Debug("waiting for slot",
		zap.String("file", cfg.SemaphoreFile),
		zap.Int("max", cfg.MaxConcurrentJobs))

	guard, err := sem.AcquireContext(acquireCtx)
	if err != nil {
		if acquireCtx.Err() != nil {
			return cli.Exit(fmt.Sprintf("gave up waiting for slot: %v", acquireCtx.Err()), 1)
		}
		return cli.Exit(fmt.Sprintf("acquiring slot: %v", err), 1)
	}
	// From here on the slot is returned on every exit path. The guard is
	// latched, so the explicit release below and this defer cannot
	// double-decrement.
	defer guard.Release()

	w := filesem.NewWorkload(args[0], args[1:], logger)
	code, err := w.Run()

	if rerr := guard.Release(); rerr != nil {
		logger.Warn("releasing slot", zap.Error(rerr))
	}

	if err != nil {
		return cli.Exit(fmt.Sprintf("workload: %v", err), 1)
	}
	if code != 0 {
		return cli.Exit("", code)
	}
	return nil
}

func statusAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	store := filesem.NewStore(cfg.SemaphoreFile, logger)
	count, err := store.Peek()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	holders, err := store.Holders()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Printf("%s: %d/%d slots in use\n", cfg.SemaphoreFile, count, cfg.MaxConcurrentJobs)
	for _, h := range holders {
		mark := ""
		if h.Stale() {
			mark = " [stale]"
		}
		label := h.Label
		if label == "" {
			label = "-"
		}
		fmt.Printf("  pid %-8d host %-20s %-20s since %s%s\n",
			h.PID, h.Host, label, h.AcquiredAt.Format(time.RFC3339), mark)
	}
	return nil
}

func repairAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	store := filesem.NewStore(cfg.SemaphoreFile, logger)
	removed, err := store.Repair()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Printf("reclaimed %d leaked slot(s)\n", removed)
	return nil
}

var semFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "path of the shared semaphore counter file",
		Value:   defaultSemaphorePath(),
	},
	&cli.IntFlag{
		Name:    "max",
		Aliases: []string{"n"},
		Usage:   "maximum number of simultaneous slot holders",
	},
	&cli.DurationFlag{
		Name:    "interval",
		Aliases: []string{"i"},
		Usage:   "fixed delay between failed acquire attempts",
	},
	&cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Usage:   "give up waiting for a slot after this long (0 waits forever)",
	},
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML configuration file",
	},
}

var app = &cli.App{
	Name:        "filesem",
	Usage:       "Limit how many processes run a workload at once.",
	Description: "A file-backed counting semaphore for processes sharing a filesystem",
	Before: func(ctx *cli.Context) error {
		logger = filesem.NewLogger(ctx.Bool("debug"))
		return nil
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "enable debug logging output for troubleshooting and development",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "run",
			Usage:     "acquire a slot, run the workload, release the slot",
			ArgsUsage: "-- <command> [args...]",
			Flags:     semFlags,
			Action:    runAction,
		},
		{
			Name:   "status",
			Usage:  "print the counter value and current slot holders",
			Flags:  semFlags,
			Action: statusAction,
		},
		{
			Name:   "repair",
			Usage:  "reclaim slots leaked by holders that died without releasing",
			Flags:  semFlags,
			Action: repairAction,
		},
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
