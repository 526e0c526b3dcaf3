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
	"time"

	"github.com/waabox/shipwatch/internal/config"
	"github.com/waabox/shipwatch/internal/logger"
	"github.com/waabox/shipwatch/internal/metrics"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

const usage = `usage: shipwatch [-config path] [-log-format text|json] [-debug] <command> [flags]

commands:
  deploy     deploy the configured targets and wait for them to finish
  release    post, deploy and finalize a release notification
  init       write a starter config file
  supervise  (internal) watch a release process and finalize its notification
`

// globals are the flags shared by every command.
type globals struct {
	configPath string
	logFormat  string
	debug      bool
}

func (g globals) level() slog.Level {
	if g.debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func main() {
	var g globals
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.StringVar(&g.configPath, "config", config.DefaultConfigPath(), "path to the config file")
	flag.StringVar(&g.logFormat, "log-format", "text", "log format: text or json")
	flag.BoolVar(&g.debug, "debug", false, "enable debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if *versionFlag {
		fmt.Println("shipwatch", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// The supervisor must keep running through SIGINT/SIGTERM to finalize the message,
	// so it installs its own handlers instead of a cancelling context.
	if args[0] == "supervise" {
		os.Exit(runSupervise(g, args[1:]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[0] {
	case "deploy":
		err = runDeploy(ctx, g, args[1:])
	case "release":
		err = runRelease(ctx, g, args[1:])
	case "init":
		err = runInit(g, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", args[0], usage)
		os.Exit(2)
	}
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "shipwatch: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

// errReported marks failures that were already logged in detail.
var errReported = errors.New("failed")

func loadConfig(g globals) (config.Config, error) {
	cfg, err := config.LoadFrom(g.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(g globals) *slog.Logger {
	// stdout is kept for command output.
	return logger.New(os.Stderr, "shipwatch", g.logFormat, g.level())
}

// pushMetrics sends collected metrics when a Pushgateway is configured.
// The push outlives ctx cancellation so an interrupted run still reports.
func pushMetrics(ctx context.Context, cfg config.Config, rec *metrics.Recorder, log *slog.Logger) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := rec.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.MetricsJobOrDefault()); err != nil {
		log.Warn("could not push metrics", "url", cfg.Metrics.PushgatewayURL, "error", err)
	}
}

func runInit(g globals, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.Bool("force", false, "overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(g.configPath); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", g.configPath)
	}
	if err := config.Save(g.configPath, config.Default()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Config written to %s\n", g.configPath)
	return nil
}
