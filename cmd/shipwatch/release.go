package main

import (
	"context"
	"flag"
	"fmt"

	slackchannel "github.com/waabox/shipwatch/internal/channel/slack"
	"github.com/waabox/shipwatch/internal/metrics"
	"github.com/waabox/shipwatch/internal/release"
	"github.com/waabox/shipwatch/internal/supervisor"
)

func runRelease(ctx context.Context, g globals, args []string) error {
	fs := flag.NewFlagSet("release", flag.ContinueOnError)
	inputPath := fs.String("input", "release.yaml", "release description file")
	targetID := fs.String("target", "", "deploy only this target (id or name)")
	noSupervisor := fs.Bool("no-supervisor", false, "do not launch the crash supervisor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	in, err := release.LoadInput(*inputPath)
	if err != nil {
		return err
	}
	targets, err := selectTargets(cfg, *targetID)
	if err != nil {
		return err
	}

	log := newLogger(g)
	rec := metrics.New()
	defer pushMetrics(ctx, cfg, rec, log)

	deployer, err := newDeployer(ctx, cfg, log, rec)
	if err != nil {
		return err
	}

	var launch release.LaunchFunc
	if !*noSupervisor {
		launcher := &supervisor.Launcher{
			Args:   []string{"-log-format", g.logFormat, "supervise", "-probe", cfg.ProbeIntervalOrDefault().String()},
			Logger: log,
		}
		launch = func(h supervisor.Handoff) (release.Stopper, error) {
			handle, err := launcher.Launch(h)
			if err != nil {
				return nil, err
			}
			return handle, nil
		}
	}

	channel := slackchannel.New(cfg.Slack.Token, cfg.Slack.APIURL)
	session := release.NewSession(in, cfg.CIContext(), channel, launch, release.Options{
		ChannelID:      cfg.Slack.ChannelID,
		Identity:       cfg.Identity(),
		Token:          cfg.Slack.Token,
		SlackAPIURL:    cfg.Slack.APIURL,
		DismissTimeout: cfg.DismissTimeoutOrDefault(),
	}, log, rec)

	if err := session.Run(ctx, deployer, targets); err != nil {
		return fmt.Errorf("release %s v%s: %w", in.PackageName, in.Version, err)
	}
	log.Info("release complete", "package", in.PackageName, "version", in.Version, "links", len(session.Info().Releases))
	return nil
}
