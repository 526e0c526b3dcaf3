package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/waabox/shipwatch/internal/config"
	"github.com/waabox/shipwatch/internal/deploy"
	"github.com/waabox/shipwatch/internal/domain"
	"github.com/waabox/shipwatch/internal/logger"
	"github.com/waabox/shipwatch/internal/metrics"
	"github.com/waabox/shipwatch/internal/provider"
	amplifyprovider "github.com/waabox/shipwatch/internal/provider/amplify"
	"github.com/waabox/shipwatch/internal/release"
	"github.com/waabox/shipwatch/internal/tui"
)

// newDeployer wires providers, metrics and poll settings into a release.Deployer.
func newDeployer(ctx context.Context, cfg config.Config, log *slog.Logger, rec *metrics.Recorder, extra ...deploy.Option) (release.DeployFunc, error) {
	amp, err := amplifyprovider.NewFromEnvironment(ctx, cfg.Amplify.Region)
	if err != nil {
		return nil, err
	}
	registry := provider.NewRegistry()
	registry.Register("amplify", provider.NewInstrumentedProvider(amp, rec))

	opts := []deploy.Option{
		deploy.WithInterval(cfg.PollIntervalOrDefault()),
		deploy.WithMaxPolls(cfg.MaxPollsOrDefault()),
		deploy.WithObserver(func(ev deploy.Event) {
			if ev.Result == nil {
				rec.ObservePoll(ev.Target.Name, ev.Status)
			}
		}),
	}
	opts = append(opts, extra...)

	return func(ctx context.Context, target domain.Target, commit domain.Commit) domain.DeployResult {
		p, err := registry.ForTarget(target)
		if err != nil {
			log.Error("cannot deploy target", "target", target.Name, "known", registry.Kinds(), "error", err)
			return domain.DeployResult{TargetID: target.ID, TargetName: target.Name, Status: domain.DeployFailure}
		}
		return deploy.New(p, log, opts...).Deploy(ctx, target, commit)
	}, nil
}

// selectTargets narrows the configured targets to id, when given.
func selectTargets(cfg config.Config, id string) ([]domain.Target, error) {
	targets := cfg.DomainTargets()
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets configured: add a [[targets]] entry to the config")
	}
	if id == "" {
		return targets, nil
	}
	for _, t := range targets {
		if t.ID == id || t.Name == id {
			return []domain.Target{t}, nil
		}
	}
	return nil, fmt.Errorf("unknown target %q", id)
}

func runDeploy(ctx context.Context, g globals, args []string) error {
	fs := flag.NewFlagSet("deploy", flag.ContinueOnError)
	targetID := fs.String("target", "", "deploy only this target (id or name)")
	commitID := fs.String("commit", "", "commit id to deploy")
	reason := fs.String("reason", "", "job reason, usually the commit title")
	useTUI := fs.Bool("tui", false, "show a live view of the deployments")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	targets, err := selectTargets(cfg, *targetID)
	if err != nil {
		return err
	}
	commit := domain.Commit{ID: *commitID, Title: *reason}

	log := newLogger(g)
	if *useTUI {
		// The TUI owns the terminal.
		log = logger.Discard()
	}
	rec := metrics.New()
	defer pushMetrics(ctx, cfg, rec, log)

	var results []domain.DeployResult
	if *useTUI {
		results, err = deployWithView(ctx, cfg, log, rec, targets, commit)
		if err != nil {
			return err
		}
	} else {
		deployer, err := newDeployer(ctx, cfg, log, rec)
		if err != nil {
			return err
		}
		for _, t := range targets {
			res := deployer.Deploy(ctx, t, commit)
			rec.ObserveDeploy(res)
			results = append(results, res)
		}
	}

	printResults(results)
	for _, r := range results {
		if !r.Succeeded() {
			return errReported
		}
	}
	return nil
}

// deployWithView runs the deployments in the background while the TUI shows their progress.
// Quitting the view cancels the deployments still in flight.
func deployWithView(ctx context.Context, cfg config.Config, log *slog.Logger, rec *metrics.Recorder, targets []domain.Target, commit domain.Commit) ([]domain.DeployResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan deploy.Event, 16)
	deployer, err := newDeployer(ctx, cfg, log, rec, deploy.WithObserver(func(ev deploy.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}))
	if err != nil {
		return nil, err
	}

	var results []domain.DeployResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(events)
		for _, t := range targets {
			res := deployer.Deploy(ctx, t, commit)
			rec.ObserveDeploy(res)
			results = append(results, res)
		}
	}()

	title := fmt.Sprintf("deploying %d target(s)", len(targets))
	if commit.Title != "" {
		title = commit.Title
	}
	viewErr := tui.Run(title, targets, events)
	cancel()
	<-done
	return results, viewErr
}

func printResults(results []domain.DeployResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tJOB\tRESULT\tURL")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.TargetName, orDash(r.JobID), r.Status, orDash(r.URL))
	}
	w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
