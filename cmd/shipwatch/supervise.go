package main

import (
	"context"
	"flag"
	"os"
	"time"

	slackchannel "github.com/waabox/shipwatch/internal/channel/slack"
	"github.com/waabox/shipwatch/internal/logger"
	"github.com/waabox/shipwatch/internal/supervisor"
)

// runSupervise is the body of the detached supervisor process. It always
// exits 0: its stdio is gone, so everything worth knowing goes to its log file.
func runSupervise(g globals, args []string) int {
	fs := flag.NewFlagSet("supervise", flag.ContinueOnError)
	id := fs.String("id", "", "handoff id, for identification in the process list")
	probe := fs.Duration("probe", supervisor.DefaultProbeInterval, "parent liveness probe interval")
	if err := fs.Parse(args); err != nil {
		return 0
	}

	logFile, err := os.OpenFile(supervisor.LogPath(*id), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		logFile = os.Stderr
	} else {
		defer logFile.Close()
	}
	log := logger.New(logFile, "shipwatch-supervisor", g.logFormat, g.level())

	h, err := supervisor.HandoffFromEnv()
	if err != nil {
		log.Error("cannot supervise release", "handoff_id", *id, "error", err)
		return 0
	}
	if *id != "" && h.ID != *id {
		log.Warn("handoff id does not match argument", "handoff_id", h.ID, "arg", *id)
	}

	channel := slackchannel.New(h.Token, h.SlackAPIURL)
	w := supervisor.NewWatcher(h, channel, func() bool { return supervisor.ParentAlive(h.ParentPID) }, *probe, log)

	start := time.Now()
	outcome := supervisor.Supervise(context.Background(), w)
	log.Info("supervisor done",
		"handoff_id", h.ID,
		"package", h.PackageName,
		"reason", string(outcome.Reason),
		"updated", outcome.Updated,
		"uptime", time.Since(start).Round(time.Second))
	return 0
}
