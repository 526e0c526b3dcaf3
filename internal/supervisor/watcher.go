package supervisor

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/waabox/shipwatch/internal/domain"
)

const (
	// DefaultProbeInterval is the wait between two parent liveness probes.
	DefaultProbeInterval = 2 * time.Second
	// finalizeTimeout bounds the single update issued while finalizing.
	finalizeTimeout = 15 * time.Second
)

// State is a step of the supervisor lifecycle.
type State int

const (
	StateStarting State = iota
	StateWatching
	StateFinalizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StateWatching:
		return "WATCHING"
	case StateFinalizing:
		return "FINALIZING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Reason says why the watcher stopped watching.
type Reason string

const (
	ReasonParentGone Reason = "parent_gone"
	ReasonSignal     Reason = "signal"
	ReasonDismissed  Reason = "dismissed"
)

// Outcome summarizes a finished watch.
type Outcome struct {
	Reason  Reason
	Updated bool
	Err     error
}

// Updater is the part of domain.Channel the supervisor needs.
type Updater interface {
	Update(ctx context.Context, channelID, handle string, payload domain.MessagePayload, identity domain.Identity) error
}

// Watcher runs the STARTING -> WATCHING -> FINALIZING -> DONE state machine.
type Watcher struct {
	handoff  Handoff
	updater  Updater
	alive    func() bool
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// NewWatcher creates a Watcher for h. alive reports whether the parent still exists.
// A non-positive interval falls back to DefaultProbeInterval.
func NewWatcher(h Handoff, updater Updater, alive func() bool, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Watcher{
		handoff:  h,
		updater:  updater,
		alive:    alive,
		interval: interval,
		logger:   logger.With("handoff_id", h.ID, "channel", h.ChannelID, "ts", h.MessageHandle),
		state:    StateStarting,
	}
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
	w.logger.Debug("supervisor state", "state", s.String())
}

// Run watches the parent until one of three things happens:
// ctx is done (dismissed, no update), a value arrives on terminate, or the
// liveness probe fails. The last two issue exactly one update with the
// failure payload. Run always ends in StateDone.
func (w *Watcher) Run(ctx context.Context, terminate <-chan os.Signal) Outcome {
	w.setState(StateWatching)
	w.logger.Info("watching release process", "parent_pid", w.handoff.ParentPID, "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return w.dismiss()
		case sig := <-terminate:
			w.logger.Warn("termination requested", "signal", sig.String())
			return w.finalize(ReasonSignal)
		case <-ticker.C:
			if ctx.Err() != nil {
				return w.dismiss()
			}
			if !w.alive() {
				w.logger.Warn("release process is gone", "parent_pid", w.handoff.ParentPID)
				return w.finalize(ReasonParentGone)
			}
		}
	}
}

func (w *Watcher) dismiss() Outcome {
	w.logger.Info("dismissed by release process, leaving message as is")
	w.setState(StateDone)
	return Outcome{Reason: ReasonDismissed}
}

func (w *Watcher) finalize(reason Reason) Outcome {
	w.setState(StateFinalizing)

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()
	err := w.updater.Update(ctx, w.handoff.ChannelID, w.handoff.MessageHandle, w.handoff.Payload, w.handoff.Identity)
	if err != nil {
		w.logger.Error("could not mark release as failed", "reason", string(reason), "error", err)
	} else {
		w.logger.Info("release marked as failed", "reason", string(reason))
	}

	w.setState(StateDone)
	return Outcome{Reason: reason, Updated: err == nil, Err: err}
}
