// Package release runs one release end to end: it posts the pending
// notification, hands the failure payload to a crash supervisor, deploys the
// targets and finalizes the notification exactly once.
package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/waabox/shipwatch/internal/domain"
	"github.com/waabox/shipwatch/internal/notify"
	"github.com/waabox/shipwatch/internal/supervisor"
)

// DefaultDismissTimeout bounds how long Succeed and Fail wait for the supervisor to exit.
const DefaultDismissTimeout = 5 * time.Second

// ErrDeployFailed is returned by Publish when a target did not deploy.
var ErrDeployFailed = errors.New("deployment failed")

// Stopper dismisses a running supervisor.
type Stopper interface {
	Dismiss(timeout time.Duration) error
}

// LaunchFunc starts a supervisor holding h. Implementations must return a nil
// interface, not a typed nil, when they fail.
type LaunchFunc func(h supervisor.Handoff) (Stopper, error)

// Deployer deploys one target and reports the result.
type Deployer interface {
	Deploy(ctx context.Context, target domain.Target, commit domain.Commit) domain.DeployResult
}

// DeployFunc adapts a function to Deployer.
type DeployFunc func(ctx context.Context, target domain.Target, commit domain.Commit) domain.DeployResult

func (f DeployFunc) Deploy(ctx context.Context, target domain.Target, commit domain.Commit) domain.DeployResult {
	return f(ctx, target, commit)
}

// Recorder receives notification and deployment outcomes.
type Recorder interface {
	ObserveNotification(op string, err error)
	ObserveDeploy(res domain.DeployResult)
}

// Options carries the channel coordinates and credentials of a session.
type Options struct {
	ChannelID string
	Identity  domain.Identity
	// Token and SlackAPIURL are handed to the supervisor so it can update the message on its own.
	Token          string
	SlackAPIURL    string
	DismissTimeout time.Duration
}

// Session holds the state of one release. It replaces process-wide client,
// channel and message variables: build one per release and pass it around.
type Session struct {
	info     domain.ReleaseInfo
	commit   domain.Commit
	channel  domain.Channel
	launch   LaunchFunc
	opts     Options
	logger   *slog.Logger
	recorder Recorder

	mu         sync.Mutex
	state      domain.NotificationState
	supervisor Stopper
	finalized  bool
}

// NewSession creates a Session. launch and recorder may be nil.
func NewSession(in Input, ci domain.CIContext, channel domain.Channel, launch LaunchFunc, opts Options, logger *slog.Logger, recorder Recorder) *Session {
	if opts.DismissTimeout <= 0 {
		opts.DismissTimeout = DefaultDismissTimeout
	}
	return &Session{
		info:     in.Info(ci),
		commit:   in.Commit,
		channel:  channel,
		launch:   launch,
		opts:     opts,
		logger:   logger.With("package", in.PackageName, "version", in.Version),
		recorder: recorder,
		state:    domain.NotificationState{ChannelID: opts.ChannelID},
	}
}

// Info returns the release as it currently stands, including artifacts added by Publish.
func (s *Session) Info() domain.ReleaseInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.info
	info.Releases = append([]domain.ReleaseArtifact(nil), s.info.Releases...)
	return info
}

// State returns the notification state.
func (s *Session) State() domain.NotificationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Prepare posts the pending notification and launches the crash supervisor.
// A returned error is informational: the release should go on without a notification.
func (s *Session) Prepare(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("posting release start notification", "channel", s.opts.ChannelID)
	pending := notify.Render(s.info, domain.PhasePending)
	handle, err := s.channel.Post(ctx, s.opts.ChannelID, pending, s.opts.Identity)
	s.observeNotification("post", err)
	if err != nil {
		s.logger.Error("RELEASE NOTIFICATION NOT POSTED: the channel will not show this release", "channel", s.opts.ChannelID, "error", err)
		return err
	}
	s.state = domain.NotificationState{
		ChannelID:     s.opts.ChannelID,
		MessageHandle: handle,
		Phase:         domain.PhasePending,
		Payload:       pending,
	}
	s.logger.Info("posted release notification", "channel", s.opts.ChannelID, "ts", handle)

	if s.launch == nil {
		return nil
	}
	stopper, err := s.launch(supervisor.Handoff{
		ChannelID:     s.opts.ChannelID,
		MessageHandle: handle,
		Payload:       notify.Render(s.info, domain.PhaseFailure),
		Identity:      s.opts.Identity,
		Token:         s.opts.Token,
		SlackAPIURL:   s.opts.SlackAPIURL,
		PackageName:   s.info.PackageName,
	})
	if err != nil {
		s.logger.Error("crash supervisor not started: a crash would leave the notification pending", "error", err)
		return fmt.Errorf("launching supervisor: %w", err)
	}
	s.supervisor = stopper
	return nil
}

// Publish deploys targets one after another. Each successful deployment is
// added to the release artifacts; the first failure stops the release.
func (s *Session) Publish(ctx context.Context, deployer Deployer, targets []domain.Target) error {
	for _, target := range targets {
		res := deployer.Deploy(ctx, target, s.commit)
		if s.recorder != nil {
			s.recorder.ObserveDeploy(res)
		}
		if !res.Succeeded() {
			return fmt.Errorf("%s (%s): %w", target.Name, target.ID, ErrDeployFailed)
		}
		s.mu.Lock()
		s.info.Releases = append(s.info.Releases, domain.ReleaseArtifact{Name: ArtifactName(target), URL: res.URL})
		s.mu.Unlock()
	}
	return nil
}

// ArtifactName is how a deployed target appears among the release links.
func ArtifactName(target domain.Target) string {
	kind := target.Provider
	if kind == "" || kind == "amplify" {
		kind = "Amplify"
	}
	return fmt.Sprintf("%s (%s)", kind, target.Name)
}

// Succeed marks the release as shipped.
func (s *Session) Succeed(ctx context.Context) {
	s.finish(ctx, domain.PhaseSuccess)
}

// Fail marks the release as failed.
func (s *Session) Fail(ctx context.Context) {
	s.finish(ctx, domain.PhaseFailure)
}

// Run prepares, publishes and finalizes the release. The final update is sent
// even when ctx was cancelled, so an interrupted release still reports failure.
func (s *Session) Run(ctx context.Context, deployer Deployer, targets []domain.Target) error {
	_ = s.Prepare(ctx)

	if err := s.Publish(ctx, deployer, targets); err != nil {
		s.logger.Error("release failed", "error", err)
		s.Fail(context.WithoutCancel(ctx))
		return err
	}
	s.Succeed(context.WithoutCancel(ctx))
	return nil
}

// finish dismisses the supervisor, then updates the message once.
// Later calls are ignored; update errors are logged and swallowed.
func (s *Session) finish(ctx context.Context, phase domain.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		s.logger.Warn("release notification already finalized", "phase", string(s.state.Phase), "ignored", string(phase))
		return
	}
	s.finalized = true

	if s.supervisor != nil {
		if err := s.supervisor.Dismiss(s.opts.DismissTimeout); err != nil {
			s.logger.Warn("crash supervisor did not stand down cleanly", "error", err)
		}
		s.supervisor = nil
	}

	if s.state.MessageHandle == "" {
		s.logger.Error("no release notification to update", "phase", string(phase))
		return
	}

	payload := notify.Render(s.info, phase)
	s.logger.Info("updating release notification", "phase", string(phase), "ts", s.state.MessageHandle)
	err := s.channel.Update(ctx, s.state.ChannelID, s.state.MessageHandle, payload, s.opts.Identity)
	s.observeNotification("update", err)
	if err != nil {
		s.logger.Error("could not update release notification", "phase", string(phase), "error", err)
		return
	}
	s.state.Phase = phase
	s.state.Payload = payload
}

func (s *Session) observeNotification(op string, err error) {
	if s.recorder != nil {
		s.recorder.ObserveNotification(op, err)
	}
}
