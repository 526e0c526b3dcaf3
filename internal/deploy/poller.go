package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/waabox/shipwatch/internal/domain"
)

const (
	// DefaultInterval is the wait between two status queries.
	DefaultInterval = 15 * time.Second
	// DefaultMaxPolls bounds a poll loop to roughly 30 minutes at DefaultInterval.
	DefaultMaxPolls = 120
)

// Event is emitted for every observed status of a job, and once more with
// Result set when a target's deployment is over.
type Event struct {
	Target  domain.Target
	JobID   string
	Status  domain.JobStatus
	Attempt int
	Result  *domain.DeployResult
}

// Observer receives poller events. It is called synchronously from the poll loop.
type Observer func(Event)

// Poller drives a remote deployment job to a terminal status.
type Poller struct {
	provider  domain.DeploymentProvider
	logger    *slog.Logger
	interval  time.Duration
	maxPolls  int
	observers []Observer
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the wait between status queries. Zero disables the wait (useful in tests).
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithMaxPolls bounds how many status queries a single job may take.
// Zero or negative means unbounded.
func WithMaxPolls(n int) Option {
	return func(p *Poller) { p.maxPolls = n }
}

// WithObserver registers fn to receive events. It may be given more than once.
func WithObserver(fn Observer) Option {
	return func(p *Poller) { p.observers = append(p.observers, fn) }
}

// New creates a Poller for the given provider.
func New(provider domain.DeploymentProvider, logger *slog.Logger, opts ...Option) *Poller {
	p := &Poller{
		provider: provider,
		logger:   logger,
		interval: DefaultInterval,
		maxPolls: DefaultMaxPolls,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StartDeployment submits a deployment job and returns its id.
// It fails with a *domain.StartError when the call errors or yields no job id.
func (p *Poller) StartDeployment(ctx context.Context, targetID, branch, reason, commitID string) (string, error) {
	jobID, err := p.provider.StartJob(ctx, domain.StartRequest{
		TargetID: targetID,
		Branch:   branch,
		Reason:   reason,
		CommitID: commitID,
	})
	if err != nil {
		return "", &domain.StartError{TargetID: targetID, Err: err}
	}
	if jobID == "" {
		return "", &domain.StartError{TargetID: targetID, Err: domain.ErrMissingJobID}
	}
	p.logger.Info("deployment job started", "target", targetID, "branch", branch, "job_id", jobID)
	return jobID, nil
}

// PollUntilTerminal queries the job until it reaches SUCCEED, FAILED or CANCELLED.
// UNKNOWN keeps the loop alive. The loop stops early when ctx is done, when a
// query fails, or when the poll budget runs out (domain.ErrPollBudgetExhausted);
// in all those cases the last observed job is returned alongside the error.
func (p *Poller) PollUntilTerminal(ctx context.Context, targetID, branch, jobID string) (domain.DeploymentJob, error) {
	return p.poll(ctx, domain.Target{ID: targetID, Name: targetID, Branch: branch}, jobID)
}

func (p *Poller) poll(ctx context.Context, target domain.Target, jobID string) (domain.DeploymentJob, error) {
	job := domain.DeploymentJob{
		TargetID:   target.ID,
		BranchName: target.Branch,
		JobID:      jobID,
		Status:     domain.JobPending,
	}
	for attempt := 1; ; attempt++ {
		status, err := p.provider.GetJob(ctx, target.ID, target.Branch, jobID)
		if err != nil {
			return job, fmt.Errorf("querying job %s: %w", jobID, err)
		}
		job.Status = status
		p.logger.Info("current deployment status",
			"target", target.Name, "job_id", jobID, "status", status, "attempt", attempt)
		p.emit(Event{Target: target, JobID: jobID, Status: status, Attempt: attempt})

		if status.Terminal() {
			return job, nil
		}
		if p.maxPolls > 0 && attempt >= p.maxPolls {
			return job, fmt.Errorf("job %s still %s after %d queries: %w", jobID, status, attempt, domain.ErrPollBudgetExhausted)
		}
		if err := p.wait(ctx); err != nil {
			return job, err
		}
	}
}

func (p *Poller) wait(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(p.interval):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deploy starts a deployment for target and polls it to completion.
// It never returns an error: every failure is logged and reported as a
// DeployResult with status failure.
func (p *Poller) Deploy(ctx context.Context, target domain.Target, commit domain.Commit) domain.DeployResult {
	p.logger.Info("deploying", "target", target.Name, "target_id", target.ID, "branch", target.Branch)
	result := domain.DeployResult{
		TargetID:   target.ID,
		TargetName: target.Name,
		Status:     domain.DeployFailure,
	}
	defer func() { p.emit(Event{Target: target, JobID: result.JobID, Result: &result}) }()

	jobID, err := p.StartDeployment(ctx, target.ID, target.Branch, commit.Title, commit.ID)
	if err != nil {
		p.logger.Error("deployment could not start", "target", target.Name, "error", err)
		return result
	}
	result.JobID = jobID

	job, err := p.poll(ctx, target, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrPollBudgetExhausted) {
			p.logger.Error("gave up waiting for deployment", "target", target.Name, "job_id", jobID, "status", job.Status, "error", err)
		} else {
			p.logger.Error("deployment polling failed", "target", target.Name, "job_id", jobID, "error", err)
		}
		return result
	}
	if job.Status != domain.JobSucceed {
		p.logger.Error("deployment failed", "target", target.Name, "job_id", jobID, "status", job.Status)
		return result
	}

	result.Status = domain.DeploySuccess
	result.URL = p.provider.DeploymentURL(target.ID, target.Branch)
	p.logger.Info("deployment successful", "target", target.Name, "job_id", jobID, "url", result.URL)
	return result
}

func (p *Poller) emit(ev Event) {
	for _, fn := range p.observers {
		fn(ev)
	}
}
