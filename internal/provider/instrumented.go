package provider

import (
	"context"
	"time"

	"github.com/waabox/shipwatch/internal/domain"
)

// CallRecorder receives one observation per provider call.
type CallRecorder interface {
	ObserveProviderCall(op string, err error, d time.Duration)
}

// InstrumentedProvider wraps a DeploymentProvider and records the outcome and
// latency of every remote call. Results pass through untouched.
type InstrumentedProvider struct {
	inner    domain.DeploymentProvider
	recorder CallRecorder
	now      func() time.Time
}

// Ensure InstrumentedProvider implements DeploymentProvider.
var _ domain.DeploymentProvider = (*InstrumentedProvider)(nil)

// NewInstrumentedProvider creates an InstrumentedProvider.
func NewInstrumentedProvider(inner domain.DeploymentProvider, recorder CallRecorder) *InstrumentedProvider {
	return &InstrumentedProvider{inner: inner, recorder: recorder, now: time.Now}
}

func (ip *InstrumentedProvider) observe(op string, start time.Time, err error) {
	ip.recorder.ObserveProviderCall(op, err, ip.now().Sub(start))
}

func (ip *InstrumentedProvider) StartJob(ctx context.Context, req domain.StartRequest) (string, error) {
	start := ip.now()
	jobID, err := ip.inner.StartJob(ctx, req)
	ip.observe("start_job", start, err)
	return jobID, err
}

func (ip *InstrumentedProvider) GetJob(ctx context.Context, targetID, branch, jobID string) (domain.JobStatus, error) {
	start := ip.now()
	status, err := ip.inner.GetJob(ctx, targetID, branch, jobID)
	ip.observe("get_job", start, err)
	return status, err
}

// DeploymentURL is computed locally and is not recorded.
func (ip *InstrumentedProvider) DeploymentURL(targetID, branch string) string {
	return ip.inner.DeploymentURL(targetID, branch)
}
