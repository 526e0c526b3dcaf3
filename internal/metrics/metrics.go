package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/waabox/shipwatch/internal/domain"
)

var histogramBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Recorder collects release metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	polls           *prometheus.CounterVec
	deploys         *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shipwatch",
			Subsystem: "deploy",
			Name:      "polls_total",
			Help:      "Status queries per target and observed job status",
		}, []string{"target", "status"}),
		deploys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shipwatch",
			Subsystem: "deploy",
			Name:      "results_total",
			Help:      "Deployment outcomes per target",
		}, []string{"target", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shipwatch",
			Subsystem: "notify",
			Name:      "calls_total",
			Help:      "Channel post and update calls by outcome",
		}, []string{"op", "outcome"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shipwatch",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Deployment provider API calls by outcome",
		}, []string{"op", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shipwatch",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Latency distribution of deployment provider API calls",
			Buckets:   histogramBuckets,
		}, []string{"op"}),
	}
	r.registry.MustRegister(r.polls, r.deploys, r.notifications, r.providerCalls, r.providerLatency)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObservePoll counts one status query.
func (r *Recorder) ObservePoll(target string, status domain.JobStatus) {
	if r == nil {
		return
	}
	r.polls.With(prometheus.Labels{"target": target, "status": string(status)}).Inc()
}

// ObserveDeploy counts a final deployment result.
func (r *Recorder) ObserveDeploy(res domain.DeployResult) {
	if r == nil {
		return
	}
	r.deploys.With(prometheus.Labels{"target": res.TargetName, "outcome": string(res.Status)}).Inc()
}

// ObserveNotification counts a channel call. op is "post" or "update".
func (r *Recorder) ObserveNotification(op string, err error) {
	if r == nil {
		return
	}
	r.notifications.With(prometheus.Labels{"op": op, "outcome": outcome(err)}).Inc()
}

// ObserveProviderCall records a provider API call and its latency.
func (r *Recorder) ObserveProviderCall(op string, err error, d time.Duration) {
	if r == nil {
		return
	}
	r.providerCalls.With(prometheus.Labels{"op": op, "outcome": outcome(err)}).Inc()
	r.providerLatency.With(prometheus.Labels{"op": op}).Observe(d.Seconds())
}

// Push sends the collected metrics to a Pushgateway. An empty url is a no-op.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if r == nil || url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(r.registry).PushContext(ctx)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
