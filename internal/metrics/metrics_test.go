package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/waabox/shipwatch/internal/domain"
)

func TestRecorder_CountsPollsAndResults(t *testing.T) {
	r := New()
	r.ObservePoll("web", domain.JobRunning)
	r.ObservePoll("web", domain.JobRunning)
	r.ObservePoll("web", domain.JobSucceed)
	r.ObserveDeploy(domain.DeployResult{TargetName: "web", Status: domain.DeploySuccess})

	if got := testutil.ToFloat64(r.polls.WithLabelValues("web", "RUNNING")); got != 2 {
		t.Errorf("expected 2 RUNNING polls, got %v", got)
	}
	if got := testutil.ToFloat64(r.polls.WithLabelValues("web", "SUCCEED")); got != 1 {
		t.Errorf("expected 1 SUCCEED poll, got %v", got)
	}
	if got := testutil.ToFloat64(r.deploys.WithLabelValues("web", "success")); got != 1 {
		t.Errorf("expected 1 success result, got %v", got)
	}
}

func TestRecorder_NotificationOutcomes(t *testing.T) {
	r := New()
	r.ObserveNotification("update", nil)
	r.ObserveNotification("update", errors.New("channel_not_found"))
	if got := testutil.ToFloat64(r.notifications.WithLabelValues("update", "ok")); got != 1 {
		t.Errorf("expected 1 ok update, got %v", got)
	}
	if got := testutil.ToFloat64(r.notifications.WithLabelValues("update", "error")); got != 1 {
		t.Errorf("expected 1 failed update, got %v", got)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.ObservePoll("web", domain.JobRunning)
	r.ObserveProviderCall("get_job", nil, time.Second)
	if err := r.Push(context.Background(), "http://unused", "job"); err != nil {
		t.Errorf("nil recorder push should be a no-op, got %v", err)
	}
}

func TestRecorder_PushSendsToGateway(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.ObserveProviderCall("start_job", nil, 120*time.Millisecond)
	if err := r.Push(context.Background(), srv.URL, "shipwatch"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if gotPath != "/metrics/job/shipwatch" {
		t.Errorf("unexpected push path: %s", gotPath)
	}
	if gotBody == "" {
		t.Error("expected a non-empty metrics body")
	}
}
