package release_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/waabox/shipwatch/internal/domain"
	"github.com/waabox/shipwatch/internal/logger"
	"github.com/waabox/shipwatch/internal/release"
	"github.com/waabox/shipwatch/internal/supervisor"
)

// journal records the order of side effects across fakes.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeChannel struct {
	j         *journal
	postErr   error
	updateErr error
	handle    string
	updates   []domain.MessagePayload
}

func (f *fakeChannel) Post(_ context.Context, _ string, _ domain.MessagePayload, _ domain.Identity) (string, error) {
	f.j.add("post")
	if f.postErr != nil {
		return "", f.postErr
	}
	return f.handle, nil
}

func (f *fakeChannel) Update(_ context.Context, _, handle string, payload domain.MessagePayload, _ domain.Identity) error {
	f.j.add("update:" + handle)
	f.updates = append(f.updates, payload)
	return f.updateErr
}

type fakeStopper struct {
	j   *journal
	err error
}

func (f *fakeStopper) Dismiss(_ time.Duration) error {
	f.j.add("dismiss")
	return f.err
}

type fakeRecorder struct {
	notifications map[string]int
	deploys       []domain.DeployResult
}

func (r *fakeRecorder) ObserveNotification(op string, err error) {
	if r.notifications == nil {
		r.notifications = map[string]int{}
	}
	key := op + ":ok"
	if err != nil {
		key = op + ":error"
	}
	r.notifications[key]++
}

func (r *fakeRecorder) ObserveDeploy(res domain.DeployResult) {
	r.deploys = append(r.deploys, res)
}

func input() release.Input {
	return release.Input{
		PackageName: "web-app",
		Version:     "1.4.0",
		Commit:      domain.Commit{ID: "abc123", Title: "feat: checkout (#7)"},
		Releases:    []domain.ReleaseArtifact{{Name: "npm package (@latest dist-tag)", URL: "https://npm.example.com/web-app"}},
	}
}

var ci = domain.CIContext{ServerURL: "https://github.com", Repository: "acme/web", RunID: "55"}

var targets = []domain.Target{
	{ID: "d1", Name: "web", Branch: "main", Provider: "amplify"},
	{ID: "d2", Name: "admin", Branch: "main", Provider: "amplify"},
}

type harness struct {
	j        *journal
	channel  *fakeChannel
	stopper  *fakeStopper
	recorder *fakeRecorder
	handoffs []supervisor.Handoff
	session  *release.Session
}

func newHarness() *harness {
	h := &harness{j: &journal{}, recorder: &fakeRecorder{}}
	h.channel = &fakeChannel{j: h.j, handle: "1700.0001"}
	h.stopper = &fakeStopper{j: h.j}
	launch := func(hd supervisor.Handoff) (release.Stopper, error) {
		h.j.add("launch")
		h.handoffs = append(h.handoffs, hd)
		return h.stopper, nil
	}
	h.session = release.NewSession(input(), ci, h.channel, launch, release.Options{
		ChannelID: "C0REL",
		Identity:  domain.Identity{Username: "Release Bot"},
		Token:     "xoxb-test",
	}, logger.Discard(), h.recorder)
	return h
}

func succeedAll(_ context.Context, t domain.Target, _ domain.Commit) domain.DeployResult {
	return domain.DeployResult{TargetID: t.ID, TargetName: t.Name, JobID: "1", Status: domain.DeploySuccess,
		URL: "https://" + t.Branch + "." + t.ID + ".amplifyapp.com"}
}

func assertOrder(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestPrepare_PostsThenLaunchesSupervisorWithFailurePayload(t *testing.T) {
	h := newHarness()
	if err := h.session.Prepare(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOrder(t, h.j.list(), "post", "launch")

	hd := h.handoffs[0]
	if hd.ChannelID != "C0REL" || hd.MessageHandle != "1700.0001" {
		t.Errorf("unexpected handoff target: %+v", hd)
	}
	if hd.Payload.Color != "#E01E5A" {
		t.Errorf("expected failure payload in handoff, got color %s", hd.Payload.Color)
	}
	if hd.Token != "xoxb-test" || hd.PackageName != "web-app" {
		t.Errorf("expected credentials and package in handoff, got %+v", hd)
	}
	st := h.session.State()
	if st.Phase != domain.PhasePending || st.MessageHandle != "1700.0001" {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestPrepare_PostFailureSkipsSupervisor(t *testing.T) {
	h := newHarness()
	h.channel.postErr = &domain.ChannelError{Op: "post", ChannelID: "C0REL", Err: errors.New("invalid_auth")}

	err := h.session.Prepare(context.Background())
	if err == nil {
		t.Fatal("expected post error to be reported")
	}
	assertOrder(t, h.j.list(), "post")
	if h.recorder.notifications["post:error"] != 1 {
		t.Errorf("expected failed post to be recorded, got %v", h.recorder.notifications)
	}
}

func TestRun_SuccessDismissesSupervisorBeforeUpdate(t *testing.T) {
	h := newHarness()
	err := h.session.Run(context.Background(), release.DeployFunc(succeedAll), targets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOrder(t, h.j.list(), "post", "launch", "dismiss", "update:1700.0001")

	final := h.channel.updates[0]
	if final.Color != "#36a64f" {
		t.Errorf("expected success color, got %s", final.Color)
	}
	want := "🔗 <https://main.d2.amplifyapp.com|Amplify (admin)> | " +
		"<https://main.d1.amplifyapp.com|Amplify (web)> | " +
		"<https://npm.example.com/web-app|npm> | " +
		"<https://github.com/acme/web/actions/runs/55|workflow>"
	if final.Sections[0].Fields[1] != want {
		t.Errorf("links:\nwant %s\ngot  %s", want, final.Sections[0].Fields[1])
	}
	if len(h.recorder.deploys) != 2 {
		t.Errorf("expected 2 recorded deploys, got %d", len(h.recorder.deploys))
	}
	if h.session.State().Phase != domain.PhaseSuccess {
		t.Errorf("expected success phase, got %s", h.session.State().Phase)
	}
}

func TestRun_DeployFailureFailsRelease(t *testing.T) {
	h := newHarness()
	var deployed []string
	deployer := release.DeployFunc(func(_ context.Context, t domain.Target, _ domain.Commit) domain.DeployResult {
		deployed = append(deployed, t.ID)
		return domain.DeployResult{TargetID: t.ID, TargetName: t.Name, Status: domain.DeployFailure}
	})

	err := h.session.Run(context.Background(), deployer, targets)
	if !errors.Is(err, release.ErrDeployFailed) {
		t.Fatalf("expected ErrDeployFailed, got %v", err)
	}
	if len(deployed) != 1 {
		t.Errorf("expected release to stop at the first failed target, deployed %v", deployed)
	}
	assertOrder(t, h.j.list(), "post", "launch", "dismiss", "update:1700.0001")
	if h.channel.updates[0].Color != "#E01E5A" {
		t.Errorf("expected failure color, got %s", h.channel.updates[0].Color)
	}
	if len(h.session.Info().Releases) != 1 {
		t.Errorf("expected no artifact for a failed deploy, got %v", h.session.Info().Releases)
	}
}

func TestRun_CancelledContextStillFinalizes(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	deployer := release.DeployFunc(func(ctx context.Context, t domain.Target, _ domain.Commit) domain.DeployResult {
		cancel()
		return domain.DeployResult{TargetID: t.ID, Status: domain.DeployFailure}
	})

	_ = h.session.Run(ctx, deployer, targets)
	if len(h.channel.updates) != 1 || h.channel.updates[0].Color != "#E01E5A" {
		t.Errorf("expected one failure update, got %d updates", len(h.channel.updates))
	}
}

func TestFinish_OnlyOnce(t *testing.T) {
	h := newHarness()
	_ = h.session.Prepare(context.Background())
	h.session.Succeed(context.Background())
	h.session.Fail(context.Background())
	h.session.Succeed(context.Background())

	if len(h.channel.updates) != 1 {
		t.Errorf("expected exactly one update, got %d", len(h.channel.updates))
	}
	if h.session.State().Phase != domain.PhaseSuccess {
		t.Errorf("expected first outcome to stick, got %s", h.session.State().Phase)
	}
}

func TestFinish_WithoutMessageDoesNotUpdate(t *testing.T) {
	h := newHarness()
	h.channel.postErr = errors.New("down")
	_ = h.session.Run(context.Background(), release.DeployFunc(succeedAll), targets)

	assertOrder(t, h.j.list(), "post")
}

func TestFinish_UpdateErrorIsSwallowed(t *testing.T) {
	h := newHarness()
	h.channel.updateErr = errors.New("message_not_found")
	err := h.session.Run(context.Background(), release.DeployFunc(succeedAll), targets)
	if err != nil {
		t.Fatalf("update errors must not fail the release, got %v", err)
	}
	if h.recorder.notifications["update:error"] != 1 {
		t.Errorf("expected failed update to be recorded, got %v", h.recorder.notifications)
	}
	if h.session.State().Phase != domain.PhasePending {
		t.Errorf("expected state to stay pending, got %s", h.session.State().Phase)
	}
}

func TestFinish_DismissErrorStillUpdates(t *testing.T) {
	h := newHarness()
	h.stopper.err = supervisor.ErrDismissTimeout
	_ = h.session.Run(context.Background(), release.DeployFunc(succeedAll), targets)

	assertOrder(t, h.j.list(), "post", "launch", "dismiss", "update:1700.0001")
}

func TestPrepare_LaunchFailureKeepsRelease(t *testing.T) {
	j := &journal{}
	channel := &fakeChannel{j: j, handle: "1700.0002"}
	launch := func(supervisor.Handoff) (release.Stopper, error) { return nil, errors.New("fork failed") }
	session := release.NewSession(input(), ci, channel, launch, release.Options{ChannelID: "C0REL"}, logger.Discard(), nil)

	if err := session.Run(context.Background(), release.DeployFunc(succeedAll), targets[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOrder(t, j.list(), "post", "update:1700.0002")
}

func TestArtifactName(t *testing.T) {
	if got := release.ArtifactName(domain.Target{Name: "web", Provider: "amplify"}); got != "Amplify (web)" {
		t.Errorf("unexpected name: %s", got)
	}
	if got := release.ArtifactName(domain.Target{Name: "web"}); got != "Amplify (web)" {
		t.Errorf("unexpected name: %s", got)
	}
}
