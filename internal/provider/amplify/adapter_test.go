package amplify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/amplify"
	"github.com/aws/aws-sdk-go-v2/service/amplify/types"

	"github.com/waabox/shipwatch/internal/domain"
	amplifyprovider "github.com/waabox/shipwatch/internal/provider/amplify"
)

type fakeAPI struct {
	startIn  *amplify.StartJobInput
	startOut *amplify.StartJobOutput
	getIn    *amplify.GetJobInput
	getOut   *amplify.GetJobOutput
	err      error
}

func (f *fakeAPI) StartJob(_ context.Context, in *amplify.StartJobInput, _ ...func(*amplify.Options)) (*amplify.StartJobOutput, error) {
	f.startIn = in
	return f.startOut, f.err
}

func (f *fakeAPI) GetJob(_ context.Context, in *amplify.GetJobInput, _ ...func(*amplify.Options)) (*amplify.GetJobOutput, error) {
	f.getIn = in
	return f.getOut, f.err
}

func TestStartJob_SendsReleaseJob(t *testing.T) {
	api := &fakeAPI{startOut: &amplify.StartJobOutput{JobSummary: &types.JobSummary{JobId: aws.String("12")}}}
	adapter := amplifyprovider.NewAdapter(api)

	jobID, err := adapter.StartJob(context.Background(), domain.StartRequest{
		TargetID: "d1abc", Branch: "main", Reason: "feat: x (#3)", CommitID: "abc123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobID != "12" {
		t.Errorf("expected job id '12', got '%s'", jobID)
	}
	if api.startIn.JobType != types.JobTypeRelease {
		t.Errorf("expected RELEASE job, got %s", api.startIn.JobType)
	}
	if aws.ToString(api.startIn.AppId) != "d1abc" || aws.ToString(api.startIn.BranchName) != "main" {
		t.Errorf("unexpected app/branch: %s/%s", aws.ToString(api.startIn.AppId), aws.ToString(api.startIn.BranchName))
	}
	if aws.ToString(api.startIn.CommitId) != "abc123" || aws.ToString(api.startIn.JobReason) != "feat: x (#3)" {
		t.Errorf("commit metadata not forwarded: %+v", api.startIn)
	}
}

func TestStartJob_NoSummaryYieldsEmptyID(t *testing.T) {
	adapter := amplifyprovider.NewAdapter(&fakeAPI{startOut: &amplify.StartJobOutput{}})
	jobID, err := adapter.StartJob(context.Background(), domain.StartRequest{TargetID: "d1abc", Branch: "main"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobID != "" {
		t.Errorf("expected empty job id, got '%s'", jobID)
	}
}

func TestStartJob_WrapsAPIError(t *testing.T) {
	cause := errors.New("LimitExceededException")
	adapter := amplifyprovider.NewAdapter(&fakeAPI{err: cause})
	_, err := adapter.StartJob(context.Background(), domain.StartRequest{TargetID: "d1abc", Branch: "main"})
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped API error, got %v", err)
	}
}

func TestGetJob_MapsStatuses(t *testing.T) {
	cases := map[types.JobStatus]domain.JobStatus{
		types.JobStatus("PENDING"):      domain.JobPending,
		types.JobStatus("CREATED"):      domain.JobPending,
		types.JobStatus("PROVISIONING"): domain.JobRunning,
		types.JobStatus("RUNNING"):      domain.JobRunning,
		types.JobStatus("CANCELLING"):   domain.JobRunning,
		types.JobStatus("SUCCEED"):      domain.JobSucceed,
		types.JobStatus("FAILED"):       domain.JobFailed,
		types.JobStatus("CANCELLED"):    domain.JobCancelled,
		types.JobStatus(""):             domain.JobUnknown,
		types.JobStatus("SOMETHING"):    domain.JobUnknown,
	}
	for raw, want := range cases {
		api := &fakeAPI{getOut: &amplify.GetJobOutput{Job: &types.Job{Summary: &types.JobSummary{Status: raw}}}}
		got, err := amplifyprovider.NewAdapter(api).GetJob(context.Background(), "d1abc", "main", "12")
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", raw, err)
		}
		if got != want {
			t.Errorf("%q: want %s, got %s", raw, want, got)
		}
		if aws.ToString(api.getIn.JobId) != "12" {
			t.Errorf("expected job id '12' in request, got %s", aws.ToString(api.getIn.JobId))
		}
	}
}

func TestGetJob_MissingJobIsUnknown(t *testing.T) {
	adapter := amplifyprovider.NewAdapter(&fakeAPI{getOut: &amplify.GetJobOutput{}})
	got, err := adapter.GetJob(context.Background(), "d1abc", "main", "12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != domain.JobUnknown {
		t.Errorf("expected UNKNOWN, got %s", got)
	}
}

func TestDeploymentURL(t *testing.T) {
	got := amplifyprovider.NewAdapter(&fakeAPI{}).DeploymentURL("d1abc", "main")
	if got != "https://main.d1abc.amplifyapp.com" {
		t.Errorf("unexpected url: %s", got)
	}
}
