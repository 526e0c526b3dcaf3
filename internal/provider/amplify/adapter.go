package amplify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/amplify"
	"github.com/aws/aws-sdk-go-v2/service/amplify/types"

	"github.com/waabox/shipwatch/internal/domain"
)

// API is the subset of the Amplify client the adapter calls.
type API interface {
	StartJob(ctx context.Context, params *amplify.StartJobInput, optFns ...func(*amplify.Options)) (*amplify.StartJobOutput, error)
	GetJob(ctx context.Context, params *amplify.GetJobInput, optFns ...func(*amplify.Options)) (*amplify.GetJobOutput, error)
}

// Adapter implements domain.DeploymentProvider for AWS Amplify Hosting.
type Adapter struct {
	api API
}

// Ensure Adapter implements DeploymentProvider.
var _ domain.DeploymentProvider = (*Adapter)(nil)

// NewAdapter wraps an Amplify API client.
func NewAdapter(api API) *Adapter {
	return &Adapter{api: api}
}

// NewFromEnvironment builds an adapter from the default AWS credential chain.
// region overrides the region from the environment when non-empty.
func NewFromEnvironment(ctx context.Context, region string) (*Adapter, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewAdapter(amplify.NewFromConfig(cfg)), nil
}

// StartJob starts a RELEASE job for the branch and returns its id.
func (a *Adapter) StartJob(ctx context.Context, req domain.StartRequest) (string, error) {
	out, err := a.api.StartJob(ctx, &amplify.StartJobInput{
		AppId:      aws.String(req.TargetID),
		BranchName: aws.String(req.Branch),
		JobType:    types.JobTypeRelease,
		JobReason:  optional(req.Reason),
		CommitId:   optional(req.CommitID),
	})
	if err != nil {
		return "", fmt.Errorf("amplify StartJob: %w", err)
	}
	if out == nil || out.JobSummary == nil {
		return "", nil
	}
	return aws.ToString(out.JobSummary.JobId), nil
}

// GetJob returns the current status of a job.
func (a *Adapter) GetJob(ctx context.Context, targetID, branch, jobID string) (domain.JobStatus, error) {
	out, err := a.api.GetJob(ctx, &amplify.GetJobInput{
		AppId:      aws.String(targetID),
		BranchName: aws.String(branch),
		JobId:      aws.String(jobID),
	})
	if err != nil {
		return "", fmt.Errorf("amplify GetJob: %w", err)
	}
	if out == nil || out.Job == nil || out.Job.Summary == nil {
		return domain.JobUnknown, nil
	}
	return mapAmplifyStatus(string(out.Job.Summary.Status)), nil
}

// DeploymentURL is the default Amplify domain of a branch.
func (a *Adapter) DeploymentURL(targetID, branch string) string {
	return fmt.Sprintf("https://%s.%s.amplifyapp.com", branch, targetID)
}

// mapAmplifyStatus folds Amplify's intermediate states into the domain set.
func mapAmplifyStatus(status string) domain.JobStatus {
	switch status {
	case "CREATED":
		return domain.JobPending
	case "PROVISIONING", "CANCELLING":
		return domain.JobRunning
	}
	return domain.ParseJobStatus(status)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
