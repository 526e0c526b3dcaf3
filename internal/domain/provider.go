package domain

import "context"

// DeploymentProvider is the port that hosting provider adapters implement.
// The domain does not know about Amplify or any specific provider.
type DeploymentProvider interface {
	// StartJob submits a deployment and returns the provider's job id.
	// An empty id with a nil error means the provider gave no usable id.
	StartJob(ctx context.Context, req StartRequest) (string, error)
	GetJob(ctx context.Context, targetID, branch, jobID string) (JobStatus, error)
	// DeploymentURL is where a successful deployment of the branch is served.
	DeploymentURL(targetID, branch string) string
}

// Channel is the port for the chat channel holding the release message.
type Channel interface {
	Post(ctx context.Context, channelID string, payload MessagePayload, identity Identity) (string, error)
	Update(ctx context.Context, channelID, handle string, payload MessagePayload, identity Identity) error
}
