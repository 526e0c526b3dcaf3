package domain

// Target is an application the release deploys to.
type Target struct {
	ID       string
	Name     string
	Branch   string
	Provider string
}

// Commit identifies the revision being released.
type Commit struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
}

// StartRequest is what the provider needs to kick off a deployment job.
type StartRequest struct {
	TargetID string
	Branch   string
	Reason   string
	CommitID string
}

// DeploymentJob is a running job on the provider. It is only mutated by the poller.
type DeploymentJob struct {
	TargetID   string
	BranchName string
	JobID      string
	Status     JobStatus
}

// DeployOutcome is the final verdict of a deployment.
type DeployOutcome string

const (
	DeploySuccess DeployOutcome = "success"
	DeployFailure DeployOutcome = "failure"
)

// DeployResult is derived once from the final job state.
// JobID is empty when the job never started; URL is only set on success.
type DeployResult struct {
	TargetID   string
	TargetName string
	JobID      string
	Status     DeployOutcome
	URL        string
}

// Succeeded reports whether the deployment reached SUCCEED.
func (r DeployResult) Succeeded() bool {
	return r.Status == DeploySuccess
}
