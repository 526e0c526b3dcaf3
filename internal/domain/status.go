package domain

// JobStatus represents the state of a remote deployment job.
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobSucceed   JobStatus = "SUCCEED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
	JobUnknown   JobStatus = "UNKNOWN"
)

// ParseJobStatus maps a raw provider status to a JobStatus.
// Empty or unrecognized values map to JobUnknown, which is not terminal.
func ParseJobStatus(raw string) JobStatus {
	switch s := JobStatus(raw); s {
	case JobPending, JobRunning, JobSucceed, JobFailed, JobCancelled:
		return s
	default:
		return JobUnknown
	}
}

// Terminal reports whether no further transition can occur from s.
func (s JobStatus) Terminal() bool {
	return s == JobSucceed || s == JobFailed || s == JobCancelled
}
