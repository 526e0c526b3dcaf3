// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// ErrMissingJobID is returned when a start request succeeds without a job id.
var ErrMissingJobID = errors.New("provider returned no job id")

// ErrMissingHandle is returned when a post succeeds without a message handle.
var ErrMissingHandle = errors.New("channel returned no message handle")

// ErrPollBudgetExhausted ends a poll loop whose job never reached a terminal status.
var ErrPollBudgetExhausted = errors.New("poll budget exhausted")

// StartError is returned when a deployment job could not be started.
type StartError struct {
	TargetID string
	Err      error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("starting deployment for %s: %v", e.TargetID, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// ChannelError is returned by Channel implementations when a post or update fails.
type ChannelError struct {
	Op        string
	ChannelID string
	Err       error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s to channel %s: %v", e.Op, e.ChannelID, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }
