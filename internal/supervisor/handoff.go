// Package supervisor keeps a release notification from being left pending
// when the release process dies. The release process hands the failure
// payload to a detached child at spawn time; the child watches its parent
// and finalizes the message if the parent disappears or it is told to stop.
package supervisor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/waabox/shipwatch/internal/domain"
)

// EnvHandoff is the environment variable carrying the encoded Handoff.
const EnvHandoff = "SHIPWATCH_HANDOFF"

// ErrInvalidHandoff is returned when a handoff cannot be decoded or lacks required fields.
var ErrInvalidHandoff = errors.New("invalid supervisor handoff")

// Handoff is everything the supervisor needs, passed by value when it is spawned.
// The supervisor never reads state from the release process after launch.
type Handoff struct {
	ID            string                `json:"id"`
	ParentPID     int                   `json:"parent_pid"`
	ChannelID     string                `json:"channel_id"`
	MessageHandle string                `json:"message_handle"`
	Payload       domain.MessagePayload `json:"payload"`
	Identity      domain.Identity       `json:"identity"`
	Token         string                `json:"token"`
	SlackAPIURL   string                `json:"slack_api_url,omitempty"`
	PackageName   string                `json:"package_name,omitempty"`
}

// Encode serializes h into a single environment-safe string.
func (h Handoff) Encode() (string, error) {
	raw, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("encoding handoff: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeHandoff parses a string produced by Encode.
func DecodeHandoff(encoded string) (Handoff, error) {
	if encoded == "" {
		return Handoff{}, fmt.Errorf("%w: empty", ErrInvalidHandoff)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Handoff{}, fmt.Errorf("%w: %v", ErrInvalidHandoff, err)
	}
	var h Handoff
	if err := json.Unmarshal(raw, &h); err != nil {
		return Handoff{}, fmt.Errorf("%w: %v", ErrInvalidHandoff, err)
	}
	if h.ChannelID == "" || h.MessageHandle == "" {
		return Handoff{}, fmt.Errorf("%w: channel and message handle are required", ErrInvalidHandoff)
	}
	return h, nil
}

// HandoffFromEnv decodes the handoff from EnvHandoff.
func HandoffFromEnv() (Handoff, error) {
	return DecodeHandoff(os.Getenv(EnvHandoff))
}

// LogPath is the log file of the supervisor with the given handoff id.
func LogPath(id string) string {
	return filepath.Join(os.TempDir(), "shipwatch-supervisor-"+id+".log")
}
