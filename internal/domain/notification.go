package domain

// Phase is the lifecycle stage a release notification is rendered for.
type Phase string

const (
	PhasePending Phase = "pending"
	PhaseSuccess Phase = "success"
	PhaseFailure Phase = "failure"
)

// Identity is the display name and icon the bot posts with.
type Identity struct {
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

// CIContext holds the coordinates of the CI run driving the release.
type CIContext struct {
	ServerURL  string
	Repository string
	RunID      string
}

// ReleaseArtifact is a release already published by an earlier step
// (an npm package, a GitHub release, a deployed app).
type ReleaseArtifact struct {
	Name       string `yaml:"name" json:"name"`
	URL        string `yaml:"url" json:"url"`
	PluginName string `yaml:"plugin_name,omitempty" json:"plugin_name,omitempty"`
	Channel    string `yaml:"channel,omitempty" json:"channel,omitempty"`
	GitTag     string `yaml:"git_tag,omitempty" json:"git_tag,omitempty"`
}

// ReleaseLink is a rendered link in the notification.
type ReleaseLink struct {
	Text string
	URL  string
}

// ReleaseInfo is everything the renderer needs. Version may be empty.
type ReleaseInfo struct {
	PackageName string
	Version     string
	CommitTitle string
	Releases    []ReleaseArtifact
	CI          CIContext
}

// Section is one block of the notification attachment.
// A section carries either side-by-side Fields or a single Text.
type Section struct {
	Fields []string `json:"fields,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// MessagePayload is a fully rendered, self-contained message attachment.
// It is safe to serialize and hand to another process.
type MessagePayload struct {
	Color    string    `json:"color"`
	Fallback string    `json:"fallback"`
	Sections []Section `json:"sections"`
}

// NotificationState tracks the one chat message a release owns.
type NotificationState struct {
	ChannelID     string
	MessageHandle string
	Phase         Phase
	Payload       MessagePayload
}
