package slack

import (
	"context"
	"strings"

	"github.com/slack-go/slack"

	"github.com/waabox/shipwatch/internal/domain"
)

// Client implements domain.Channel on top of the Slack Web API.
type Client struct {
	api *slack.Client
}

// Ensure Client implements Channel.
var _ domain.Channel = (*Client)(nil)

// New creates a Slack channel client for a bot token.
// apiURL is used for testing; pass empty string to use the real Slack API.
func New(token string, apiURL string) *Client {
	var opts []slack.Option
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &Client{api: slack.New(token, opts...)}
}

// Post sends a new message and returns its timestamp, the handle for later updates.
func (c *Client) Post(ctx context.Context, channelID string, payload domain.MessagePayload, identity domain.Identity) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channelID, messageOptions(payload, identity)...)
	if err != nil {
		return "", &domain.ChannelError{Op: "post", ChannelID: channelID, Err: err}
	}
	if ts == "" {
		return "", &domain.ChannelError{Op: "post", ChannelID: channelID, Err: domain.ErrMissingHandle}
	}
	return ts, nil
}

// Update replaces the whole attachment of the message identified by handle.
func (c *Client) Update(ctx context.Context, channelID, handle string, payload domain.MessagePayload, identity domain.Identity) error {
	_, _, _, err := c.api.UpdateMessageContext(ctx, channelID, handle, messageOptions(payload, identity)...)
	if err != nil {
		return &domain.ChannelError{Op: "update", ChannelID: channelID, Err: err}
	}
	return nil
}

func messageOptions(payload domain.MessagePayload, identity domain.Identity) []slack.MsgOption {
	opts := []slack.MsgOption{
		slack.MsgOptionAttachments(toAttachment(payload)),
		slack.MsgOptionDisableLinkUnfurl(),
		slack.MsgOptionDisableMediaUnfurl(),
	}
	if identity.Username != "" {
		opts = append(opts, slack.MsgOptionUsername(identity.Username))
	}
	if identity.IconEmoji != "" {
		opts = append(opts, slack.MsgOptionIconEmoji(identity.IconEmoji))
	}
	return opts
}

func toAttachment(p domain.MessagePayload) slack.Attachment {
	blocks := make([]slack.Block, 0, len(p.Sections))
	for _, s := range p.Sections {
		if len(s.Fields) > 0 {
			fields := make([]*slack.TextBlockObject, len(s.Fields))
			for i, f := range s.Fields {
				fields[i] = slack.NewTextBlockObject(slack.MarkdownType, f, false, false)
			}
			blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil))
			continue
		}
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, s.Text, false, false), nil, nil))
	}
	return slack.Attachment{
		Color:    p.Color,
		Fallback: p.Fallback,
		Blocks:   slack.Blocks{BlockSet: blocks},
	}
}
