package slack

import (
	"context"

	"github.com/slack-go/slack"
)

// Service provides the subset of the Slack API used for risk notifications
type Service interface {
	// PostMessage posts a Block Kit message to a channel and returns the message timestamp.
	// The text parameter is used as a fallback for notifications.
	PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error)

	// LookupUserByEmail resolves a Slack user by email address (with caching)
	LookupUserByEmail(ctx context.Context, email string) (*User, error)
}

// User represents a Slack user
type User struct {
	ID       string
	Name     string
	RealName string
	Email    string
}
