package slack

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

const (
	// DefaultCacheTTL is the default TTL for the user lookup cache
	DefaultCacheTTL = 10 * time.Minute

	// maxFallbackTextBytes keeps fallback text under Slack's message limit
	maxFallbackTextBytes = 3000
)

type cacheEntry struct {
	user      *User
	expiresAt time.Time
}

// client implements Service interface
type client struct {
	api      *slack.Client
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type options struct {
	cacheTTL time.Duration
	apiURL   string
}

// Option is a functional option for client configuration
type Option func(*options)

// WithCacheTTL sets the TTL for the user lookup cache
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithAPIURL points the client at a different Slack API endpoint
func WithAPIURL(url string) Option {
	return func(o *options) {
		o.apiURL = url
	}
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	o := options{cacheTTL: DefaultCacheTTL}
	for _, opt := range opts {
		opt(&o)
	}

	var apiOpts []slack.Option
	if o.apiURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(o.apiURL))
	}

	return &client{
		api:      slack.New(token, apiOpts...),
		cacheTTL: o.cacheTTL,
		cache:    make(map[string]cacheEntry),
	}, nil
}

// PostMessage posts a Block Kit message to a channel
func (c *client) PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error) {
	if channelID == "" {
		return "", goerr.New("channel ID is required")
	}

	_, ts, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(truncateToMaxBytes(text, maxFallbackTextBytes), false),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to post message", goerr.V("channel_id", channelID))
	}

	return ts, nil
}

// LookupUserByEmail resolves a Slack user by email address
func (c *client) LookupUserByEmail(ctx context.Context, email string) (*User, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return nil, goerr.New("email is required")
	}

	now := time.Now()
	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.user, nil
	}

	u, err := c.api.GetUserByEmailContext(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up user by email", goerr.V("email", key))
	}

	user := &User{
		ID:       u.ID,
		Name:     u.Name,
		RealName: u.RealName,
		Email:    u.Profile.Email,
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{user: user, expiresAt: now.Add(c.cacheTTL)}
	c.mu.Unlock()

	return user, nil
}

// truncateToMaxBytes cuts s to at most maxBytes without splitting a UTF-8 rune
func truncateToMaxBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
