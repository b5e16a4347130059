// Package chat provides the Slack channel provider used for polling and posting.
package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	merrors "github.com/scrum-maestro/agent/internal/errors"
)

// slackAPI abstracts the Slack client for testing.
type slackAPI interface {
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetUsersInConversationContext(ctx context.Context, params *slack.GetUsersInConversationParameters) ([]string, string, error)
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
}

// Message is a channel message as seen by the poller.
type Message struct {
	ID         string // Slack message timestamp, unique per channel
	AuthorID   string
	AuthorName string
	Text       string
}

// Client polls a single Slack channel and posts messages on behalf of the bot.
type Client struct {
	api        slackAPI
	channelID  string
	fetchLimit int
	logger     zerolog.Logger

	mu        sync.Mutex
	botUserID string
	names     map[string]string
}

// NewClient creates a provider for the given channel.
func NewClient(botToken, channelID string, fetchLimit int, logger zerolog.Logger) *Client {
	return newClient(slack.New(botToken), channelID, fetchLimit, logger)
}

func newClient(api slackAPI, channelID string, fetchLimit int, logger zerolog.Logger) *Client {
	return &Client{
		api:        api,
		channelID:  channelID,
		fetchLimit: fetchLimit,
		logger:     logger.With().Str("component", "chat").Logger(),
		names:      make(map[string]string),
	}
}

// BotUserID resolves and caches the bot's own user ID.
func (c *Client) BotUserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth test: %w", err)
	}
	c.botUserID = resp.UserID
	return c.botUserID, nil
}

// FetchRecent returns the most recent channel messages, oldest first.
// Bot-authored and subtype messages are filtered out.
func (c *Client) FetchRecent(ctx context.Context) ([]Message, error) {
	botID, err := c.BotUserID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: c.channelID,
		Limit:     c.fetchLimit,
	})
	if err != nil {
		return nil, merrors.NewAPIError("slack", 0, fmt.Sprintf("conversation history: %v", err))
	}

	msgs := make([]Message, 0, len(resp.Messages))
	// Slack returns newest first.
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		m := resp.Messages[i]
		if m.User == "" || m.User == botID || m.SubType == "bot_message" {
			continue
		}
		msgs = append(msgs, Message{
			ID:         m.Timestamp,
			AuthorID:   m.User,
			AuthorName: c.DisplayName(ctx, m.User),
			Text:       m.Text,
		})
	}
	return msgs, nil
}

// Send posts text to a channel or user ID. Slack opens a DM conversation
// automatically when target is a user ID.
func (c *Client) Send(ctx context.Context, target, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, target,
		slack.MsgOptionText(text, false))
	if err != nil {
		return merrors.NewAPIError("slack", 0, fmt.Sprintf("post to %s: %v", target, err))
	}
	return nil
}

// ChannelMembers lists the user IDs present in the polled channel.
func (c *Client) ChannelMembers(ctx context.Context) ([]string, error) {
	users, _, err := c.api.GetUsersInConversationContext(ctx, &slack.GetUsersInConversationParameters{
		ChannelID: c.channelID,
	})
	if err != nil {
		return nil, merrors.NewAPIError("slack", 0, fmt.Sprintf("conversation members: %v", err))
	}
	return users, nil
}

// DisplayName resolves a user ID to a human name, caching results.
// Falls back to the raw ID when the lookup fails.
func (c *Client) DisplayName(ctx context.Context, userID string) string {
	c.mu.Lock()
	if name, ok := c.names[userID]; ok {
		c.mu.Unlock()
		return name
	}
	c.mu.Unlock()

	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		c.logger.Warn().Err(err).Str("user", userID).Msg("user info lookup failed")
		return userID
	}
	name := user.Profile.DisplayName
	if name == "" {
		name = user.RealName
	}
	if name == "" {
		name = userID
	}

	c.mu.Lock()
	c.names[userID] = name
	c.mu.Unlock()
	return name
}
