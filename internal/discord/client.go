// Package discord wraps the Discord REST API behind the pipeline's source and
// delivery boundaries. One Client holds one credential; the run builds a
// client per identity it needs.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"chandigest/internal/domain"

	"github.com/bwmarrin/discordgo"
)

// MaxMessageLen is the platform ceiling for a single posted message.
const MaxMessageLen = 2000

// Client is a REST-only Discord client bound to a single credential. It never
// opens a gateway connection.
type Client struct {
	session *discordgo.Session
	kind    domain.CredentialKind
	logger  *slog.Logger
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Credential domain.Credential
	Logger     *slog.Logger
}

// NewClient creates a client for the given credential. The token is used as
// the Authorization header verbatim, so bot tokens must already carry their
// "Bot " prefix.
func NewClient(cfg ClientConfig) (*Client, error) {
	if !cfg.Credential.Set() {
		return nil, fmt.Errorf("discord client: empty %s credential", cfg.Credential.Kind)
	}

	session, err := discordgo.New(cfg.Credential.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}

	// Rate-limit handling belongs to the fetch and delivery stages, which
	// need to observe 429s to apply their own bounded retry budgets.
	session.ShouldRetryOnRateLimit = false
	session.MaxRestRetries = 0

	return &Client{
		session: session,
		kind:    cfg.Credential.Kind,
		logger:  cfg.Logger,
	}, nil
}

// ChannelInfo resolves a channel's display name.
func (c *Client) ChannelInfo(ctx context.Context, channelID string) (domain.ChannelInfo, error) {
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.ChannelInfo{}, classify(err)
	}
	return domain.ChannelInfo{ID: ch.ID, Name: ch.Name}, nil
}

// MessagesBefore returns up to limit messages strictly before beforeID,
// newest first, as the source API orders them.
func (c *Client) MessagesBefore(ctx context.Context, channelID string, limit int, beforeID string) ([]domain.Message, error) {
	msgs, err := c.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err)
	}

	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, domain.Message{
			ID:        m.ID,
			ChannelID: channelID,
			Author:    authorName(m),
			Timestamp: m.Timestamp,
			Content:   m.Content,
		})
	}
	return out, nil
}

// Post sends one message to a channel.
func (c *Client) Post(ctx context.Context, channelID, content string) error {
	if _, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return classify(err)
	}
	return nil
}

// Identity returns the username behind the credential. Used by doctor checks.
func (c *Client) Identity(ctx context.Context) (string, error) {
	u, err := c.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", classify(err)
	}
	return u.Username, nil
}

func authorName(m *discordgo.Message) string {
	if m.Author == nil {
		return "unknown"
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
