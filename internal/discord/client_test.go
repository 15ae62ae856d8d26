package discord

import (
	"log/slog"
	"os"
	"testing"

	"chandigest/internal/domain"

	"github.com/bwmarrin/discordgo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient(ClientConfig{
		Credential: domain.Credential{Kind: domain.CredentialPrimary},
		Logger:     testLogger(),
	})
	if err == nil {
		t.Fatal("expected error for empty credential")
	}
}

func TestNewClient_DisablesInternalRateLimitRetry(t *testing.T) {
	c, err := NewClient(ClientConfig{
		Credential: domain.Credential{Kind: domain.CredentialSecondary, Token: "user-token"},
		Logger:     testLogger(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.session.ShouldRetryOnRateLimit {
		t.Fatal("session must surface 429s instead of retrying internally")
	}
}

func TestAuthorName(t *testing.T) {
	cases := []struct {
		name string
		msg  *discordgo.Message
		want string
	}{
		{"nil author", &discordgo.Message{}, "unknown"},
		{"username only", &discordgo.Message{Author: &discordgo.User{Username: "alice"}}, "alice"},
		{"global name preferred", &discordgo.Message{Author: &discordgo.User{Username: "alice", GlobalName: "Alice W"}}, "Alice W"},
	}
	for _, tc := range cases {
		if got := authorName(tc.msg); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}
