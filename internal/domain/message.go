package domain

import (
	"context"
	"time"
)

// Message is one chat message fetched from a source channel. Messages are
// immutable once fetched and unique by ID within their channel.
type Message struct {
	ID        string
	ChannelID string
	Author    string
	Timestamp time.Time
	Content   string
}

// ChannelInfo labels a source channel for transcript headers.
type ChannelInfo struct {
	ID   string
	Name string
}

// Transcript is the merged, ordered plain-text view of everything fetched in
// one run. Channel order follows configuration order; messages within a
// channel are oldest first.
type Transcript struct {
	ChannelCount int
	MessageCount int
	ChannelNames []string
	Body         string
}

// Empty reports whether there is nothing to summarize. An empty transcript is
// a valid outcome, not an error.
func (t Transcript) Empty() bool { return t.MessageCount == 0 }

// Chunk is one size-bounded segment of the digest, suitable for a single
// delivery call. Concatenating a chunk sequence in index order reproduces the
// digest text exactly.
type Chunk struct {
	Index int
	Text  string
}

// CredentialKind distinguishes the preferred posting identity from the
// delivery fallback.
type CredentialKind string

const (
	CredentialPrimary   CredentialKind = "primary"
	CredentialSecondary CredentialKind = "secondary"
)

// Credential is an opaque bearer identity. The token is passed to the
// transport boundary verbatim; no pipeline component inspects it.
type Credential struct {
	Kind  CredentialKind
	Token string
}

// Set reports whether the credential carries a token at all.
func (c Credential) Set() bool { return c.Token != "" }

// RunInputs is the fully resolved, immutable input of one pipeline run,
// produced once at the configuration boundary.
type RunInputs struct {
	Profile          string
	SourceChannelIDs []string
	OutputChannelID  string
	Hours            int
	Limit            int // advisory only, does not bound the fetch window
	Debug            bool
	PromptTemplate   string
	Footer           string
}

// HistorySource reads channel metadata and paginated message history from the
// source API.
type HistorySource interface {
	// ChannelInfo resolves a channel's display name.
	ChannelInfo(ctx context.Context, channelID string) (ChannelInfo, error)
	// MessagesBefore returns up to limit messages strictly before the given
	// message ID, newest first. An empty beforeID starts from the present.
	MessagesBefore(ctx context.Context, channelID string, limit int, beforeID string) ([]Message, error)
}

// Poster posts a single message to a channel.
type Poster interface {
	Post(ctx context.Context, channelID, content string) error
}

// Summarizer condenses a transcript into digest text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt, transcript string) (string, error)
}
