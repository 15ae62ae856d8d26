package fetch

import (
	"fmt"
	"strings"

	"chandigest/internal/domain"
)

// ChannelResult is one channel's settled fetch. The slice handed to
// BuildTranscript must follow the configured channel order regardless of
// which fetches completed first.
type ChannelResult struct {
	Channel  domain.ChannelInfo
	Messages []domain.Message
	Err      error
}

// BuildTranscript merges completed channel fetches into one transcript.
// Failed channels are skipped entirely; channels that fetched successfully
// count toward the header even when they contributed no messages. Each line
// carries the channel and author so the summarizer can attribute statements.
func BuildTranscript(results []ChannelResult) domain.Transcript {
	var (
		body  strings.Builder
		names []string
		count int
	)

	for _, r := range results {
		if r.Err != nil {
			continue
		}
		names = append(names, r.Channel.Name)
		for _, m := range r.Messages {
			if m.Content == "" {
				continue
			}
			fmt.Fprintf(&body, "[%s] %s: %s\n", r.Channel.Name, m.Author, m.Content)
			count++
		}
	}

	return domain.Transcript{
		ChannelCount: len(names),
		MessageCount: count,
		ChannelNames: names,
		Body:         body.String(),
	}
}
