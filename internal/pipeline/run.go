// Package pipeline wires the fetch fan-out, transcript assembly,
// summarization, chunking, and delivery stages into one run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chandigest/internal/deliver"
	"chandigest/internal/domain"
	"chandigest/internal/fetch"
	"chandigest/internal/metrics"

	"github.com/google/uuid"
)

// Pipeline executes one ingestion-aggregation-delivery run.
type Pipeline struct {
	source     domain.HistorySource
	fetcher    *fetch.Fetcher
	summarizer domain.Summarizer
	sender     *deliver.Sender
	counters   *metrics.RunCounters
	maxMsgLen  int
	out        io.Writer
	logger     *slog.Logger
	now        func() time.Time
}

// Config configures a Pipeline. Sender may be nil only for debug-mode runs.
type Config struct {
	Source     domain.HistorySource
	Fetcher    *fetch.Fetcher
	Summarizer domain.Summarizer
	Sender     *deliver.Sender
	Counters   *metrics.RunCounters
	MaxMsgLen  int
	Out        io.Writer
	Logger     *slog.Logger
	Now        func() time.Time
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Counters == nil {
		cfg.Counters = metrics.NewRunCounters()
	}
	return &Pipeline{
		source:     cfg.Source,
		fetcher:    cfg.Fetcher,
		summarizer: cfg.Summarizer,
		sender:     cfg.Sender,
		counters:   cfg.Counters,
		maxMsgLen:  cfg.MaxMsgLen,
		out:        cfg.Out,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// Run executes the pipeline for the given inputs. Channel-level and
// chunk-level failures are recorded on the report without aborting;
// summarization failure or a malformed delivery request fails the run.
func (p *Pipeline) Run(ctx context.Context, in domain.RunInputs) (*domain.Report, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "profile", in.Profile)
	cutoff := p.now().Add(-time.Duration(in.Hours) * time.Hour)

	logger.Info("fetching channels",
		"channels", len(in.SourceChannelIDs), "hours", in.Hours, "debug", in.Debug)

	results := p.fetchAll(ctx, logger, in.SourceChannelIDs, cutoff)
	transcript := fetch.BuildTranscript(results)

	report := &domain.Report{
		RunID:        runID,
		Profile:      in.Profile,
		Channels:     channelOutcomes(results),
		MessageCount: transcript.MessageCount,
	}

	if transcript.Empty() {
		logger.Info("no messages in window, nothing to summarize")
		fmt.Fprintln(p.out, "No messages found.")
		report.Finish()
		p.logCounters(logger, report.Status)
		return report, nil
	}

	if in.Debug {
		p.printDebug(in, transcript)
		report.Finish()
		p.logCounters(logger, report.Status)
		return report, nil
	}

	logger.Info("generating summary", "messages", transcript.MessageCount)
	summary, err := p.summarizer.Summarize(ctx, in.PromptTemplate, transcript.Body)
	if err != nil {
		report.Status = domain.RunFailed
		return report, fmt.Errorf("summarize: %w", err)
	}

	digest := composeDigest(in, transcript, summary)
	chunks := deliver.Split(digest, p.maxMsgLen)

	logger.Info("delivering digest", "chunks", len(chunks), "channel_id", in.OutputChannelID)
	outcomes, err := p.sender.Deliver(ctx, in.OutputChannelID, chunks)
	report.Chunks = outcomes
	if err != nil {
		report.Status = domain.RunFailed
		return report, fmt.Errorf("deliver: %w", err)
	}

	report.Finish()
	p.logCounters(logger, report.Status)
	return report, nil
}

// logCounters emits the run's counter totals once the outcome is settled.
func (p *Pipeline) logCounters(logger *slog.Logger, status domain.RunStatus) {
	snap := p.counters.Snapshot()
	logger.Info("run complete",
		"status", status,
		"pages_fetched", snap.PagesFetched,
		"messages_fetched", snap.MessagesFetched,
		"rate_limit_retries", snap.RateLimitRetries,
		"chunks_delivered", snap.ChunksDelivered,
		"chunks_failed", snap.ChunksFailed)
}

// fetchAll runs one fetch task per configured channel and waits for all of
// them to settle. Results keep the configured order regardless of completion
// order.
func (p *Pipeline) fetchAll(ctx context.Context, logger *slog.Logger, channelIDs []string, cutoff time.Time) []fetch.ChannelResult {
	results := make([]fetch.ChannelResult, len(channelIDs))

	var wg sync.WaitGroup
	for i, id := range channelIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = p.fetchChannel(ctx, logger, id, cutoff)
		}(i, id)
	}
	wg.Wait()

	return results
}

func (p *Pipeline) fetchChannel(ctx context.Context, logger *slog.Logger, channelID string, cutoff time.Time) fetch.ChannelResult {
	res := fetch.ChannelResult{
		Channel: domain.ChannelInfo{ID: channelID, Name: "unknown-" + channelID},
	}

	if info, err := p.source.ChannelInfo(ctx, channelID); err == nil {
		res.Channel = info
	} else {
		logger.Warn("channel name lookup failed", "channel_id", channelID, "err", err)
	}

	msgs, err := p.fetcher.Window(ctx, channelID, cutoff)
	if err != nil {
		logger.Error("channel fetch failed, skipping channel",
			"channel_id", channelID, "err", err)
		res.Err = err
		return res
	}

	res.Messages = msgs
	logger.Info("channel fetched", "channel", res.Channel.Name, "messages", len(msgs))
	return res
}

func channelOutcomes(results []fetch.ChannelResult) []domain.ChannelOutcome {
	out := make([]domain.ChannelOutcome, 0, len(results))
	for _, r := range results {
		out = append(out, domain.ChannelOutcome{
			ChannelID: r.Channel.ID,
			Name:      r.Channel.Name,
			Messages:  len(r.Messages),
			Err:       r.Err,
		})
	}
	return out
}

// composeDigest frames the summary with a header naming the profile, the
// channels it covers, and the message count, plus the profile's footer.
func composeDigest(in domain.RunInputs, t domain.Transcript, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Aggregated Summary (%s) of %d Channels (%d msgs):**\n",
		in.Profile, t.ChannelCount, t.MessageCount)
	b.WriteString(strings.Join(t.ChannelNames, ", "))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(summary))
	if in.Footer != "" {
		b.WriteString("\n\n")
		b.WriteString(in.Footer)
	}
	return b.String()
}

// printDebug surfaces the raw transcript to the operator. No summarize and no
// delivery call happens on this path.
func (p *Pipeline) printDebug(in domain.RunInputs, t domain.Transcript) {
	divider := strings.Repeat("=", 50)
	fmt.Fprintln(p.out, divider)
	fmt.Fprintf(p.out, "AGGREGATED CONVERSATION (%s) - %d messages\n", in.Profile, t.MessageCount)
	fmt.Fprintln(p.out, strings.Join(t.ChannelNames, ", "))
	fmt.Fprintln(p.out, divider)
	fmt.Fprint(p.out, t.Body)
	fmt.Fprintln(p.out, divider)
}
