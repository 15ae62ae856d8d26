// Package deliver splits digest text into platform-sized chunks and posts
// them to the output channel with an ordered credential fallback.
package deliver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chandigest/internal/domain"
	"chandigest/internal/metrics"
	"chandigest/internal/ratelimit"
)

// Sender delivers chunks strictly in sequence order. Each chunk is attempted
// with the primary poster and, on failure, retried exactly once with the
// secondary. A chunk that fails both ways is recorded and delivery moves on;
// only a malformed-request rejection aborts the run, since retrying it with
// another credential cannot succeed.
type Sender struct {
	primary   domain.Poster
	secondary domain.Poster
	pace      *ratelimit.Limiter
	counters  *metrics.RunCounters
	logger    *slog.Logger
}

// SenderConfig configures a Sender. Secondary may be nil when no fallback
// credential is available.
type SenderConfig struct {
	Primary   domain.Poster
	Secondary domain.Poster
	Pace      *ratelimit.Limiter
	Counters  *metrics.RunCounters
	Logger    *slog.Logger
}

// NewSender creates a Sender.
func NewSender(cfg SenderConfig) *Sender {
	if cfg.Counters == nil {
		cfg.Counters = metrics.NewRunCounters()
	}
	return &Sender{
		primary:   cfg.Primary,
		secondary: cfg.Secondary,
		pace:      cfg.Pace,
		counters:  cfg.Counters,
		logger:    cfg.Logger,
	}
}

// Deliver posts every chunk to channelID in sequence order and returns the
// per-chunk outcomes. A non-nil error means delivery was aborted (cancelled
// context or a malformed request); outcomes up to that point are still
// returned.
func (s *Sender) Deliver(ctx context.Context, channelID string, chunks []domain.Chunk) ([]domain.ChunkOutcome, error) {
	outcomes := make([]domain.ChunkOutcome, 0, len(chunks))

	for _, chunk := range chunks {
		if err := s.pace.Wait(ctx); err != nil {
			return outcomes, err
		}

		outcome, err := s.deliverChunk(ctx, channelID, chunk)
		if err != nil {
			return outcomes, err
		}
		if outcome.Err == nil {
			s.counters.ChunksDelivered.Add(1)
		} else {
			s.counters.ChunksFailed.Add(1)
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// deliverChunk runs the two-step state machine for one chunk:
// AttemptPrimary -> (success | AttemptSecondary) -> (success | Failed).
func (s *Sender) deliverChunk(ctx context.Context, channelID string, chunk domain.Chunk) (domain.ChunkOutcome, error) {
	outcome := domain.ChunkOutcome{Index: chunk.Index}

	primaryErr := s.primary.Post(ctx, channelID, chunk.Text)
	if primaryErr == nil {
		outcome.Credential = domain.CredentialPrimary
		return outcome, nil
	}
	if fatal := abortReason(ctx, chunk, primaryErr); fatal != nil {
		return outcome, fatal
	}

	if s.secondary == nil {
		s.logger.Error("chunk delivery failed, no fallback credential",
			"chunk", chunk.Index, "err", primaryErr)
		outcome.Err = primaryErr
		return outcome, nil
	}

	s.logger.Warn("primary delivery failed, retrying with secondary",
		"chunk", chunk.Index, "err", primaryErr)

	secondaryErr := s.secondary.Post(ctx, channelID, chunk.Text)
	if secondaryErr == nil {
		outcome.Credential = domain.CredentialSecondary
		return outcome, nil
	}
	if fatal := abortReason(ctx, chunk, secondaryErr); fatal != nil {
		return outcome, fatal
	}

	s.logger.Error("chunk delivery failed with both credentials",
		"chunk", chunk.Index, "primary_err", primaryErr, "secondary_err", secondaryErr)
	outcome.Err = fmt.Errorf("primary: %v; secondary: %w", primaryErr, secondaryErr)
	return outcome, nil
}

// abortReason decides whether a delivery error ends the whole run instead of
// being fallback-eligible.
func abortReason(ctx context.Context, chunk domain.Chunk, err error) error {
	if errors.Is(err, domain.ErrBadRequest) {
		return fmt.Errorf("chunk %d rejected as malformed, aborting delivery: %w", chunk.Index, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}
