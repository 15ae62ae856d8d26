package deliver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"chandigest/internal/domain"
	"chandigest/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockPoster records posted content and fails according to failWith.
type mockPoster struct {
	failWith error
	posts    []string
}

func (m *mockPoster) Post(ctx context.Context, channelID, content string) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.posts = append(m.posts, content)
	return nil
}

func chunks(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{Index: i, Text: t}
	}
	return out
}

func TestDeliver_PrimarySucceeds(t *testing.T) {
	primary := &mockPoster{}
	secondary := &mockPoster{}
	s := NewSender(SenderConfig{Primary: primary, Secondary: secondary, Logger: testLogger()})

	outcomes, err := s.Deliver(context.Background(), "out", chunks("one", "two"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(primary.posts) != 2 || len(secondary.posts) != 0 {
		t.Fatalf("expected all posts via primary, got %d/%d", len(primary.posts), len(secondary.posts))
	}
	for _, o := range outcomes {
		if o.Err != nil || o.Credential != domain.CredentialPrimary {
			t.Fatalf("unexpected outcome: %+v", o)
		}
	}
}

func TestDeliver_FallbackPrecedence(t *testing.T) {
	// Primary always fails, secondary always succeeds: every chunk is
	// delivered exactly once via the secondary.
	primary := &mockPoster{failWith: fmt.Errorf("%w: missing access", domain.ErrUnauthorized)}
	secondary := &mockPoster{}
	counters := metrics.NewRunCounters()
	s := NewSender(SenderConfig{Primary: primary, Secondary: secondary, Counters: counters, Logger: testLogger()})

	outcomes, err := s.Deliver(context.Background(), "out", chunks("a", "b", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(secondary.posts) != 3 {
		t.Fatalf("expected 3 secondary posts, got %d", len(secondary.posts))
	}
	for _, o := range outcomes {
		if o.Err != nil {
			t.Fatalf("chunk %d should have been delivered: %v", o.Index, o.Err)
		}
		if o.Credential != domain.CredentialSecondary {
			t.Fatalf("chunk %d delivered via %s, expected secondary", o.Index, o.Credential)
		}
	}
	if counters.ChunksDelivered.Value() != 3 || counters.ChunksFailed.Value() != 0 {
		t.Fatalf("unexpected counters: %+v", counters.Snapshot())
	}
}

func TestDeliver_SequenceOrderPreserved(t *testing.T) {
	primary := &mockPoster{}
	s := NewSender(SenderConfig{Primary: primary, Logger: testLogger()})

	_, err := s.Deliver(context.Background(), "out", chunks("1", "2", "3", "4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, got := range primary.posts {
		if want := fmt.Sprintf("%d", i+1); got != want {
			t.Fatalf("post %d out of order: got %q", i, got)
		}
	}
}

func TestDeliver_BothFailRunContinues(t *testing.T) {
	primary := &mockPoster{failWith: errors.New("primary down")}
	secondary := &mockPoster{failWith: errors.New("secondary down")}
	s := NewSender(SenderConfig{Primary: primary, Secondary: secondary, Logger: testLogger()})

	outcomes, err := s.Deliver(context.Background(), "out", chunks("a", "b"))
	if err != nil {
		t.Fatalf("per-chunk failures must not abort the run, got %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected outcomes for every chunk, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Err == nil {
			t.Fatalf("chunk %d should be marked failed", o.Index)
		}
	}
}

func TestDeliver_NoSecondaryCredential(t *testing.T) {
	primary := &mockPoster{failWith: errors.New("nope")}
	s := NewSender(SenderConfig{Primary: primary, Logger: testLogger()})

	outcomes, err := s.Deliver(context.Background(), "out", chunks("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcomes[0].Err == nil {
		t.Fatal("chunk should be marked failed without a fallback")
	}
}

func TestDeliver_MalformedRequestAborts(t *testing.T) {
	primary := &mockPoster{failWith: fmt.Errorf("%w: body too long", domain.ErrBadRequest)}
	secondary := &mockPoster{}
	s := NewSender(SenderConfig{Primary: primary, Secondary: secondary, Logger: testLogger()})

	outcomes, err := s.Deliver(context.Background(), "out", chunks("a", "b"))
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest abort, got %v", err)
	}
	if len(secondary.posts) != 0 {
		t.Fatal("malformed request must not be retried with the fallback")
	}
	if len(outcomes) != 0 {
		t.Fatalf("no outcome should be recorded for the aborting chunk, got %d", len(outcomes))
	}
}

func TestDeliver_ContextCancelledAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &mockPoster{failWith: context.Canceled}
	s := NewSender(SenderConfig{Primary: primary, Logger: testLogger()})

	_, err := s.Deliver(ctx, "out", chunks("a"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
