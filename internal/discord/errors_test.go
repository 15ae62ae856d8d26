package discord

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"chandigest/internal/domain"

	"github.com/bwmarrin/discordgo"
)

func restError(status int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
	}
}

func TestClassify_Unauthorized(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		err := classify(restError(status))
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("status %d: expected ErrUnauthorized, got %v", status, err)
		}
	}
}

func TestClassify_NotFound(t *testing.T) {
	if err := classify(restError(http.StatusNotFound)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClassify_BadRequest(t *testing.T) {
	if err := classify(restError(http.StatusBadRequest)); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestClassify_RateLimitCarriesRetryAfter(t *testing.T) {
	src := &discordgo.RateLimitError{
		RateLimit: &discordgo.RateLimit{
			TooManyRequests: &discordgo.TooManyRequests{RetryAfter: 3 * time.Second},
		},
	}

	err := classify(src)
	var rl *domain.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if rl.RetryAfter != 3*time.Second {
		t.Fatalf("expected RetryAfter=3s, got %s", rl.RetryAfter)
	}
}

func TestClassify_PassthroughUnknown(t *testing.T) {
	src := errors.New("connection reset")
	if err := classify(src); !errors.Is(err, src) {
		t.Fatalf("expected passthrough, got %v", err)
	}
}
