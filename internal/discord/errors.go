package discord

import (
	"errors"
	"fmt"
	"net/http"

	"chandigest/internal/domain"

	"github.com/bwmarrin/discordgo"
)

// classify maps discordgo errors onto the domain error taxonomy so the fetch
// and delivery stages can branch without importing discordgo.
func classify(err error) error {
	var rle *discordgo.RateLimitError
	if errors.As(err, &rle) {
		return &domain.RateLimitedError{RetryAfter: rle.RetryAfter}
	}

	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
		case http.StatusTooManyRequests:
			return &domain.RateLimitedError{}
		}
	}

	return err
}
