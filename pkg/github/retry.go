package github

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ekexium/gimme-release-notes/pkg/types"
)

// retryWithBackoff calls f until it succeeds, fails with an error that is
// not worth retrying, or the retries are exhausted. The wait grows linearly.
func retryWithBackoff(ctx context.Context, retries int, delay time.Duration, logger *slog.Logger, f func() error) error {
	var err error
	for i := 0; i <= retries; i++ {
		err = f()
		if err == nil || !retryable(err) || i == retries {
			return err
		}

		wait := time.Duration(i+1) * delay
		logger.Warn("request failed, retrying", "error", err, "attempt", i+1, "wait", wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}

	return errors.Is(err, types.ErrTransport)
}
