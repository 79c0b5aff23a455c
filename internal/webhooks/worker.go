package webhooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/rs/zerolog"
)

var errRetryable = errors.New("retryable webhook failure")

// Worker posts queued deliveries to a single URL, signing bodies with
// Secret when set.
type Worker struct {
	Pub         *Publisher
	URL         string
	Secret      string
	HTTP        *http.Client
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      zerolog.Logger
}

func NewWorker(pub *Publisher, url, secret string, maxAttempts int, logger zerolog.Logger) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Worker{
		Pub:         pub,
		URL:         url,
		Secret:      secret,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Second,
		Logger:      logger,
	}
}

// Run delivers until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		d, ok := w.Pub.Next(ctx)
		if !ok {
			return nil
		}
		if err := w.deliver(ctx, &d); err != nil && ctx.Err() == nil {
			w.Logger.Warn().Err(err).Str("id", d.ID).Int("attempts", d.Attempts).Msg("webhook delivery failed")
		}
	}
}

func (w *Worker) deliver(ctx context.Context, d *Delivery) error {
	return retry.Do(
		func() error {
			d.Attempts++
			return w.post(ctx, *d)
		},
		retry.Context(ctx),
		retry.Attempts(uint(w.MaxAttempts)),
		retry.Delay(w.BaseDelay),
		retry.MaxDelay(time.Minute),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errRetryable) }),
		retry.LastErrorOnly(true),
	)
}

func (w *Worker) post(ctx context.Context, d Delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.EventType)
	req.Header.Set("X-Event-Id", d.ID)
	if w.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(w.Secret, d.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Unrecoverable(err)
		}
		return fmt.Errorf("%w: %v", errRetryable, err)
	}
	_ = resp.Body.Close()
	w.Logger.Debug().Str("id", d.ID).Int("code", resp.StatusCode).Dur("latency", time.Since(start)).Msg("webhook posted")
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d", errRetryable, resp.StatusCode)
	default:
		return retry.Unrecoverable(fmt.Errorf("webhook HTTP %d", resp.StatusCode))
	}
}
