package worker

// email_worker.go
// Sends mails queued on QueueEmail (close reports today).

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"posmarket/internal/infra"

	"github.com/rs/zerolog/log"
)

// maxAttempts per job before it goes to the DLQ.
const maxAttempts = 3

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail        string `json:"to_email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentPath string `json:"attachment_path,omitempty"`
}

// MailSender is the part of infra.Mailer the worker needs.
type MailSender interface {
	Send(to, subject, body, attachmentPath string) error
}

type EmailWorker struct {
	mailer MailSender
	// backoff is the first retry delay; doubled on each retry.
	backoff time.Duration
}

func NewEmailWorker(mailer MailSender) *EmailWorker {
	return &EmailWorker{mailer: mailer, backoff: time.Second}
}

func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	err := withRetry(ctx, maxAttempts, w.backoff, func(attempt int) error {
		err := w.mailer.Send(payload.ToEmail, payload.Subject, payload.Body, payload.AttachmentPath)
		// An unconfigured relay or an open breaker won't heal within this job;
		// the DLQ replayer retries it later.
		if errors.Is(err, infra.ErrMailerDisabled) || errors.Is(err, infra.ErrCircuitOpen) {
			return fmt.Errorf("%w: %w", errPermanent, err)
		}
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("to", payload.ToEmail).
				Msg("email_worker: send failed")
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("email_worker: %w", err)
	}
	log.Info().Str("to", payload.ToEmail).Str("subject", payload.Subject).Msg("email_worker: mail sent")
	return nil
}

// errPermanent stops withRetry early.
var errPermanent = errors.New("permanent failure")

// withRetry calls fn up to attempts times with exponential backoff
// (base, 2·base, …). Errors wrapping errPermanent are not retried.
func withRetry(ctx context.Context, attempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := base * time.Duration(1<<uint(i-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		lastErr = fn(i)
		if lastErr == nil || errors.Is(lastErr, errPermanent) {
			return lastErr
		}
	}
	return lastErr
}
