// Package notify delivers bot messages to the channel and to members,
// parking undeliverable ones for later replay.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scrum-maestro/agent/internal/metrics"
	"github.com/scrum-maestro/agent/internal/store"
)

// Sender posts a message to a channel or user ID.
type Sender interface {
	Send(ctx context.Context, target, text string) error
}

// DeadLetterStore persists undelivered messages.
type DeadLetterStore interface {
	SaveDeadLetter(dl *store.DeadLetter) error
	ListRetryable(limit int) ([]*store.DeadLetter, error)
	IncrementRetry(id string, nextRetryAt int64) error
	ResolveDeadLetter(id string) error
}

const (
	maxRetries     = 5
	firstRetryWait = time.Minute
	replayBatch    = 20
)

// Notifier sends best-effort messages. A delivery failure is logged and
// parked as a dead letter rather than surfaced to the caller.
type Notifier struct {
	sender  Sender
	channel string
	letters DeadLetterStore
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a notifier that broadcasts to the given channel ID.
func New(sender Sender, channel string, letters DeadLetterStore, m *metrics.Metrics, logger zerolog.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		channel: channel,
		letters: letters,
		metrics: m,
		logger:  logger.With().Str("component", "notify").Logger(),
		now:     time.Now,
	}
}

// Broadcast posts text to the bot's channel.
func (n *Notifier) Broadcast(ctx context.Context, text string) {
	n.deliver(ctx, n.channel, text)
}

// Direct sends text to a single user.
func (n *Notifier) Direct(ctx context.Context, userID, text string) {
	n.deliver(ctx, userID, text)
}

func (n *Notifier) deliver(ctx context.Context, target, text string) {
	if err := n.sender.Send(ctx, target, text); err != nil {
		n.logger.Error().Err(err).Str("target", target).Msg("delivery failed, parking dead letter")
		n.metrics.RecordError("notify", "delivery")
		n.park(target, text, err)
		return
	}
}

func (n *Notifier) park(target, text string, cause error) {
	dl := &store.DeadLetter{
		ID:          uuid.NewString(),
		Target:      target,
		Message:     text,
		Error:       cause.Error(),
		CreatedAt:   n.now().UnixMilli(),
		NextRetryAt: n.now().Add(firstRetryWait).UnixMilli(),
	}
	if err := n.letters.SaveDeadLetter(dl); err != nil {
		n.logger.Error().Err(err).Msg("failed to park dead letter")
	}
}

// ReplayDeadLetters attempts redelivery of parked messages whose retry
// time has arrived. Meant to run as a scheduled job.
func (n *Notifier) ReplayDeadLetters(ctx context.Context) error {
	letters, err := n.letters.ListRetryable(replayBatch)
	if err != nil {
		return err
	}
	n.metrics.DeadLettersQueued.Set(float64(len(letters)))
	for _, dl := range letters {
		if err := n.sender.Send(ctx, dl.Target, dl.Message); err == nil {
			if rerr := n.letters.ResolveDeadLetter(dl.ID); rerr != nil {
				n.logger.Error().Err(rerr).Str("id", dl.ID).Msg("failed to resolve dead letter")
			}
			n.logger.Info().Str("id", dl.ID).Str("target", dl.Target).Msg("dead letter redelivered")
			continue
		}

		next := int64(0)
		if dl.RetryCount+1 < maxRetries {
			// exponential backoff: 1m, 2m, 4m, 8m
			wait := firstRetryWait << uint(dl.RetryCount+1)
			next = n.now().Add(wait).UnixMilli()
		} else {
			n.logger.Warn().Str("id", dl.ID).Str("target", dl.Target).Msg("dead letter exhausted retries")
		}
		if ierr := n.letters.IncrementRetry(dl.ID, next); ierr != nil {
			n.logger.Error().Err(ierr).Str("id", dl.ID).Msg("failed to record retry")
		}
	}
	return nil
}
