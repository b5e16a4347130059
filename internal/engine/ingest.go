package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scrum-maestro/agent/internal/chat"
	"github.com/scrum-maestro/agent/internal/dedup"
	"github.com/scrum-maestro/agent/internal/metrics"
	"github.com/scrum-maestro/agent/internal/task"
)

// MessageSource fetches recent channel messages to ingest.
type MessageSource interface {
	FetchRecent(ctx context.Context) ([]chat.Message, error)
	BotUserID(ctx context.Context) (string, error)
}

// Extractor pulls task descriptors out of a raw message.
type Extractor interface {
	Extract(ctx context.Context, text string) []task.Descriptor
}

// UpdateSink collects raw updates for the daily standup summary.
type UpdateSink interface {
	Add(owner, text string)
}

// Ingestor polls the channel and feeds new status updates through
// extraction into the engine. Each message is processed at most once,
// tracked by its provider-assigned ID.
type Ingestor struct {
	source    MessageSource
	seen      *dedup.Set
	extractor Extractor
	engine    *Engine
	updates   UpdateSink
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewIngestor creates the ingestion pipeline.
func NewIngestor(source MessageSource, seen *dedup.Set, extractor Extractor, engine *Engine, updates UpdateSink, m *metrics.Metrics, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		source:    source,
		seen:      seen,
		extractor: extractor,
		engine:    engine,
		updates:   updates,
		metrics:   m,
		logger:    logger.With().Str("component", "ingest").Logger(),
	}
}

// Run performs one ingestion pass. Messages addressed to the bot are
// marked seen but skipped here. The mention responder reads the same
// seen-set and only answers mentions an ingest pass has not yet seen.
func (i *Ingestor) Run(ctx context.Context) error {
	botID, err := i.source.BotUserID(ctx)
	if err != nil {
		return fmt.Errorf("resolving bot id: %w", err)
	}
	mention := "<@" + botID + ">"

	msgs, err := i.source.FetchRecent(ctx)
	if err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}

	for _, msg := range msgs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i.seen.Seen(msg.ID) {
			i.metrics.RecordMessage("duplicate")
			continue
		}
		if strings.Contains(msg.Text, mention) {
			i.seen.Mark(msg.ID)
			i.metrics.RecordMessage("mention")
			continue
		}
		i.seen.Mark(msg.ID)
		i.ingest(ctx, msg)
	}
	return nil
}

func (i *Ingestor) ingest(ctx context.Context, msg chat.Message) {
	i.updates.Add(msg.AuthorName, msg.Text)

	descs := i.extractor.Extract(ctx, msg.Text)
	if len(descs) == 0 {
		i.metrics.RecordMessage("no_descriptors")
		return
	}
	i.metrics.RecordMessage("extracted")

	for _, d := range descs {
		if err := i.engine.Apply(ctx, d, msg.Text, msg.AuthorName, msg.AuthorID); err != nil {
			i.logger.Error().Err(err).Str("task", d.TaskID).Str("message", msg.ID).Msg("failed to apply descriptor")
			i.metrics.RecordDescriptor("failed")
			i.metrics.RecordError("ingest", "apply")
			continue
		}
		i.metrics.RecordDescriptor("applied")
	}
}
