// Package responder replies to channel messages that mention the bot.
package responder

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scrum-maestro/agent/internal/chat"
	"github.com/scrum-maestro/agent/internal/config"
	"github.com/scrum-maestro/agent/internal/dedup"
	merrors "github.com/scrum-maestro/agent/internal/errors"
	"github.com/scrum-maestro/agent/internal/llm"
	"github.com/scrum-maestro/agent/internal/task"
)

const (
	apologyBusy    = "Sorry, I couldn’t process that request at the moment."
	apologyTimeout = "Sorry, the AI is taking too long to respond. Please try again later."
)

var taskIDPattern = regexp.MustCompile(`(?i)task\s*(\d+)`)

// MessageSource fetches recent channel messages.
type MessageSource interface {
	FetchRecent(ctx context.Context) ([]chat.Message, error)
	BotUserID(ctx context.Context) (string, error)
}

// TaskLookup fetches a single task for prompt context.
type TaskLookup interface {
	GetTask(taskID string) (*task.Task, error)
}

// Announcer posts to the channel.
type Announcer interface {
	Broadcast(ctx context.Context, text string)
}

// Responder answers the first pending bot mention each cycle. Later
// mentions in the same cycle wait for a following pass. Messages already
// consumed by ingestion are not answered.
type Responder struct {
	source   MessageSource
	seen     *dedup.Set
	tasks    TaskLookup
	oracle   llm.Oracle
	notifier Announcer
	rules    *config.Rules
	botName  string
	logger   zerolog.Logger
}

// New creates a mention responder sharing the ingestion seen-set.
func New(source MessageSource, seen *dedup.Set, tasks TaskLookup, oracle llm.Oracle, notifier Announcer, rules *config.Rules, botName string, logger zerolog.Logger) *Responder {
	return &Responder{
		source:   source,
		seen:     seen,
		tasks:    tasks,
		oracle:   oracle,
		notifier: notifier,
		rules:    rules,
		botName:  botName,
		logger:   logger.With().Str("component", "responder").Logger(),
	}
}

// Run performs one reply pass.
func (r *Responder) Run(ctx context.Context) error {
	botID, err := r.source.BotUserID(ctx)
	if err != nil {
		return fmt.Errorf("resolving bot id: %w", err)
	}
	mention := "<@" + botID + ">"

	msgs, err := r.source.FetchRecent(ctx)
	if err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}

	replied := false
	skipped := 0
	for _, msg := range msgs {
		if r.seen.Seen(msg.ID) || !strings.Contains(msg.Text, mention) {
			continue
		}
		if replied {
			skipped++
			continue
		}
		r.reply(ctx, msg, mention)
		replied = true
	}
	if skipped > 0 {
		r.logger.Info().Int("skipped", skipped).Msg("deferring additional mentions to next pass")
	}
	return nil
}

func (r *Responder) reply(ctx context.Context, msg chat.Message, mention string) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(msg.Text, mention, ""))

	prompt := r.rules.ReplyPreamble + r.taskContext(cleaned) +
		fmt.Sprintf("\n\nMessage from %s:\n%s", msg.AuthorName, cleaned)

	answer, err := r.oracle.Complete(ctx, prompt)
	if err != nil {
		r.logger.Warn().Err(err).Str("message", msg.ID).Msg("reply generation failed")
		if merrors.IsTimeout(err) {
			answer = apologyTimeout
		} else {
			answer = apologyBusy
		}
	}
	r.notifier.Broadcast(ctx, fmt.Sprintf("*%s to %s*: %s", r.botName, msg.AuthorName, answer))
	r.logger.Info().Str("message", msg.ID).Str("author", msg.AuthorName).Msg("replied to mention")
}

// taskContext enriches the prompt with the record of a task referenced as
// "task <digits>" in the message, when that task exists.
func (r *Responder) taskContext(text string) string {
	m := taskIDPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	t, err := r.tasks.GetTask(m[1])
	if err != nil {
		r.logger.Warn().Err(err).Str("task", m[1]).Msg("task lookup for reply context failed")
		return ""
	}
	if t == nil {
		return ""
	}
	return fmt.Sprintf(
		"\n\nContext from the task store:\n- Task ID: %s\n- Description: %s\n- Due Date: %s\n- Progress: %s\n",
		t.TaskID, t.Description, t.DueAt.Format("2006-01-02"), t.Progress)
}
