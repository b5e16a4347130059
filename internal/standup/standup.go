package standup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrum-maestro/agent/internal/config"
	merrors "github.com/scrum-maestro/agent/internal/errors"
	"github.com/scrum-maestro/agent/internal/llm"
)

const (
	summaryHeader = "*:clipboard: Daily Standup Summary:*\n"
	noUpdatesMsg  = summaryHeader + "No standup updates received today."
	greetingMsg   = ":brain: Good morning team! What did you do yesterday? What are you working on today? Any blockers?"

	apologyBusy    = "Sorry, I couldn’t process that request at the moment."
	apologyTimeout = "Sorry, the AI is taking too long to respond. Please try again later."
)

// Roster resolves channel membership for the missing-update reminder.
type Roster interface {
	ChannelMembers(ctx context.Context) ([]string, error)
	BotUserID(ctx context.Context) (string, error)
	DisplayName(ctx context.Context, userID string) string
}

// Announcer posts to the channel.
type Announcer interface {
	Broadcast(ctx context.Context, text string)
}

// Summarizer periodically condenses the buffered updates into one
// channel post and nudges members who have not reported.
type Summarizer struct {
	buffer   *Buffer
	oracle   llm.Oracle
	roster   Roster
	notifier Announcer
	rules    *config.Rules
	warmup   time.Duration
	started  time.Time
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a summarizer. warmup delays the first summary after start
// so a freshly booted bot does not immediately report an empty day.
func New(buffer *Buffer, oracle llm.Oracle, roster Roster, notifier Announcer, rules *config.Rules, warmup time.Duration, logger zerolog.Logger) *Summarizer {
	return &Summarizer{
		buffer:   buffer,
		oracle:   oracle,
		roster:   roster,
		notifier: notifier,
		rules:    rules,
		warmup:   warmup,
		started:  time.Now(),
		logger:   logger.With().Str("component", "standup").Logger(),
		now:      time.Now,
	}
}

// Run posts one standup summary. Meant to run as a scheduled job.
func (s *Summarizer) Run(ctx context.Context) error {
	if s.now().Sub(s.started) < s.warmup {
		return nil
	}

	updates := s.buffer.Drain()
	if len(updates) == 0 {
		s.notifier.Broadcast(ctx, noUpdatesMsg)
		return nil
	}

	grouped, order := groupByOwner(updates)

	var conversation strings.Builder
	for i, owner := range order {
		if i > 0 {
			conversation.WriteByte('\n')
		}
		conversation.WriteString(owner)
		conversation.WriteString(": ")
		conversation.WriteString(strings.Join(grouped[owner], " "))
	}

	prompt := s.rules.SummaryPromptHeader + conversation.String() + s.rules.SummaryPromptFooter
	summary, err := s.oracle.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn().Err(err).Msg("summary generation failed")
		summary = apologyFor(err)
	}
	s.notifier.Broadcast(ctx, summaryHeader+summary)

	s.remindMissing(ctx, grouped)
	return nil
}

// remindMissing nudges channel members who contributed no update.
func (s *Summarizer) remindMissing(ctx context.Context, grouped map[string][]string) {
	botID, err := s.roster.BotUserID(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cannot resolve bot id for missing-member check")
		return
	}
	members, err := s.roster.ChannelMembers(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cannot list channel members")
		return
	}

	var missing []string
	for _, uid := range members {
		if uid == botID {
			continue
		}
		if _, ok := grouped[s.roster.DisplayName(ctx, uid)]; ok {
			continue
		}
		missing = append(missing, "<@"+uid+">")
	}
	if len(missing) == 0 {
		return
	}
	s.notifier.Broadcast(ctx,
		fmt.Sprintf("⏰ Friendly reminder to submit your standup updates: %s", strings.Join(missing, ", ")))
}

// Greet posts the morning standup prompt. Meant to run once a day.
func (s *Summarizer) Greet(ctx context.Context) error {
	s.notifier.Broadcast(ctx, greetingMsg)
	return nil
}

func groupByOwner(updates []Update) (map[string][]string, []string) {
	grouped := make(map[string][]string)
	var order []string
	for _, u := range updates {
		if _, ok := grouped[u.Owner]; !ok {
			order = append(order, u.Owner)
		}
		grouped[u.Owner] = append(grouped[u.Owner], u.Text)
	}
	return grouped, order
}

func apologyFor(err error) string {
	if merrors.IsTimeout(err) {
		return apologyTimeout
	}
	return apologyBusy
}
