package notify

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrum-maestro/agent/internal/metrics"
	"github.com/scrum-maestro/agent/internal/store"
)

type fakeSender struct {
	sent    []sentMsg
	failFor map[string]error
}

type sentMsg struct {
	target, text string
}

func (f *fakeSender) Send(ctx context.Context, target, text string) error {
	if err, ok := f.failFor[target]; ok {
		return err
	}
	f.sent = append(f.sent, sentMsg{target, text})
	return nil
}

type fakeLetters struct {
	saved     []*store.DeadLetter
	retryable []*store.DeadLetter
	resolved  []string
	retries   map[string]int64
}

func (f *fakeLetters) SaveDeadLetter(dl *store.DeadLetter) error {
	f.saved = append(f.saved, dl)
	return nil
}

func (f *fakeLetters) ListRetryable(limit int) ([]*store.DeadLetter, error) {
	return f.retryable, nil
}

func (f *fakeLetters) IncrementRetry(id string, nextRetryAt int64) error {
	if f.retries == nil {
		f.retries = make(map[string]int64)
	}
	f.retries[id] = nextRetryAt
	return nil
}

func (f *fakeLetters) ResolveDeadLetter(id string) error {
	f.resolved = append(f.resolved, id)
	return nil
}

func newNotifier(s *fakeSender, l *fakeLetters) *Notifier {
	n := New(s, "C123", l, metrics.New(), zerolog.New(os.Stderr))
	n.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return n
}

func TestBroadcastAndDirect(t *testing.T) {
	s := &fakeSender{}
	l := &fakeLetters{}
	n := newNotifier(s, l)

	n.Broadcast(context.Background(), "hello channel")
	n.Direct(context.Background(), "U1", "hello you")

	require.Len(t, s.sent, 2)
	assert.Equal(t, sentMsg{"C123", "hello channel"}, s.sent[0])
	assert.Equal(t, sentMsg{"U1", "hello you"}, s.sent[1])
	assert.Empty(t, l.saved)
}

func TestDeliveryFailureParksDeadLetter(t *testing.T) {
	s := &fakeSender{failFor: map[string]error{"C123": errors.New("rate limited")}}
	l := &fakeLetters{}
	n := newNotifier(s, l)

	n.Broadcast(context.Background(), "doomed")

	require.Len(t, l.saved, 1)
	dl := l.saved[0]
	assert.Equal(t, "C123", dl.Target)
	assert.Equal(t, "doomed", dl.Message)
	assert.Equal(t, "rate limited", dl.Error)
	assert.NotEmpty(t, dl.ID)
	assert.Greater(t, dl.NextRetryAt, dl.CreatedAt)
}

func TestReplay_SuccessResolves(t *testing.T) {
	s := &fakeSender{}
	l := &fakeLetters{retryable: []*store.DeadLetter{
		{ID: "dl1", Target: "U1", Message: "retry me"},
	}}
	n := newNotifier(s, l)

	require.NoError(t, n.ReplayDeadLetters(context.Background()))
	require.Len(t, s.sent, 1)
	assert.Equal(t, []string{"dl1"}, l.resolved)
}

func TestReplay_FailureBacksOff(t *testing.T) {
	s := &fakeSender{failFor: map[string]error{"U1": errors.New("still down")}}
	l := &fakeLetters{retryable: []*store.DeadLetter{
		{ID: "dl1", Target: "U1", Message: "retry me", RetryCount: 1},
	}}
	n := newNotifier(s, l)

	require.NoError(t, n.ReplayDeadLetters(context.Background()))
	assert.Empty(t, l.resolved)
	next := l.retries["dl1"]
	// retry count 1 means the next wait is 4m
	want := n.now().Add(4 * time.Minute).UnixMilli()
	assert.Equal(t, want, next)
}

func TestReplay_GivesUpAfterMaxRetries(t *testing.T) {
	s := &fakeSender{failFor: map[string]error{"U1": errors.New("still down")}}
	l := &fakeLetters{retryable: []*store.DeadLetter{
		{ID: "dl1", Target: "U1", Message: "retry me", RetryCount: maxRetries - 1},
	}}
	n := newNotifier(s, l)

	require.NoError(t, n.ReplayDeadLetters(context.Background()))
	assert.Equal(t, int64(0), l.retries["dl1"])
}
