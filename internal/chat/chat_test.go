package chat

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlack struct {
	history     []slack.Message
	historyErr  error
	posted      []postedMsg
	postErr     error
	users       map[string]*slack.User
	members     []string
	botUserID   string
	authCalls   int
	lookupCalls int
}

type postedMsg struct {
	target string
}

func (f *fakeSlack) GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	resp := &slack.GetConversationHistoryResponse{}
	resp.Messages = f.history
	return resp, nil
}

func (f *fakeSlack) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	if f.postErr != nil {
		return "", "", f.postErr
	}
	f.posted = append(f.posted, postedMsg{target: channelID})
	return channelID, "1.0", nil
}

func (f *fakeSlack) GetUserInfoContext(ctx context.Context, user string) (*slack.User, error) {
	f.lookupCalls++
	u, ok := f.users[user]
	if !ok {
		return nil, errors.New("user_not_found")
	}
	return u, nil
}

func (f *fakeSlack) GetUsersInConversationContext(ctx context.Context, params *slack.GetUsersInConversationParameters) ([]string, string, error) {
	return f.members, "", nil
}

func (f *fakeSlack) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	f.authCalls++
	return &slack.AuthTestResponse{UserID: f.botUserID}, nil
}

func slackMsg(user, ts, text, subtype string) slack.Message {
	m := slack.Message{}
	m.User = user
	m.Timestamp = ts
	m.Text = text
	m.SubType = subtype
	return m
}

func newTestClient(f *fakeSlack) *Client {
	return newClient(f, "C123", 30, zerolog.New(os.Stderr))
}

func TestFetchRecent_FiltersAndOrders(t *testing.T) {
	f := &fakeSlack{
		botUserID: "UBOT",
		history: []slack.Message{
			slackMsg("U2", "3.0", "newest", ""),
			slackMsg("UBOT", "2.5", "from the bot", ""),
			slackMsg("", "2.0", "channel join", "channel_join"),
			slackMsg("U3", "1.5", "webhook", "bot_message"),
			slackMsg("U1", "1.0", "oldest", ""),
		},
		users: map[string]*slack.User{},
	}

	c := newTestClient(f)
	msgs, err := c.FetchRecent(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "oldest", msgs[0].Text)
	assert.Equal(t, "newest", msgs[1].Text)
	assert.Equal(t, "1.0", msgs[0].ID)
}

func TestBotUserID_Cached(t *testing.T) {
	f := &fakeSlack{botUserID: "UBOT"}
	c := newTestClient(f)

	id, err := c.BotUserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UBOT", id)

	_, err = c.BotUserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.authCalls)
}

func TestDisplayName_CachesAndFallsBack(t *testing.T) {
	f := &fakeSlack{
		users: map[string]*slack.User{
			"U1": {Profile: slack.UserProfile{DisplayName: "alice"}},
		},
	}
	c := newTestClient(f)

	assert.Equal(t, "alice", c.DisplayName(context.Background(), "U1"))
	assert.Equal(t, "alice", c.DisplayName(context.Background(), "U1"))
	assert.Equal(t, 1, f.lookupCalls)

	// unknown user falls back to the raw ID and is not cached
	assert.Equal(t, "U9", c.DisplayName(context.Background(), "U9"))
}

func TestSend(t *testing.T) {
	f := &fakeSlack{}
	c := newTestClient(f)

	require.NoError(t, c.Send(context.Background(), "U1", "hi"))
	require.Len(t, f.posted, 1)
	assert.Equal(t, "U1", f.posted[0].target)

	f.postErr = errors.New("channel_not_found")
	assert.Error(t, c.Send(context.Background(), "C9", "hi"))
}

func TestChannelMembers(t *testing.T) {
	f := &fakeSlack{members: []string{"U1", "U2"}}
	c := newTestClient(f)

	members, err := c.ChannelMembers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"U1", "U2"}, members)
}
