package chat

import (
	"context"
	"os"
	"testing"

	"github.com/axiom-ai/axiom/pkg/llm"
	"github.com/axiom-ai/axiom/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func send(t *testing.T, env *testEnv, req SendRequest) *SendResult {
	t.Helper()
	if req.UserID == "" {
		req.UserID = "user-1"
	}
	res, err := env.svc.Send(context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestSend_EmptyMessage(t *testing.T) {
	env := newTestEnv(t, newFakeLLM(), nil)
	_, err := env.svc.Send(context.Background(), SendRequest{UserID: "user-1", Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	sessions, err := env.store.ListSessions(context.Background(), "user-1", 25)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSend_TextPrompt(t *testing.T) {
	env := newTestEnv(t, newFakeLLM("Go 1.25 shipped in August.\n\nSources:\n- go.dev"), nil)

	res := send(t, env, SendRequest{Text: "What changed in Go 1.25?"})
	assert.Equal(t, "Go 1.25 shipped in August.", res.AssistantMessage)
	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)

	calls := env.llm.Calls()
	require.Len(t, calls, 1)
	msgs := calls[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt}, msgs[0])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "What changed in Go 1.25?"}, msgs[1])
	require.NotNil(t, calls[0].Config.WebSearch)
	assert.True(t, *calls[0].Config.WebSearch)

	sess, err := env.store.GetSession(context.Background(), "user-1", res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "What changed in Go 1.25?", sess.Title)

	stored, err := env.store.ListMessages(context.Background(), res.SessionID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, models.MessageStatusComplete, stored[1].Status)
	assert.Equal(t, res.AssistantMessage, stored[1].Content)
}

func TestSend_HistoryWindow(t *testing.T) {
	env := newTestEnv(t, newFakeLLM("answer"), nil)

	first := send(t, env, SendRequest{Text: "question number 0"})
	for i := 1; i < 6; i++ {
		send(t, env, SendRequest{SessionID: first.SessionID, Text: "question number " + string(rune('0'+i))})
	}

	calls := env.llm.Calls()
	last := calls[len(calls)-1].Messages
	// System prompt plus the last 8 stored messages minus the pending placeholder.
	require.Len(t, last, 1+7)
	assert.Equal(t, llm.RoleSystem, last[0].Role)
	assert.Equal(t, "question number 5", last[len(last)-1].Content)
	for _, m := range last[1:] {
		assert.NotEmpty(t, m.Content)
	}
}

func TestSend_Smalltalk(t *testing.T) {
	env := newTestEnv(t, newFakeLLM(), nil)

	res := send(t, env, SendRequest{Text: "Hey!"})
	assert.Equal(t, GreetingReply, res.AssistantMessage)
	assert.Empty(t, env.llm.Calls())

	require.Len(t, *env.events, 1)
	assert.Equal(t, TopicMessageCompleted, (*env.events)[0].Topic)
}

func TestSend_Identity(t *testing.T) {
	env := newTestEnv(t, newFakeLLM(), nil)
	res := send(t, env, SendRequest{Text: "What model are you running?"})
	assert.Equal(t, IdentityReply, res.AssistantMessage)
	assert.Empty(t, env.llm.Calls())
}

func TestSend_SearchOverrideUsesExternalContext(t *testing.T) {
	search := &fakeSearch{}
	env := newTestEnv(t, newFakeLLM(), search)
	off := false

	res := send(t, env, SendRequest{Text: "latest go release", WebSearch: &off})

	assert.Equal(t, []string{"latest go release"}, search.queries)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "https://go.dev/doc/go1.25", res.Sources[0].URL)

	call := env.llm.Calls()[0]
	require.NotNil(t, call.Config.WebSearch)
	assert.False(t, *call.Config.WebSearch)
	require.GreaterOrEqual(t, len(call.Messages), 3)
	assert.Equal(t, llm.RoleSystem, call.Messages[1].Role)
	assert.Contains(t, call.Messages[1].Content, "Web search context:")
}

func TestSend_HostedSearchSkipsExternalContext(t *testing.T) {
	search := &fakeSearch{}
	env := newTestEnv(t, newFakeLLM(), search)

	res := send(t, env, SendRequest{Text: "latest go release"})
	assert.Empty(t, search.queries)
	assert.Empty(t, res.Sources)
}

func TestSend_ServerSearchDisabledCannotBeOverridden(t *testing.T) {
	fake := newFakeLLM()
	fake.defaults.EnableWebSearch = false
	env := newTestEnv(t, fake, nil)
	on := true

	send(t, env, SendRequest{Text: "latest go release", WebSearch: &on})
	assert.False(t, *env.llm.Calls()[0].Config.WebSearch)
}

func TestSend_ModelFailureIsGraceful(t *testing.T) {
	fake := newFakeLLM()
	fake.err = llm.NewProviderError(llm.ErrCodeTimeout, "request timed out", errBoom)
	env := newTestEnv(t, fake, nil)

	res := send(t, env, SendRequest{Text: "explain the CAP theorem"})
	assert.Equal(t, UnavailableReply, res.AssistantMessage)

	msgs, err := env.store.ListMessages(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, UnavailableReply, msgs[len(msgs)-1].Content)
}

func TestSend_NotConfigured(t *testing.T) {
	fake := newFakeLLM()
	fake.err = llm.NewProviderError(llm.ErrCodeNotConfigured, "not configured", nil)
	env := newTestEnv(t, fake, nil)

	res := send(t, env, SendRequest{Text: "explain the CAP theorem"})
	assert.Equal(t, NotConfiguredReply, res.AssistantMessage)

	noLLM := newTestEnv(t, nil, nil)
	res = send(t, noLLM, SendRequest{Text: "explain the CAP theorem"})
	assert.Equal(t, NotConfiguredReply, res.AssistantMessage)
}

func TestSend_Events(t *testing.T) {
	env := newTestEnv(t, newFakeLLM("done"), nil)
	res := send(t, env, SendRequest{Text: "explain the CAP theorem"})

	events := *env.events
	require.Len(t, events, 2)
	assert.Equal(t, TopicMessagePending, events[0].Topic)
	assert.Equal(t, models.MessageStatusPending, events[0].Payload.Status)
	assert.Equal(t, TopicMessageCompleted, events[1].Topic)
	assert.Equal(t, "done", events[1].Payload.Content)
	assert.Equal(t, "user-1", events[1].Payload.UserID)
	assert.Equal(t, res.MessageID, events[1].Payload.MessageID)
	assert.Equal(t, events[0].Payload.MessageID, events[1].Payload.MessageID)
}

func TestSend_SessionOwnership(t *testing.T) {
	env := newTestEnv(t, newFakeLLM(), nil)
	res := send(t, env, SendRequest{UserID: "alice", Text: "explain the CAP theorem"})

	_, err := env.svc.Send(context.Background(), SendRequest{UserID: "mallory", SessionID: res.SessionID, Text: "hijack"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = env.svc.Send(context.Background(), SendRequest{UserID: "alice", SessionID: "no-such-session", Text: "hello there"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSend_ImagePrompt(t *testing.T) {
	fake := newFakeLLM("A red bicycle leaning on a wall.", "It is a road bike.")
	search := &fakeSearch{}
	env := newTestEnv(t, fake, search)

	res := send(t, env, SendRequest{Text: "What bike is this?", Image: pngBytes(t, 1600, 1200)})
	assert.Equal(t, "It is a road bike.", res.AssistantMessage)

	calls := fake.Calls()
	require.Len(t, calls, 2)

	vision := calls[0]
	assert.Equal(t, visionPrompt, vision.Messages[0].Content)
	require.Len(t, vision.Messages[1].Images, 1)
	assert.False(t, *vision.Config.WebSearch)

	answer := calls[1]
	assert.False(t, *answer.Config.WebSearch)
	user := answer.Messages[len(answer.Messages)-1]
	assert.Equal(t, "What bike is this?\nImage summary: A red bicycle leaning on a wall.", user.Content)
	require.Len(t, user.Images, 1)
	assert.Equal(t, "image/jpeg", user.Images[0].MediaType)

	assert.Equal(t, []string{"What bike is this? A red bicycle leaning on a wall."}, search.queries)

	msgs, err := env.store.ListMessages(context.Background(), res.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs[0].Attachments, 1)
	att := msgs[0].Attachments[0]
	assert.Equal(t, 1024, att.Width)
	assert.Equal(t, 768, att.Height)
	_, err = os.Stat(att.Path)
	assert.NoError(t, err)
}

func TestSend_ImageDescriptionTruncated(t *testing.T) {
	long := make([]rune, 900)
	for i := range long {
		long[i] = 'x'
	}
	fake := newFakeLLM(string(long), "ok")
	env := newTestEnv(t, fake, nil)

	send(t, env, SendRequest{Image: pngBytes(t, 32, 32)})
	user := fake.Calls()[1].Messages[1]
	assert.Equal(t, "Image summary: "+string(long[:500]), user.Content)
	assert.Equal(t, "Describe the image.", fake.Calls()[0].Messages[1].Content)
}

func TestSend_InvalidImageWritesNothing(t *testing.T) {
	env := newTestEnv(t, newFakeLLM(), nil)
	_, err := env.svc.Send(context.Background(), SendRequest{UserID: "user-1", Text: "look", Image: []byte("nope")})
	assert.ErrorIs(t, err, ErrInvalidImage)

	sessions, err := env.store.ListSessions(context.Background(), "user-1", 25)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestDeleteSession_RemovesFiles(t *testing.T) {
	env := newTestEnv(t, newFakeLLM("a", "b"), nil)
	res := send(t, env, SendRequest{Text: "what is this", Image: pngBytes(t, 16, 16)})

	msgs, err := env.store.ListMessages(context.Background(), res.SessionID)
	require.NoError(t, err)
	path := msgs[0].Attachments[0].Path

	require.NoError(t, env.svc.DeleteSession(context.Background(), "user-1", res.SessionID))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, env.svc.DeleteSession(context.Background(), "user-1", res.SessionID), ErrSessionNotFound)
}

func TestAsk(t *testing.T) {
	fake := newFakeLLM("Paris.\nSources: wiki")
	env := newTestEnv(t, fake, nil)

	res, err := env.svc.Ask(context.Background(), "capital of france", nil)
	require.NoError(t, err)
	assert.Equal(t, "Paris.", res.AssistantMessage)
	assert.Empty(t, res.SessionID)

	res, err = env.svc.Ask(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, GreetingReply, res.AssistantMessage)

	fake.err = errBoom
	_, err = env.svc.Ask(context.Background(), "capital of spain", nil)
	assert.ErrorIs(t, err, errBoom)
}

func TestModule_Answer(t *testing.T) {
	off := false
	env := newTestEnv(t, newFakeLLM("Paris."), &fakeSearch{})
	m := &Module{service: env.svc}

	got, err := m.Answer(context.Background(), "capital of france", nil)
	require.NoError(t, err)
	assert.Equal(t, "Paris.", got.Text)
	assert.NotNil(t, got.Sources)

	got, err = m.Answer(context.Background(), "capital of france", &off)
	require.NoError(t, err)
	assert.Equal(t, "Paris.", got.Text)

	_, err = (&Module{}).Answer(context.Background(), "capital of france", nil)
	assert.Error(t, err)

	_, err = m.Answer(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
