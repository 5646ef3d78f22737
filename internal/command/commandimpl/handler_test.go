package commandimpl

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"

	mock_api "github.com/orgball2608/social-feed-bot/internal/api/mocks"
	mock_blob "github.com/orgball2608/social-feed-bot/internal/blob/mocks"
	"github.com/orgball2608/social-feed-bot/internal/composer"
	"github.com/orgball2608/social-feed-bot/internal/domain"
	"github.com/orgball2608/social-feed-bot/internal/feed"
	"github.com/orgball2608/social-feed-bot/internal/hydrator"
	"github.com/orgball2608/social-feed-bot/internal/ratelimit"
	"github.com/orgball2608/social-feed-bot/internal/render"
	"github.com/orgball2608/social-feed-bot/internal/session"
	mock_telegram "github.com/orgball2608/social-feed-bot/internal/telegram/mocks"
	mock_vote "github.com/orgball2608/social-feed-bot/internal/vote/mocks"
	"github.com/orgball2608/social-feed-bot/pkg/config"
	"github.com/orgball2608/social-feed-bot/pkg/errors"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

const (
	owner  = int64(42)
	chatID = int64(100)
)

var alice = session.Credential{Token: "tok", Claims: session.Claims{FullName: "Alice A", Username: "alice"}}

type denyAll struct{}

func (denyAll) Allow(int64) bool { return false }

type fixture struct {
	tg         *mock_telegram.MockClient
	api        *mock_api.MockClient
	votes      *mock_vote.MockResolver
	reconciler *feed.Reconciler
	cmd        *CommandImpl
}

func newFixture(t *testing.T, cred session.Credential, limiter ratelimit.Limiter) fixture {
	ctrl := gomock.NewController(t)
	f := fixture{
		tg:    mock_telegram.NewMockClient(ctrl),
		api:   mock_api.NewMockClient(ctrl),
		votes: mock_vote.NewMockResolver(ctrl),
	}
	h := hydrator.New(hydrator.Opts{Blobs: mock_blob.NewMockResolver(ctrl), Votes: f.votes, Logger: logger.NewNop()})

	lc := fxtest.NewLifecycle(t)
	f.reconciler = feed.New(feed.Opts{LC: lc, Hydrator: h, Credential: cred, Logger: logger.NewNop()})
	lc.RequireStart()
	t.Cleanup(func() {
		f.reconciler.Wait()
		lc.RequireStop()
	})

	cfg := &config.Config{}
	cfg.Telegram.User = owner
	cfg.Feed.RequestTimeout = time.Second

	if limiter == nil {
		limiter = ratelimit.NewInMemoryLimiter(100, time.Minute, 100)
	}

	f.cmd = New(Opts{
		Telegram:   f.tg,
		Loader:     feed.NewLoader(feed.LoaderOpts{Api: f.api, Reconciler: f.reconciler, Config: cfg, Logger: logger.NewNop()}),
		Reconciler: f.reconciler,
		Composer:   composer.New(composer.Opts{Api: f.api, Reconciler: f.reconciler, Logger: logger.NewNop()}),
		Renderer:   render.New(render.Opts{Telegram: f.tg, Reconciler: f.reconciler, Config: cfg, Logger: logger.NewNop()}),
		Limiter:    limiter,
		Logger:     logger.NewNop(),
		Config:     cfg,
	})
	return f
}

func commandMessage(from int64, text string) *tgbotapi.Message {
	head, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: from, UserName: "someone"},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(head)}},
	}
}

func TestCommandOf(t *testing.T) {
	tests := []struct {
		name    string
		msg     *tgbotapi.Message
		command string
		args    string
		ok      bool
	}{
		{name: "text command", msg: commandMessage(owner, "/post hello there"), command: "post", args: "hello there", ok: true},
		{name: "caption command", msg: &tgbotapi.Message{Caption: "/Post@feed_bot look"}, command: "post", args: "look", ok: true},
		{name: "caption without command", msg: &tgbotapi.Message{Caption: "just a photo"}},
		{name: "plain text", msg: &tgbotapi.Message{Text: "hello"}},
		{name: "bare slash", msg: &tgbotapi.Message{Caption: "/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, args, ok := commandOf(tt.msg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.command, command)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestHandleUpdate_Help(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)
	f.tg.EXPECT().SendMessage(chatID, helpMessage).Return(1, nil)

	// help is open to everyone.
	f.cmd.handleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(7, "/help")})
}

func TestHandleUpdate_Unknown(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)
	f.tg.EXPECT().SendMessage(chatID, gomock.Cond(func(s string) bool {
		return strings.HasPrefix(s, "Unknown command")
	})).Return(1, nil)

	f.cmd.handleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(owner, "/nope")})
}

func TestHandleUpdate_NotOwner(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)
	f.tg.EXPECT().SendMessage(chatID, "This bot only takes commands from its owner.").Return(1, nil)

	f.cmd.handleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(7, "/feed")})
}

func TestHandleUpdate_RateLimited(t *testing.T) {
	f := newFixture(t, session.Credential{}, denyAll{})
	f.tg.EXPECT().SendMessage(chatID, "⏳ Too many commands, please slow down.").Return(1, nil)

	f.cmd.handleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(owner, "/feed")})
}

func TestHandleUpdate_IgnoresPlainText(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)

	f.cmd.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "hi", Chat: &tgbotapi.Chat{ID: chatID}}})
}

func TestHandleFeed(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)
	f.api.EXPECT().FetchPosts(gomock.Any(), "").Return([]domain.Post{{ID: 2}, {ID: 1}}, nil)

	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "feed", "", nil))
	assert.Equal(t, chatID, f.cmd.Renderer.ChatID())
}

func TestHandleFeed_Empty(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)
	f.api.EXPECT().FetchPosts(gomock.Any(), "").Return(nil, errors.ErrServiceUnavailable)
	gomock.InOrder(
		f.tg.EXPECT().SendMessage(chatID, gomock.Cond(func(s string) bool {
			return strings.Contains(s, "Could not load the feed")
		})).Return(1, nil),
		f.tg.EXPECT().SendMessage(chatID, "The feed is empty.").Return(2, nil),
	)

	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "feed", "", nil))
}

func TestHandlePost(t *testing.T) {
	f := newFixture(t, alice, nil)
	f.votes.EXPECT().GetVoteState(gomock.Any(), gomock.Any(), "tok").Return(0, nil).AnyTimes()
	f.api.EXPECT().Publish(gomock.Any(), "tok", domain.PublishRequest{Content: "hello"}).
		Return(domain.Post{ID: 9, Content: "hello", Username: "alice"}, nil)
	f.tg.EXPECT().SendMessage(chatID, gomock.Cond(func(s string) bool {
		return strings.HasPrefix(s, "✅ Published post #9.")
	})).Return(1, nil)

	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "post", " hello ", nil))

	posts := f.reconciler.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "Alice A", posts[0].FullName)
}

func TestHandlePost_FailureKeepsDraft(t *testing.T) {
	f := newFixture(t, alice, nil)
	f.api.EXPECT().Publish(gomock.Any(), "tok", gomock.Any()).Return(domain.Post{}, errors.ErrServiceUnavailable)
	f.tg.EXPECT().SendMessage(chatID, gomock.Cond(func(s string) bool {
		return strings.Contains(s, "Your draft is kept")
	})).Return(1, nil)

	err := f.cmd.processCommand(context.Background(), chatID, "post", "hello", nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodePublishFailed, errors.GetCode(err))
	assert.Equal(t, "hello", f.cmd.Composer.Draft().Content)

	f.tg.EXPECT().SendMessage(chatID, gomock.Cond(func(s string) bool {
		return strings.HasPrefix(s, "📝 Draft") && strings.HasSuffix(s, "hello")
	})).Return(2, nil)
	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "draft", "", nil))

	f.tg.EXPECT().SendMessage(chatID, "🗑 Draft discarded.").Return(3, nil)
	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "discard", "", nil))
	assert.True(t, f.cmd.Composer.Draft().IsEmpty())
}

func TestHandlePost_Anonymous(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)
	f.tg.EXPECT().SendMessage(chatID, "🔒 Sign in with /login <token> before publishing.").Return(1, nil)

	err := f.cmd.processCommand(context.Background(), chatID, "post", "hello", nil)
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))
}

func TestHandleReply(t *testing.T) {
	f := newFixture(t, alice, nil)
	f.votes.EXPECT().GetVoteState(gomock.Any(), gomock.Any(), "tok").Return(0, nil).AnyTimes()
	f.api.EXPECT().Publish(gomock.Any(), "tok", domain.PublishRequest{Content: "me too", Thread: 3}).
		Return(domain.Post{ID: 10, Content: "me too"}, nil)
	f.tg.EXPECT().SendMessage(chatID, gomock.Any()).Return(1, nil)

	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "reply", "3 me too", nil))
}

func TestHandleReply_BadID(t *testing.T) {
	f := newFixture(t, alice, nil)
	f.tg.EXPECT().SendMessage(chatID, "Please provide a post id: /reply <post_id> <text>").Return(1, nil)

	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "reply", "abc text", nil))
}

func TestHandleRetry_NoDraft(t *testing.T) {
	f := newFixture(t, alice, nil)
	f.tg.EXPECT().SendMessage(chatID, "There is no draft to publish.").Return(1, nil)

	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "retry", "", nil))
}

func loadFeed(t *testing.T, f fixture, posts ...domain.Post) {
	t.Helper()
	f.reconciler.ReplaceAll(posts)
	f.reconciler.Wait()
}

func TestHandleVote(t *testing.T) {
	f := newFixture(t, alice, nil)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(1), "tok").Return(0, nil)
	loadFeed(t, f, domain.Post{ID: 1, Reputation: 4})

	f.votes.EXPECT().CastVote(gomock.Any(), int64(1), "tok", 1).Return(5, nil)
	f.tg.EXPECT().SendMessage(chatID, "Vote recorded (upvoted). Reputation is now 5.").Return(1, nil)

	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "up", "#1", nil))

	card, ok := f.reconciler.Card(1)
	require.True(t, ok)
	assert.Equal(t, domain.VoteUp, card.State().ViewModel.VoteState)
}

func TestHandleVote_Anonymous(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)
	loadFeed(t, f, domain.Post{ID: 1})

	f.tg.EXPECT().SendMessage(chatID, "🔒 Sign in with /login <token> to vote.").Return(1, nil)

	err := f.cmd.processCommand(context.Background(), chatID, "down", "1", nil)
	assert.True(t, errors.IsUnauthorized(err))
}

func TestHandleVote_UnknownPost(t *testing.T) {
	f := newFixture(t, alice, nil)
	f.tg.EXPECT().SendMessage(chatID, "Post #5 is not in the feed.").Return(1, nil)

	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "unvote", "5", nil))
}

func TestHandleComments(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)
	loadFeed(t, f, domain.Post{ID: 1, Comments: []domain.Comment{{Comment: "nice"}}})

	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "comments", "1", nil))

	card, ok := f.reconciler.Card(1)
	require.True(t, ok)
	assert.True(t, card.State().ViewModel.CommentsVisible)
}

func TestHandleLoginLogout(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)

	f.tg.EXPECT().SendMessage(chatID, "❌ That token could not be decoded.").Return(1, nil)
	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "login", "garbage", nil))
	assert.True(t, f.reconciler.Credential().IsAnonymous())

	f.api.EXPECT().FetchPosts(gomock.Any(), "").Return(nil, nil)
	f.tg.EXPECT().SendMessage(chatID, "Signed out, continuing as an anonymous viewer.").Return(2, nil)
	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "logout", "", nil))

	f.tg.EXPECT().SendMessage(chatID, "Anonymous viewer. Use /login <token> to sign in.").Return(3, nil)
	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "whoami", "", nil))
}

func TestHandleWhoAmI(t *testing.T) {
	f := newFixture(t, alice, nil)
	f.tg.EXPECT().SendMessage(chatID, "Signed in as Alice A (@alice)").Return(1, nil)

	require.NoError(t, f.cmd.processCommand(context.Background(), chatID, "whoami", "", nil))
}

func TestHandleCallback_Vote(t *testing.T) {
	f := newFixture(t, alice, nil)
	f.votes.EXPECT().GetVoteState(gomock.Any(), int64(1), "tok").Return(0, nil)
	loadFeed(t, f, domain.Post{ID: 1})

	f.votes.EXPECT().CastVote(gomock.Any(), int64(1), "tok", -1).Return(-1, nil)
	f.tg.EXPECT().Request(gomock.Cond(func(c tgbotapi.CallbackConfig) bool {
		return c.CallbackQueryID == "q1" && strings.HasPrefix(c.Text, "Vote recorded (downvoted)")
	})).Return(&tgbotapi.APIResponse{Ok: true}, nil)

	f.cmd.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: owner},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    render.CallbackData{Action: render.ActionVote, PostID: 1, Value: -1}.Encode(),
	})
}

func TestHandleCallback_NotOwner(t *testing.T) {
	f := newFixture(t, alice, nil)
	f.tg.EXPECT().Request(gomock.Cond(func(c tgbotapi.CallbackConfig) bool {
		return c.Text == "This bot only takes commands from its owner."
	})).Return(&tgbotapi.APIResponse{Ok: true}, nil)

	f.cmd.handleCallback(context.Background(), &tgbotapi.CallbackQuery{ID: "q2", From: &tgbotapi.User{ID: 7}})
}

func TestDownloadAttachments(t *testing.T) {
	f := newFixture(t, alice, nil)
	msg := &tgbotapi.Message{
		MessageID: 3,
		Photo:     []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
		Document:  &tgbotapi.Document{FileID: "doc", FileName: "notes.txt", MimeType: "text/plain"},
	}
	f.tg.EXPECT().DownloadFile(gomock.Any(), "large").Return([]byte("jpg"), nil)
	f.tg.EXPECT().DownloadFile(gomock.Any(), "doc").Return([]byte("txt"), nil)

	files, err := f.cmd.downloadAttachments(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, []domain.File{
		{Name: "photo_3.jpg", ContentType: "image/jpeg", Data: []byte("jpg")},
		{Name: "notes.txt", ContentType: "text/plain", Data: []byte("txt")},
	}, files)
}

func TestHandleCommand_StopsOnCancel(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)
	updates := make(chan tgbotapi.Update)
	f.tg.EXPECT().GetUpdatesChan(gomock.Any()).Return(tgbotapi.UpdatesChannel(updates))
	f.tg.EXPECT().StopReceivingUpdates()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.cmd.HandleCommand(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("HandleCommand did not stop")
	}
}

func TestHandleCommand_ClosedChannel(t *testing.T) {
	f := newFixture(t, session.Credential{}, nil)
	updates := make(chan tgbotapi.Update)
	close(updates)
	f.tg.EXPECT().GetUpdatesChan(gomock.Any()).Return(tgbotapi.UpdatesChannel(updates))

	err := f.cmd.HandleCommand(context.Background())
	require.Error(t, err)
}

func TestHandlePost_OverlappingPublishes(t *testing.T) {
	f := newFixture(t, alice, nil)
	f.votes.EXPECT().GetVoteState(gomock.Any(), gomock.Any(), "tok").Return(0, nil).AnyTimes()
	f.tg.EXPECT().SendMessage(chatID, gomock.Any()).Return(1, nil).Times(2)

	started := make(chan struct{})
	release := make(chan struct{})
	gomock.InOrder(
		f.api.EXPECT().Publish(gomock.Any(), "tok", domain.PublishRequest{Content: "first", Thread: 3}).DoAndReturn(
			func(context.Context, string, domain.PublishRequest) (domain.Post, error) {
				close(started)
				<-release
				return domain.Post{ID: 20, Content: "first"}, nil
			}),
		f.api.EXPECT().Publish(gomock.Any(), "tok", domain.PublishRequest{Content: "second"}).
			Return(domain.Post{ID: 21, Content: "second"}, nil),
	)

	first := make(chan error, 1)
	go func() { first <- f.cmd.processCommand(context.Background(), chatID, "reply", "3 first", nil) }()
	<-started

	second := make(chan error, 1)
	go func() { second <- f.cmd.processCommand(context.Background(), chatID, "post", "second", nil) }()

	// The second command waits for the first publish before touching the draft.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, domain.Draft{Content: "first", Thread: 3}, f.cmd.Composer.Draft())

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
	assert.True(t, f.cmd.Composer.Draft().IsEmpty())
	assert.Equal(t, []int64{21, 20}, []int64{f.reconciler.Posts()[0].ID, f.reconciler.Posts()[1].ID})
}
