package service

import (
	"context"
	"strings"
	"testing"

	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushed struct {
	event websocket.Event
	to    []uint
}

type recordingNotifier struct {
	events []pushed
	joined map[uint]uint
}

func (r *recordingNotifier) SendToUsers(event websocket.Event, userIDs ...uint) error {
	r.events = append(r.events, pushed{event: event, to: userIDs})
	return nil
}

func (r *recordingNotifier) Join(userID, conversationID uint) {
	r.joined[userID] = conversationID
}

func (r *recordingNotifier) Leave(userID, _ uint) {
	delete(r.joined, userID)
}

type chatFixture struct {
	env      *testEnv
	svc      ChatService
	notifier *recordingNotifier
	owner    *model.User
	customer *model.User
	vendor   *model.Vendor
}

func setupChatServiceTest(t *testing.T) *chatFixture {
	env := setupServiceTest(t)
	notifier := &recordingNotifier{joined: map[uint]uint{}}
	owner := env.createUser(t, "owner", model.RoleVendor)
	return &chatFixture{
		env:      env,
		svc:      NewChatService(env.chatRepo, env.vendorRepo, notifier),
		notifier: notifier,
		owner:    owner,
		customer: env.createUser(t, "customer", model.RoleUser),
		vendor:   env.createVendor(t, owner.ID, VendorInput{BusinessName: "Sharma Tailors", Category: "Tailor"}),
	}
}

func TestChatService_StartConversationIsIdempotent(t *testing.T) {
	f := setupChatServiceTest(t)
	ctx := context.Background()

	conv, created, err := f.svc.StartConversation(ctx, f.customer.ID, f.vendor.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, f.owner.ID, conv.VendorOwnerID)
	assert.Equal(t, "Sharma Tailors", conv.VendorName)

	again, created, err := f.svc.StartConversation(ctx, f.customer.ID, f.vendor.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	_, _, err = f.svc.StartConversation(ctx, f.owner.ID, f.vendor.ID)
	assert.ErrorIs(t, err, ErrOwnVendorChat)
	_, _, err = f.svc.StartConversation(ctx, f.customer.ID, "missing")
	assert.ErrorIs(t, err, ErrVendorNotFound)
}

func TestChatService_SendMessage(t *testing.T) {
	f := setupChatServiceTest(t)
	ctx := context.Background()
	conv, _, err := f.svc.StartConversation(ctx, f.customer.ID, f.vendor.ID)
	require.NoError(t, err)

	msg, err := f.svc.SendMessage(ctx, conv.ID, f.customer.ID, "  Is the shop open on Sunday?  ")
	require.NoError(t, err)
	assert.Equal(t, "Is the shop open on Sunday?", msg.Text)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, websocket.EventMessage, f.notifier.events[0].event.Type)
	assert.ElementsMatch(t, []uint{f.owner.ID, f.customer.ID}, f.notifier.events[0].to)

	stored, err := f.svc.GetConversation(ctx, conv.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Is the shop open on Sunday?", stored.LastMessage)
	assert.Equal(t, 1, stored.VendorUnread)
	assert.Equal(t, 0, stored.UserUnread)

	_, err = f.svc.SendMessage(ctx, conv.ID, f.customer.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = f.svc.SendMessage(ctx, conv.ID, f.customer.ID, strings.Repeat("a", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	outsider := f.env.createUser(t, "outsider", model.RoleUser)
	_, err = f.svc.SendMessage(ctx, conv.ID, outsider.ID, "hello")
	assert.ErrorIs(t, err, ErrNotParticipant)
	_, err = f.svc.SendMessage(ctx, 9999, f.customer.ID, "hello")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestChatService_ListAndMarkRead(t *testing.T) {
	f := setupChatServiceTest(t)
	ctx := context.Background()
	conv, _, err := f.svc.StartConversation(ctx, f.customer.ID, f.vendor.ID)
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.svc.SendMessage(ctx, conv.ID, f.customer.ID, text)
		require.NoError(t, err)
	}

	messages, total, err := f.svc.ListMessages(ctx, conv.ID, f.owner.ID, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, messages, 2)
	assert.Equal(t, "three", messages[0].Text)

	convs, total, err := f.svc.ListConversations(ctx, f.owner.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, 3, convs[0].VendorUnread)

	require.NoError(t, f.svc.MarkRead(ctx, conv.ID, f.owner.ID))
	stored, err := f.svc.GetConversation(ctx, conv.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.VendorUnread)

	last := f.notifier.events[len(f.notifier.events)-1]
	assert.Equal(t, websocket.EventRead, last.event.Type)
	assert.Equal(t, []uint{f.customer.ID}, last.to)
}

func TestChatService_JoinRequiresParticipant(t *testing.T) {
	f := setupChatServiceTest(t)
	ctx := context.Background()
	conv, _, err := f.svc.StartConversation(ctx, f.customer.ID, f.vendor.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.JoinConversation(ctx, conv.ID, f.customer.ID))
	assert.Equal(t, conv.ID, f.notifier.joined[f.customer.ID])

	outsider := f.env.createUser(t, "outsider", model.RoleUser)
	assert.ErrorIs(t, f.svc.JoinConversation(ctx, conv.ID, outsider.ID), ErrNotParticipant)

	f.svc.LeaveConversation(conv.ID, f.customer.ID)
	assert.NotContains(t, f.notifier.joined, f.customer.ID)
}
