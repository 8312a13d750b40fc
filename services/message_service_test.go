package services

import (
	"context"
	"estate-match/domain"
	"estate-match/domain/event"
	"estate-match/errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestMessageService_Three_Party_Message_Notifies_The_Two_Others(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	// Given an inquiry conversation between an agent, a buyer and an owner
	agent := env.agent(env.plan(5))
	owner := env.owner()
	buyer := env.user(domain.User{Type: domain.Buyer, Name: "Bob"})
	property := env.property(owner, "Loft")
	inquiry, err := env.inquiry.Create(ctx, buyer.ID, property.ID, agent.ID, "Is it available?")
	req.NoError(err)
	c, err := env.inquiry.CreateConversation(ctx, inquiry.ID)
	req.NoError(err)

	agentInbox, ownerInbox, buyerInbox := env.listen(agent.ID), env.listen(owner.ID), env.listen(buyer.ID)

	// When the buyer writes
	_, err = env.message.Create(ctx, c.ID, buyer.ID, "Can I visit on Friday?")
	req.NoError(err)

	// Then the agent and the owner get exactly one notification each, the buyer none
	toAgent, toOwner := agentInbox.Drain(), ownerInbox.Drain()
	req.Len(toAgent, 1)
	req.Len(toOwner, 1)
	req.Empty(buyerInbox.Drain())

	notification, ok := toAgent[0].(event.UserNotification)
	req.True(ok)
	req.Equal(c.ID, notification.ConversationID)
	req.Equal("Bob", notification.SenderName)
	req.Equal("Inquiry from Bob - Loft", notification.ConversationTitle)
	req.Equal("Can I visit on Friday?", notification.Message.Content)
}

func TestMessageService_Create_Updates_Conversation_Activity(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	agent := env.agent(env.plan(5))
	owner := env.owner()
	c, err := env.conversation.StartAgentConversation(ctx, agent.ID, env.property(owner, "Loft").ID)
	req.NoError(err)
	req.Nil(c.LastMessageAt)

	env.now = env.now.Add(30 * time.Minute)
	_, err = env.message.Create(ctx, c.ID, agent.ID, "hello")
	req.NoError(err)

	stored, err := env.conversation.Get(c.ID)
	req.NoError(err)
	req.NotNil(stored.LastMessageAt)
	req.True(stored.LastMessageAt.Equal(env.now))
}

func TestMessageService_Create_Rejects_Outsiders_And_Blank_Content(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	agent := env.agent(env.plan(5))
	owner := env.owner()
	c, err := env.conversation.StartAgentConversation(ctx, agent.ID, env.property(owner, "Loft").ID)
	req.NoError(err)

	_, err = env.message.Create(ctx, c.ID, env.buyer().ID, "let me in")
	req.ErrorIs(err, errors.ErrForbidden)

	_, err = env.message.Create(ctx, c.ID, agent.ID, "   ")
	req.ErrorIs(err, errors.ErrValidation)

	_, err = env.message.Create(ctx, c.ID, agent.ID, string(make([]byte, domain.MaxMessageLength+1)))
	req.ErrorIs(err, errors.ErrValidation)

	messages, next, err := env.message.List(c.ID, nil)
	req.NoError(err)
	req.Empty(messages)
	req.Nil(next)
}

func TestMessageService_Mark_As_Read_Sends_One_Receipt(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	agent := env.agent(env.plan(5))
	owner := env.owner()
	c, err := env.conversation.StartAgentConversation(ctx, agent.ID, env.property(owner, "Loft").ID)
	req.NoError(err)
	message, err := env.message.Create(ctx, c.ID, agent.ID, "hello")
	req.NoError(err)

	room := env.listen(agent.ID)
	env.registry.Subscribe(agent.ID, event.ConversationTopic(c.ID), room)

	// When the owner reads it twice
	read, err := env.message.MarkAsRead(ctx, message.ID, owner.ID)
	req.NoError(err)
	req.True(read.IsRead())
	_, err = env.message.MarkAsRead(ctx, message.ID, owner.ID)
	req.NoError(err)

	// Then a single receipt went out
	receipts := lo.Filter(room.Drain(), func(b event.Broadcast, _ int) bool {
		_, ok := b.(event.ReadReceipt)
		return ok
	})
	req.Len(receipts, 1)
	req.Equal(owner.ID, receipts[0].(event.ReadReceipt).ReaderID)

	// And the sender cannot mark its own message
	_, err = env.message.MarkAsRead(ctx, message.ID, agent.ID)
	req.ErrorIs(err, errors.ErrOwnMessage)
}

func TestMessageService_List_Pages_Newest_First(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	agent := env.agent(env.plan(5))
	owner := env.owner()
	c, err := env.conversation.StartAgentConversation(ctx, agent.ID, env.property(owner, "Loft").ID)
	req.NoError(err)
	for i := 0; i < 25; i++ {
		env.now = env.now.Add(time.Second)
		_, err = env.message.Create(ctx, c.ID, agent.ID, "ping")
		req.NoError(err)
	}

	page, next, err := env.message.List(c.ID, nil)
	req.NoError(err)
	req.Len(page, 20)
	req.NotNil(next)
	req.True(page[0].CreatedAt.After(page[19].CreatedAt))

	rest, next, err := env.message.List(c.ID, next)
	req.NoError(err)
	req.Len(rest, 5)
	req.Nil(next)
}
