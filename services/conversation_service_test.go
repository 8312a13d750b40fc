package services

import (
	"context"
	"estate-match/domain"
	"estate-match/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConversationService_Quota_Allows_N_Properties_Then_Fails(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	// Given an agent whose plan allows 3 properties a month
	agent := env.agent(env.plan(3))
	owner := env.owner()

	// When contacting 3 distinct properties
	for i := 0; i < 3; i++ {
		property := env.property(owner, "House")
		_, err := env.conversation.Create(ctx, CreateConversationCommand{
			Type: domain.AgentOwnerType, PropertyID: property.ID, AgentID: agent.ID, OwnerID: owner.ID,
		})
		req.NoError(err)
	}

	// Then the fourth one is refused with the limit in the message
	fourth := env.property(owner, "House")
	_, err := env.conversation.Create(ctx, CreateConversationCommand{
		Type: domain.AgentOwnerType, PropertyID: fourth.ID, AgentID: agent.ID, OwnerID: owner.ID,
	})
	req.ErrorIs(err, errors.ErrValidation)
	req.ErrorIs(err, errors.ErrQuotaExceeded)
	req.Contains(err.Error(), "3 properties")

	report, err := env.quota.Report(agent.ID, env.now)
	req.NoError(err)
	req.Equal(3, report.Count)
	req.True(report.Exceeded)
	req.False(report.CanStartNewConversation)
}

func TestConversationService_Same_Property_Does_Not_Consume_Quota(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	// Given an agent limited to 2 properties
	agent := env.agent(env.plan(2))
	owner := env.owner()
	p1, p2, p3 := env.property(owner, "P1"), env.property(owner, "P2"), env.property(owner, "P3")

	first, err := env.conversation.StartAgentConversation(ctx, agent.ID, p1.ID)
	req.NoError(err)
	_, err = env.conversation.StartAgentConversation(ctx, agent.ID, p2.ID)
	req.NoError(err)

	// When reaching P1 again
	again, err := env.conversation.StartAgentConversation(ctx, agent.ID, p1.ID)

	// Then the existing conversation comes back and the count stays put
	req.NoError(err)
	req.Equal(first.ID, again.ID)
	count, err := env.quota.MonthlyPropertyCount(agent.ID, env.now)
	req.NoError(err)
	req.Equal(2, count)

	// And a third property is out of quota
	_, err = env.conversation.StartAgentConversation(ctx, agent.ID, p3.ID)
	req.ErrorIs(err, errors.ErrQuotaExceeded)
	req.Contains(err.Error(), "2 properties")
}

func TestConversationService_Deleted_Conversation_Keeps_Its_Quota_Slot(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	agent := env.agent(env.plan(1))
	owner := env.owner()
	p1, p2 := env.property(owner, "P1"), env.property(owner, "P2")

	// Given a deleted conversation about P1
	c, err := env.conversation.StartAgentConversation(ctx, agent.ID, p1.ID)
	req.NoError(err)
	req.NoError(env.conversation.Delete(ctx, c.ID))

	// Then P1 still counts and can be contacted again, P2 cannot
	count, err := env.quota.MonthlyPropertyCount(agent.ID, env.now)
	req.NoError(err)
	req.Equal(1, count)
	_, err = env.conversation.StartAgentConversation(ctx, agent.ID, p1.ID)
	req.NoError(err)
	_, err = env.conversation.StartAgentConversation(ctx, agent.ID, p2.ID)
	req.ErrorIs(err, errors.ErrQuotaExceeded)
}

func TestConversationService_Quota_Restarts_Next_Month(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	agent := env.agent(env.plan(1))
	owner := env.owner()
	_, err := env.conversation.StartAgentConversation(ctx, agent.ID, env.property(owner, "March").ID)
	req.NoError(err)

	// When the calendar moves to April
	env.now = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	// Then a new property fits again
	_, err = env.conversation.StartAgentConversation(ctx, agent.ID, env.property(owner, "April").ID)
	req.NoError(err)
	count, err := env.quota.MonthlyPropertyCount(agent.ID, env.now)
	req.NoError(err)
	req.Equal(1, count)
}

func TestConversationService_Duplicate_Agent_Owner_Tuple_Fails_Validation(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	agent := env.agent(env.plan(5))
	owner := env.owner()
	property := env.property(owner, "Loft")
	cmd := CreateConversationCommand{Type: domain.AgentOwnerType, PropertyID: property.ID, AgentID: agent.ID, OwnerID: owner.ID}

	_, err := env.conversation.Create(ctx, cmd)
	req.NoError(err)
	_, err = env.conversation.Create(ctx, cmd)

	req.ErrorIs(err, errors.ErrValidation)
	req.ErrorIs(err, errors.ErrDuplicateConversation)
}

func TestConversationService_Participants_Must_Have_The_Right_Type(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	buyer := env.buyer()
	owner := env.owner()
	property := env.property(owner, "Loft")

	// When a buyer takes the agent slot
	_, err := env.conversation.Create(context.Background(), CreateConversationCommand{
		Type: domain.AgentOwnerType, PropertyID: property.ID, AgentID: buyer.ID, OwnerID: owner.ID,
	})

	// Then the record is invalid on that attribute
	var verrs domain.ValidationErrors
	req.ErrorAs(err, &verrs)
	req.Len(verrs.On("agent"), 1)
	req.Empty(verrs.On("owner"))
}

func TestConversationService_Only_Agents_Start_Owner_Conversations(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	owner := env.owner()
	property := env.property(owner, "Loft")

	_, err := env.conversation.StartAgentConversation(context.Background(), env.buyer().ID, property.ID)
	req.ErrorIs(err, errors.ErrForbidden)
}

func TestConversationService_Mark_As_Read_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	agent := env.agent(env.plan(5))
	owner := env.owner()
	c, err := env.conversation.StartAgentConversation(ctx, agent.ID, env.property(owner, "Loft").ID)
	req.NoError(err)

	// Given two messages from the agent and one from the owner
	for _, from := range []string{agent.ID, agent.ID, owner.ID} {
		_, err = env.message.Create(ctx, c.ID, from, "hello")
		req.NoError(err)
		env.now = env.now.Add(time.Minute)
	}

	// When the owner reads the conversation twice
	marked, err := env.conversation.MarkAsReadFor(ctx, c.ID, owner.ID)
	req.NoError(err)
	req.Equal(2, marked)
	marked, err = env.conversation.MarkAsReadFor(ctx, c.ID, owner.ID)
	req.NoError(err)
	req.Zero(marked)

	// Then nothing is left for the owner and the owner's own message is still unread for the agent
	unread, err := env.conversation.UnreadCountFor(c.ID, owner.ID)
	req.NoError(err)
	req.Zero(unread)
	unread, err = env.conversation.UnreadCountFor(c.ID, agent.ID)
	req.NoError(err)
	req.Equal(1, unread)
}

func TestConversationService_List_Orders_By_Last_Activity(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	agent := env.agent(env.plan(5))
	owner := env.user(domain.User{Type: domain.Owner, Name: "Olga"})
	older, err := env.conversation.StartAgentConversation(ctx, agent.ID, env.property(owner, "Older").ID)
	req.NoError(err)
	env.now = env.now.Add(time.Hour)
	newer, err := env.conversation.StartAgentConversation(ctx, agent.ID, env.property(owner, "Newer").ID)
	req.NoError(err)

	// When the older conversation gets a message
	env.now = env.now.Add(time.Hour)
	_, err = env.message.Create(ctx, older.ID, owner.ID, "still there?")
	req.NoError(err)

	// Then it comes first for the agent, titled from the agent's side
	summaries, err := env.conversation.ListForUser(agent.ID)
	req.NoError(err)
	req.Len(summaries, 2)
	req.Equal(older.ID, summaries[0].Conversation.ID)
	req.Equal(newer.ID, summaries[1].Conversation.ID)
	req.Equal("Olga (owner) - Older", summaries[0].Title)
	req.Equal(1, summaries[0].UnreadCount)
	req.NotNil(summaries[0].LastMessage)
	req.Equal("still there?", summaries[0].LastMessage.Content)
	req.Len(summaries[0].OtherParticipants, 1)
	req.Equal(owner.ID, summaries[0].OtherParticipants[0].ID)
}

func TestConversationService_Summary_Is_Reserved_To_Participants(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	agent := env.agent(env.plan(5))
	owner := env.owner()
	c, err := env.conversation.StartAgentConversation(ctx, agent.ID, env.property(owner, "Loft").ID)
	req.NoError(err)

	_, err = env.conversation.Summary(c.ID, env.buyer().ID)
	req.ErrorIs(err, errors.ErrForbidden)
}
