package server

import (
	"bytes"
	"context"
	"encoding/json"
	"estate-match/auth"
	"estate-match/domain"
	"estate-match/repositories"
	"estate-match/runtime"
	"estate-match/services"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t        *testing.T
	srv      *httptest.Server
	registry *runtime.Registry
	planID   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	clock := func() time.Time { return time.Now().UTC() }
	store := repositories.NewStore(db, log, 5)
	users := repositories.NewUserRepository()
	catalog := repositories.NewCatalogRepository()
	conversations := repositories.NewConversationRepository()
	messages := repositories.NewMessageRepository()
	inquiries := repositories.NewInquiryRepository()
	registry := runtime.NewRegistry()
	tokens := auth.NewTokenManager("test_secret_long_enough_for_hs256", time.Hour)

	pipeline := runtime.NewPipeline(log).
		InTx(runtime.NewConversationTimestampUpdater(conversations)).
		AfterCommit(runtime.NewBroadcastPublisher(log, runtime.NewBroadcaster(log, registry, time.Second), clock))
	quota := services.NewQuotaService(log, store, users, catalog, conversations)
	conversation := services.NewConversationService(log, store, users, catalog, conversations, messages, inquiries, quota, clock)
	message := services.NewMessageService(log, store, users, catalog, conversations, messages, pipeline, 50, clock)

	svc := Services{
		Auth:         services.NewAuthService(log, store, users, catalog, tokens, clock),
		Catalog:      services.NewCatalogService(log, store, users, catalog, clock),
		Quota:        quota,
		Conversation: conversation,
		Message:      message,
		Inquiry: services.NewInquiryService(log, store, users, catalog, inquiries,
			conversations, conversation, message, clock),
		Partnership: services.NewPartnershipService(log, store, users, repositories.NewPartnershipRepository(), clock),
	}

	var plan domain.MembershipPlan
	require.NoError(t, store.Update(context.Background(), func(txn *badger.Txn) error {
		plan, err = catalog.CreatePlan(txn, domain.MembershipPlan{Name: "Starter", MonthlyPropertyLimit: 1, Active: true})
		return err
	}))

	srv := httptest.NewServer(NewServer(log, svc, registry, auth.NewInterceptor(tokens), clock).Handler())
	t.Cleanup(srv.Close)
	return &harness{t: t, srv: srv, registry: registry, planID: plan.ID}
}

// call sends body as JSON and decodes the answer into out when given.
func (h *harness) call(method, path, token string, body any, out any) int {
	h.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&payload).Encode(body))
	}
	r, err := http.NewRequest(method, h.srv.URL+path, &payload)
	require.NoError(h.t, err)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(r)
	require.NoError(h.t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(h.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type account struct {
	token string
	id    string
}

func (h *harness) signUp(body registerRequest) account {
	h.t.Helper()
	body.Password = "ComplexPass123!"
	var res tokenResponse
	require.Equal(h.t, http.StatusCreated, h.call(http.MethodPost, "/api/users", "", body, &res))
	return account{token: res.Token, id: res.User.ID}
}

func (h *harness) agent(email, license string) account {
	return h.signUp(registerRequest{
		Name: "Alice", Email: email, Type: domain.Agent,
		CompanyName: "Acme Realty", LicenseNumber: license, MembershipPlanID: h.planID,
	})
}

func (h *harness) owner() account {
	return h.signUp(registerRequest{Name: "Olga", Email: "olga@example.com", Type: domain.Owner})
}

func TestServer_Requires_A_Token(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	var res errorResponse
	status := h.call(http.MethodGet, "/api/conversations", "", nil, &res)

	req.Equal(http.StatusUnauthorized, status)
	req.NotEmpty(res.Error)
}

func TestServer_Login_Flow(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.owner()

	var session tokenResponse
	status := h.call(http.MethodPost, "/api/sessions", "", sessionRequest{Email: "olga@example.com", Password: "ComplexPass123!"}, &session)
	req.Equal(http.StatusCreated, status)
	req.NotEmpty(session.Token)

	var failure errorResponse
	status = h.call(http.MethodPost, "/api/sessions", "", sessionRequest{Email: "olga@example.com", Password: "Nope123456789!"}, &failure)
	req.Equal(http.StatusUnauthorized, status)
}

func TestServer_Agent_Conversation_Over_Quota(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	// Given an agent on a one-property plan and an owner with two listings
	agent := h.agent("alice@example.com", "LIC-1")
	owner := h.owner()
	var first, second propertyView
	req.Equal(http.StatusCreated, h.call(http.MethodPost, "/api/properties", owner.token, map[string]string{"title": "Loft"}, &first))
	req.Equal(http.StatusCreated, h.call(http.MethodPost, "/api/properties", owner.token, map[string]string{"title": "Barn"}, &second))

	// When the agent contacts both
	var c conversationView
	status := h.call(http.MethodPost, "/api/conversations", agent.token, createConversationRequest{PropertyID: first.ID}, &c)
	req.Equal(http.StatusCreated, status)
	req.Equal(domain.AgentOwnerType, c.Type)
	req.Equal(owner.id, c.OwnerID)

	var refused errorResponse
	status = h.call(http.MethodPost, "/api/conversations", agent.token, createConversationRequest{PropertyID: second.ID}, &refused)

	// Then the second one is refused with the quota message
	req.Equal(http.StatusUnprocessableEntity, status)
	req.Equal([]string{"monthly property message limit (1 properties) exceeded"}, refused.Errors)

	var report services.QuotaReport
	req.Equal(http.StatusOK, h.call(http.MethodGet, "/api/agents/me/quota", agent.token, nil, &report))
	req.Equal(1, report.Count)
	req.Equal(1, report.Limit)
	req.Equal("Starter", report.PlanName)
	req.True(report.Exceeded)
}

func TestServer_Messages_Between_Participants(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	agent := h.agent("alice@example.com", "LIC-1")
	owner := h.owner()
	outsider := h.agent("mallory@example.com", "LIC-2")
	var property propertyView
	h.call(http.MethodPost, "/api/properties", owner.token, map[string]string{"title": "Loft"}, &property)
	var c conversationView
	h.call(http.MethodPost, "/api/conversations", agent.token, createConversationRequest{PropertyID: property.ID}, &c)

	// When the agent writes
	var sent messageView
	status := h.call(http.MethodPost, "/api/conversations/"+c.ID+"/messages", agent.token, map[string]string{"content": "Hello"}, &sent)
	req.Equal(http.StatusCreated, status)
	req.Equal("Today", sent.FormattedDate)

	// Then the owner sees one unread message titled from its side
	var listed []conversationView
	req.Equal(http.StatusOK, h.call(http.MethodGet, "/api/conversations", owner.token, nil, &listed))
	req.Len(listed, 1)
	req.Equal(1, listed[0].UnreadCount)
	req.Equal("Acme Realty (agent) - Loft", listed[0].Title)

	var marked map[string]int
	req.Equal(http.StatusOK, h.call(http.MethodPatch, "/api/conversations/"+c.ID+"/messages/read", owner.token, nil, &marked))
	req.Equal(1, marked["marked"])

	// And outsiders are kept away
	req.Equal(http.StatusForbidden, h.call(http.MethodGet, "/api/conversations/"+c.ID+"/messages", outsider.token, nil, nil))
	req.Equal(http.StatusForbidden, h.call(http.MethodPost, "/api/conversations/"+c.ID+"/messages", outsider.token, map[string]string{"content": "hi"}, nil))

	var own errorResponse
	req.Equal(http.StatusForbidden, h.call(http.MethodPatch, "/api/conversations/"+c.ID+"/messages/"+sent.ID+"/read", agent.token, nil, &own))

	var page messagePage
	req.Equal(http.StatusOK, h.call(http.MethodGet, "/api/conversations/"+c.ID+"/messages", agent.token, nil, &page))
	req.Len(page.Messages, 1)
	req.NotNil(page.Messages[0].ReadAt)
	req.Nil(page.Cursor)
}

func TestServer_Showing_A_Conversation_Marks_It_Read(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	// Given an owner with one unread message
	agent := h.agent("alice@example.com", "LIC-1")
	owner := h.owner()
	var property propertyView
	h.call(http.MethodPost, "/api/properties", owner.token, map[string]string{"title": "Loft"}, &property)
	var c conversationView
	h.call(http.MethodPost, "/api/conversations", agent.token, createConversationRequest{PropertyID: property.ID}, &c)
	h.call(http.MethodPost, "/api/conversations/"+c.ID+"/messages", agent.token, map[string]string{"content": "Hello"}, nil)

	// When the agent opens the thread, nothing changes for the owner
	var shown conversationView
	req.Equal(http.StatusOK, h.call(http.MethodGet, "/api/conversations/"+c.ID, agent.token, nil, &shown))
	var listed []conversationView
	req.Equal(http.StatusOK, h.call(http.MethodGet, "/api/conversations", owner.token, nil, &listed))
	req.Equal(1, listed[0].UnreadCount)

	// When the owner opens it
	req.Equal(http.StatusOK, h.call(http.MethodGet, "/api/conversations/"+c.ID, owner.token, nil, &shown))

	// Then it is shown and stays read
	req.Equal(0, shown.UnreadCount)
	req.Equal(http.StatusOK, h.call(http.MethodGet, "/api/conversations", owner.token, nil, &listed))
	req.Equal(0, listed[0].UnreadCount)

	var page messagePage
	req.Equal(http.StatusOK, h.call(http.MethodGet, "/api/conversations/"+c.ID+"/messages", agent.token, nil, &page))
	req.NotNil(page.Messages[0].ReadAt)
}

func TestServer_Inquiry_Conversations_Cannot_Be_Created_Directly(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	agent := h.agent("alice@example.com", "LIC-1")
	owner := h.owner()
	buyer := h.signUp(registerRequest{Name: "Bruno", Email: "bruno@example.com", Type: domain.Buyer})
	var property propertyView
	h.call(http.MethodPost, "/api/properties", owner.token, map[string]string{"title": "Loft"}, &property)

	// When a buyer names itself in an inquiry conversation it never sent
	var refused errorResponse
	status := h.call(http.MethodPost, "/api/conversations", buyer.token, createConversationRequest{
		Type:       domain.AgentBuyerInquiryType,
		PropertyID: property.ID,
		AgentID:    agent.id,
		BuyerID:    buyer.id,
		OwnerID:    owner.id,
	}, &refused)

	// Then it is refused and nothing is listed
	req.Equal(http.StatusUnprocessableEntity, status)
	req.Equal([]string{"conversation_type is started from an inquiry"}, refused.Errors)
	var listed []conversationView
	req.Equal(http.StatusOK, h.call(http.MethodGet, "/api/conversations", agent.token, nil, &listed))
	req.Empty(listed)
}

func TestServer_Partnership_Handshake(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	agent := h.agent("alice@example.com", "LIC-1")
	owner := h.owner()

	var p partnershipView
	status := h.call(http.MethodPost, "/api/partnerships", agent.token, createPartnershipRequest{
		CounterpartID: owner.id, CommissionRate: 3, Action: services.ActionRequest,
	}, &p)
	req.Equal(http.StatusCreated, status)
	req.True(p.AgentRequested)

	var approved partnershipView
	status = h.call(http.MethodPost, "/api/partnerships/"+p.ID+"/request", owner.token, map[string]string{"action_type": "approve"}, &approved)
	req.Equal(http.StatusOK, status)
	req.Equal(domain.PartnershipActive, approved.Status)
	req.Equal("3%", approved.FormattedCommissionRate)

	var detail partnershipView
	req.Equal(http.StatusOK, h.call(http.MethodGet, "/api/partnerships/"+p.ID, agent.token, nil, &detail))
	req.Equal(domain.Approved, detail.ApprovalStatus)

	req.Equal(http.StatusNoContent, h.call(http.MethodPost, "/api/partnerships/"+p.ID+"/request", owner.token, map[string]string{"action_type": "terminate"}, nil))
	req.Equal(http.StatusNotFound, h.call(http.MethodGet, "/api/partnerships/"+p.ID, agent.token, nil, nil))
}

func TestServer_Websocket_Delivers_Notifications(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	agent := h.agent("alice@example.com", "LIC-1")
	owner := h.owner()
	var property propertyView
	h.call(http.MethodPost, "/api/properties", owner.token, map[string]string{"title": "Loft"}, &property)
	var c conversationView
	h.call(http.MethodPost, "/api/conversations", agent.token, createConversationRequest{PropertyID: property.ID}, &c)

	// Someone else's notifications are off limits
	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?topic=user_notifications_"+agent.id+"&token="+owner.token, nil)
	req.Error(err)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	// Given the owner listening to its notifications
	topic := "user_notifications_" + owner.id
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?topic="+topic+"&token="+owner.token, nil)
	req.NoError(err)
	defer func() { _ = conn.Close() }()
	req.Eventually(func() bool { return len(h.registry.GetSinksForTopic(topic)) == 1 }, time.Second, 10*time.Millisecond)

	// When the agent writes
	h.call(http.MethodPost, "/api/conversations/"+c.ID+"/messages", agent.token, map[string]string{"content": "New photos are up"}, nil)

	// Then the owner is notified
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var notification struct {
		Type              string `json:"type"`
		ConversationID    string `json:"conversation_id"`
		SenderName        string `json:"sender_name"`
		ConversationTitle string `json:"conversation_title"`
		Message           struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	req.NoError(conn.ReadJSON(&notification))
	req.Equal("new_message", notification.Type)
	req.Equal(c.ID, notification.ConversationID)
	req.Equal("Alice", notification.SenderName)
	req.Equal("Acme Realty (agent) - Loft", notification.ConversationTitle)
	req.Equal("New photos are up", notification.Message.Content)

	// And the subscription goes away with the connection
	_ = conn.Close()
	req.Eventually(func() bool { return len(h.registry.GetSinksForTopic(topic)) == 0 }, time.Second, 10*time.Millisecond)
}
