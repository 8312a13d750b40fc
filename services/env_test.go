package services

import (
	"context"
	"estate-match/auth"
	"estate-match/domain"
	"estate-match/repositories"
	"estate-match/runtime"
	"estate-match/sink"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// testEnv wires every service on a throwaway badger directory, the same way
// the server does, with a broadcaster delivering to in-memory timelines.
type testEnv struct {
	t             *testing.T
	store         *repositories.Store
	users         repositories.IUserRepository
	catalogRepo   repositories.ICatalogRepository
	registry      *runtime.Registry
	tokens        auth.TokenManager
	now           time.Time
	auth          *AuthService
	catalog       *CatalogService
	quota         *QuotaService
	conversation  *ConversationService
	message       *MessageService
	inquiry       *InquiryService
	partnership   *PartnershipService
	seq           int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	env := &testEnv{
		t:        t,
		now:      testNow,
		registry: runtime.NewRegistry(),
		tokens:   auth.NewTokenManager("test_secret_long_enough_for_hs256", time.Hour),
	}
	clock := func() time.Time { return env.now }

	env.store = repositories.NewStore(db, log, 5)
	env.users = repositories.NewUserRepository()
	env.catalogRepo = repositories.NewCatalogRepository()
	conversations := repositories.NewConversationRepository()
	messages := repositories.NewMessageRepository()
	inquiries := repositories.NewInquiryRepository()

	pipeline := runtime.NewPipeline(log).
		InTx(runtime.NewConversationTimestampUpdater(conversations)).
		AfterCommit(runtime.NewBroadcastPublisher(log, runtime.NewBroadcaster(log, env.registry, time.Second), clock))

	env.auth = NewAuthService(log, env.store, env.users, env.catalogRepo, env.tokens, clock)
	env.catalog = NewCatalogService(log, env.store, env.users, env.catalogRepo, clock)
	env.quota = NewQuotaService(log, env.store, env.users, env.catalogRepo, conversations)
	env.conversation = NewConversationService(log, env.store, env.users, env.catalogRepo, conversations, messages, inquiries, env.quota, clock)
	env.message = NewMessageService(log, env.store, env.users, env.catalogRepo, conversations, messages, pipeline, 20, clock)
	env.inquiry = NewInquiryService(log, env.store, env.users, env.catalogRepo, inquiries,
		conversations, env.conversation, env.message, clock)
	env.partnership = NewPartnershipService(log, env.store, env.users, repositories.NewPartnershipRepository(), clock)
	return env
}

func (e *testEnv) nextID(prefix string) string {
	e.seq++
	return fmt.Sprintf("%s-%d", prefix, e.seq)
}

func (e *testEnv) plan(limit int) domain.MembershipPlan {
	var plan domain.MembershipPlan
	require.NoError(e.t, e.store.Update(context.Background(), func(txn *badger.Txn) error {
		var err error
		plan, err = e.catalogRepo.CreatePlan(txn, domain.MembershipPlan{
			Name: fmt.Sprintf("Plan %d", limit), MonthlyPropertyLimit: limit, Active: true, CreatedAt: e.now,
		})
		return err
	}))
	return plan
}

func (e *testEnv) user(u domain.User) domain.User {
	id := e.nextID(string(u.Type))
	if u.Name == "" {
		u.Name = id
	}
	u.Email = id + "@example.com"
	u.CreatedAt = e.now
	require.NoError(e.t, e.store.Update(context.Background(), func(txn *badger.Txn) error {
		var err error
		u, err = e.users.CreateUser(txn, u)
		return err
	}))
	return u
}

func (e *testEnv) agent(plan domain.MembershipPlan) domain.User {
	return e.user(domain.User{
		Type:             domain.Agent,
		CompanyName:      "Acme Realty",
		LicenseNumber:    e.nextID("license"),
		MembershipPlanID: &plan.ID,
	})
}

func (e *testEnv) owner() domain.User { return e.user(domain.User{Type: domain.Owner}) }

func (e *testEnv) buyer() domain.User { return e.user(domain.User{Type: domain.Buyer}) }

func (e *testEnv) property(owner domain.User, title string) domain.Property {
	var p domain.Property
	require.NoError(e.t, e.store.Update(context.Background(), func(txn *badger.Txn) error {
		var err error
		p, err = e.catalogRepo.CreateProperty(txn, domain.Property{
			OwnerID: owner.ID, Title: title, Status: domain.PropertyActive, CreatedAt: e.now,
		})
		return err
	}))
	return p
}

// listen subscribes a timeline to the user's notification topic.
func (e *testEnv) listen(userID string) *sink.Timeline {
	timeline := sink.NewTimeline(16)
	e.registry.Subscribe(userID, "user_notifications_"+userID, timeline)
	return timeline
}
