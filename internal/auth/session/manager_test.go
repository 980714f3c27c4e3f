package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"aituki/internal/auth/models"
	"aituki/internal/platform/logger"
	id "aituki/pkg/domain"
)

type ManagerSuite struct {
	suite.Suite
	manager *Manager
	store   *InMemoryStore
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.store = NewMemory()
	s.manager = NewManager(s.store, logger.New())
}

func makeSession(access string) *models.Session {
	return &models.Session{
		AccessToken:  access,
		TokenType:    "bearer",
		RefreshToken: "refresh-" + access,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         models.User{ID: id.UserID(uuid.New()), Email: "user@example.com"},
	}
}

// TestSubscriberNotification covers the notification contract: exactly one
// synchronous delivery per event, in registration order, and nothing for
// handlers that unsubscribed before the event.
func (s *ManagerSuite) TestSubscriberNotification() {
	s.Run("notifies each subscriber exactly once per event in registration order", func() {
		manager := NewManager(NewMemory(), logger.New())

		var order []string
		manager.Subscribe(func(e models.AuthEvent) { order = append(order, "first:"+string(e.Type)) })
		manager.Subscribe(func(e models.AuthEvent) { order = append(order, "second:"+string(e.Type)) })

		manager.Establish(context.Background(), makeSession("tok-1"))

		s.Equal([]string{"first:SIGNED_IN", "second:SIGNED_IN"}, order)
	})

	s.Run("delivers the new session value with the event", func() {
		manager := NewManager(NewMemory(), logger.New())
		sess := makeSession("tok-1")

		var got *models.Session
		manager.Subscribe(func(e models.AuthEvent) { got = e.Session })

		manager.Establish(context.Background(), sess)
		s.Same(sess, got)

		manager.Clear(context.Background())
		s.Nil(got)
	})

	s.Run("skips handlers that unsubscribed before the event", func() {
		manager := NewManager(NewMemory(), logger.New())

		var calls int
		unsubscribe := manager.Subscribe(func(models.AuthEvent) { calls++ })

		manager.Establish(context.Background(), makeSession("tok-1"))
		s.Equal(1, calls)

		unsubscribe()
		manager.Clear(context.Background())
		s.Equal(1, calls, "no delivery after unsubscribe")
	})

	s.Run("unsubscribe is safe to call twice", func() {
		manager := NewManager(NewMemory(), logger.New())
		unsubscribe := manager.Subscribe(func(models.AuthEvent) {})
		unsubscribe()
		unsubscribe()

		survivor := 0
		manager.Subscribe(func(models.AuthEvent) { survivor++ })
		manager.Establish(context.Background(), makeSession("tok-1"))
		s.Equal(1, survivor)
	})
}

func (s *ManagerSuite) TestSessionReplacement() {
	s.Run("replaces the session wholesale on every event", func() {
		first := makeSession("tok-1")
		second := makeSession("tok-2")

		s.manager.Establish(context.Background(), first)
		s.Same(first, s.manager.Current())

		s.manager.Refreshed(context.Background(), second)
		s.Same(second, s.manager.Current())
	})

	s.Run("clear leaves no session behind", func() {
		s.manager.Establish(context.Background(), makeSession("tok-1"))
		s.manager.Clear(context.Background())
		s.Nil(s.manager.Current())
	})
}

func (s *ManagerSuite) TestPersistence() {
	s.Run("establish writes through to the store", func() {
		sess := makeSession("tok-1")
		s.manager.Establish(context.Background(), sess)

		persisted, err := s.store.Load(context.Background())
		s.Require().NoError(err)
		s.Equal(sess.AccessToken, persisted.AccessToken)
	})

	s.Run("clear removes the persisted session", func() {
		s.manager.Establish(context.Background(), makeSession("tok-1"))
		s.manager.Clear(context.Background())

		_, err := s.store.Load(context.Background())
		s.Require().Error(err)
	})
}

func (s *ManagerSuite) TestLoad() {
	s.Run("restores the persisted session and emits the initial event", func() {
		sess := makeSession("tok-1")
		s.Require().NoError(s.store.Save(context.Background(), sess))

		var events []models.AuthEventType
		s.manager.Subscribe(func(e models.AuthEvent) { events = append(events, e.Type) })

		got, err := s.manager.Load(context.Background())
		s.Require().NoError(err)
		s.Equal(sess.AccessToken, got.AccessToken)
		s.Equal([]models.AuthEventType{models.AuthEventInitialSession}, events)
		s.NotNil(s.manager.Current())
	})

	s.Run("an empty store yields a nil session without error", func() {
		var got models.AuthEvent
		s.manager.Subscribe(func(e models.AuthEvent) { got = e })

		sess, err := s.manager.Load(context.Background())
		s.Require().NoError(err)
		s.Nil(sess)
		s.Equal(models.AuthEventInitialSession, got.Type)
		s.Nil(got.Session)
	})
}
