package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devjadaun/documind-go/internal/models"
)

type fakeProvider struct {
	mu      sync.Mutex
	session *models.Session
	err     error
	delay   time.Duration

	subs   map[int]EventHandler
	nextID int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{subs: make(map[int]EventHandler)}
}

func (f *fakeProvider) CurrentSession(ctx context.Context) (*models.Session, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.err
}

func (f *fakeProvider) Subscribe(h EventHandler) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = h
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeProvider) emit(ev AuthEvent) {
	f.mu.Lock()
	handlers := make([]EventHandler, 0, len(f.subs))
	for _, h := range f.subs {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func sessionFor(id, email string) *models.Session {
	return &models.Session{UserID: id, Email: email, AccessToken: "token-" + id}
}

func TestInitializeWithLiveSession(t *testing.T) {
	provider := newFakeProvider()
	provider.session = sessionFor("u1", "u1@example.com")
	creds := NewCredentialStore()
	tracker := NewTracker(provider, creds, time.Second, nil)

	ev := tracker.Initialize(context.Background())
	require.NotNil(t, ev.Session)
	assert.Equal(t, "u1", ev.Session.UserID)
	assert.Equal(t, "token-u1", creds.Get())
}

func TestInitializeProviderErrorFailsOpenToSignedOut(t *testing.T) {
	provider := newFakeProvider()
	provider.err = errors.New("provider exploded")
	creds := NewCredentialStore()
	tracker := NewTracker(provider, creds, time.Second, nil)

	ev := tracker.Initialize(context.Background())
	assert.Nil(t, ev.Session)
	assert.Empty(t, creds.Get())
}

func TestInitializeCompletesWithinFallbackBound(t *testing.T) {
	provider := newFakeProvider()
	provider.delay = 5 * time.Second // provider never answers in time
	tracker := NewTracker(provider, NewCredentialStore(), 100*time.Millisecond, nil)

	start := time.Now()
	ev := tracker.Initialize(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.Nil(t, ev.Session)
}

func TestNotificationSequenceEndingSignedOut(t *testing.T) {
	provider := newFakeProvider()
	creds := NewCredentialStore()
	tracker := NewTracker(provider, creds, time.Second, nil)

	var events []AuthEvent
	unsubscribe := tracker.Subscribe(func(ev AuthEvent) { events = append(events, ev) })
	defer unsubscribe()

	provider.emit(AuthEvent{Session: sessionFor("u1", "u1@example.com")})
	provider.emit(AuthEvent{Session: sessionFor("u2", "u2@example.com")})
	provider.emit(AuthEvent{})

	require.Len(t, events, 3)
	assert.Nil(t, events[2].Session)
	assert.Empty(t, creds.Get(), "sign-out must clear the credential store")
}

func TestNotificationSequenceEndingLiveSession(t *testing.T) {
	provider := newFakeProvider()
	creds := NewCredentialStore()
	tracker := NewTracker(provider, creds, time.Second, nil)

	var last AuthEvent
	unsubscribe := tracker.Subscribe(func(ev AuthEvent) { last = ev })
	defer unsubscribe()

	provider.emit(AuthEvent{})
	provider.emit(AuthEvent{Session: sessionFor("u9", "u9@example.com")})

	require.NotNil(t, last.Session)
	assert.Equal(t, "u9", last.Session.UserID)
	assert.Equal(t, "u9@example.com", last.Session.Email)
	assert.Equal(t, "token-u9", creds.Get())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	provider := newFakeProvider()
	tracker := NewTracker(provider, NewCredentialStore(), time.Second, nil)

	count := 0
	unsubscribe := tracker.Subscribe(func(AuthEvent) { count++ })

	provider.emit(AuthEvent{Session: sessionFor("u1", "a@b.c")})
	unsubscribe()
	provider.emit(AuthEvent{})

	assert.Equal(t, 1, count)
}

func TestResolveWritesThroughToStore(t *testing.T) {
	provider := newFakeProvider()
	provider.session = sessionFor("u1", "u1@example.com")
	creds := NewCredentialStore()
	tracker := NewTracker(provider, creds, time.Second, nil)

	token, err := tracker.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-u1", token)
	assert.Equal(t, "token-u1", creds.Get())
}

func TestResolveNoSessionReturnsEmptyToken(t *testing.T) {
	tracker := NewTracker(newFakeProvider(), NewCredentialStore(), time.Second, nil)
	token, err := tracker.Resolve(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}
