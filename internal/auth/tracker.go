package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devjadaun/documind-go/internal/models"
)

// Tracker bridges identity-provider sessions into the credential store and a
// simplified User value. It is the credential store's only writer.
type Tracker struct {
	provider    Provider
	creds       *CredentialStore
	initTimeout time.Duration
	log         *zap.Logger
}

// NewTracker builds a session tracker. initTimeout bounds Initialize so a
// silent provider can never leave the application stuck loading.
func NewTracker(provider Provider, creds *CredentialStore, initTimeout time.Duration, log *zap.Logger) *Tracker {
	if initTimeout <= 0 {
		initTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{provider: provider, creds: creds, initTimeout: initTimeout, log: log}
}

// Initialize queries the provider for an existing session. It always returns
// within the fallback bound; provider errors and timeouts resolve to signed
// out, never to a stuck loading state.
func (t *Tracker) Initialize(ctx context.Context) AuthEvent {
	type lookup struct {
		sess *models.Session
		err  error
	}
	ch := make(chan lookup, 1)
	go func() {
		sess, err := t.provider.CurrentSession(ctx)
		ch <- lookup{sess: sess, err: err}
	}()

	timer := time.NewTimer(t.initTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			t.log.Warn("session check failed, treating as signed out", zap.Error(r.err))
			return AuthEvent{}
		}
		if r.sess != nil {
			t.creds.Set(r.sess.AccessToken)
		}
		return AuthEvent{Session: r.sess}
	case <-timer.C:
		t.log.Warn("session check exceeded init bound, treating as signed out",
			zap.Duration("bound", t.initTimeout))
		return AuthEvent{}
	case <-ctx.Done():
		return AuthEvent{}
	}
}

// Subscribe registers onChange for provider notifications. Each notification
// first updates the credential store (set on session-present, clear on
// session-absent) and is then forwarded. The returned unsubscribe func must
// be invoked on teardown.
func (t *Tracker) Subscribe(onChange EventHandler) func() {
	return t.provider.Subscribe(func(ev AuthEvent) {
		if ev.Session != nil {
			t.creds.Set(ev.Session.AccessToken)
		} else {
			t.creds.Clear()
		}
		onChange(ev)
	})
}

// Resolve implements the dispatcher's CredentialSource with a live session
// lookup; a fresh token is written through to the credential store. An empty
// token with nil error means no active session.
func (t *Tracker) Resolve(ctx context.Context) (string, error) {
	sess, err := t.provider.CurrentSession(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", nil
	}
	t.creds.Set(sess.AccessToken)
	return sess.AccessToken, nil
}
