package auth

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/devjadaun/documind-go/internal/models"
)

// AuthEvent is the typed change-notification payload. A nil Session means
// "signed out".
type AuthEvent struct {
	Session *models.Session
}

// EventHandler receives auth change notifications.
type EventHandler func(AuthEvent)

// Provider is the identity-provider surface the session tracker depends on.
// Subscribe returns an unsubscribe func that must be invoked on teardown.
type Provider interface {
	CurrentSession(ctx context.Context) (*models.Session, error)
	Subscribe(handler EventHandler) (unsubscribe func())
}

// HTTPProvider talks to the identity provider over HTTP, with an optional
// WebSocket subscription for server-pushed session changes. It keeps the
// current session in memory and refreshes the access token through the
// refresh-token grant when it nears expiry.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
	publicKey  *rsa.PublicKey
	log        *zap.Logger

	mu      sync.Mutex
	session *models.Session

	subMu   sync.Mutex
	subs    map[int]EventHandler
	nextSub int

	// emitMu serializes notification delivery: handlers observe events one
	// at a time, in order.
	emitMu sync.Mutex
}

// refreshSkew refreshes tokens this long before their actual expiry.
const refreshSkew = 30 * time.Second

// NewHTTPProvider builds a provider client. publicKey is used to verify
// issued access tokens; when nil, claims are read without verification.
func NewHTTPProvider(baseURL string, publicKey *rsa.PublicKey, log *zap.Logger) *HTTPProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		publicKey:  publicKey,
		log:        log,
		subs:       make(map[int]EventHandler),
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignUp registers a new identity and signs it in.
func (p *HTTPProvider) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	return p.grant(ctx, "/auth/v1/signup", map[string]string{
		"email":    email,
		"password": password,
	})
}

// SignIn performs the password grant and emits a session-present event.
func (p *HTTPProvider) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	return p.grant(ctx, "/auth/v1/token", map[string]string{
		"grant_type": "password",
		"email":      email,
		"password":   password,
	})
}

// SignOut revokes the session server-side (best effort) and emits a
// session-absent event.
func (p *HTTPProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	sess := p.session
	p.session = nil
	p.mu.Unlock()

	if sess != nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/auth/v1/logout", nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
			if resp, err := p.httpClient.Do(req); err != nil {
				p.log.Warn("logout request failed", zap.Error(err))
			} else {
				resp.Body.Close()
			}
		}
	}

	p.emit(AuthEvent{})
	return nil
}

// CurrentSession returns the live session, refreshing the access token when
// it is expired or about to expire. (nil, nil) means no active session.
func (p *HTTPProvider) CurrentSession(ctx context.Context) (*models.Session, error) {
	p.mu.Lock()
	sess := p.session
	p.mu.Unlock()

	if sess == nil {
		return nil, nil
	}
	if time.Until(sess.ExpiresAt) > refreshSkew {
		cp := *sess
		return &cp, nil
	}
	if sess.RefreshToken == "" {
		return nil, fmt.Errorf("session expired and no refresh token held")
	}

	refreshed, err := p.grant(ctx, "/auth/v1/token", map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": sess.RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return refreshed, nil
}

// Subscribe registers handler for change notifications and returns its
// unsubscribe func.
func (p *HTTPProvider) Subscribe(handler EventHandler) func() {
	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = handler
	p.subMu.Unlock()

	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

// grant posts a credential payload to the provider and installs the
// resulting session.
func (p *HTTPProvider) grant(ctx context.Context, path string, payload map[string]string) (*models.Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	sess, err := p.sessionFromToken(tr)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	cp := *sess
	p.emit(AuthEvent{Session: &cp})
	out := *sess
	return &out, nil
}

// sessionFromToken builds a Session from a token grant, verifying the access
// token against the provider public key when one is configured.
func (p *HTTPProvider) sessionFromToken(tr tokenResponse) (*models.Session, error) {
	claims := jwt.MapClaims{}
	if p.publicKey != nil {
		tok, err := jwt.ParseWithClaims(tr.AccessToken, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
			}
			return p.publicKey, nil
		})
		if err != nil || !tok.Valid {
			return nil, fmt.Errorf("access token verification failed: %w", err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, claims); err != nil {
			return nil, fmt.Errorf("malformed access token: %w", err)
		}
	}

	sess := &models.Session{
		UserID:       tr.User.ID,
		Email:        tr.User.Email,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if sub, ok := claims["sub"].(string); ok && sess.UserID == "" {
		sess.UserID = sub
	}
	if email, ok := claims["email"].(string); ok && sess.Email == "" {
		sess.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		sess.ExpiresAt = exp.Time
	} else if tr.ExpiresIn > 0 {
		sess.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return sess, nil
}

// emit delivers one notification to every subscriber, serialized.
func (p *HTTPProvider) emit(ev AuthEvent) {
	p.subMu.Lock()
	handlers := make([]EventHandler, 0, len(p.subs))
	for _, h := range p.subs {
		handlers = append(handlers, h)
	}
	p.subMu.Unlock()

	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// wsNotification is one server-pushed change over the notification socket.
type wsNotification struct {
	Type    string          `json:"type"` // SIGNED_IN | SIGNED_OUT | TOKEN_REVOKED
	Session *models.Session `json:"session,omitempty"`
}

// ListenNotifications connects to the provider's WebSocket notification
// channel and forwards pushed changes to subscribers until ctx is done or
// the socket closes. Best effort: a failed dial is logged and returned, not
// retried.
func (p *HTTPProvider) ListenNotifications(ctx context.Context) error {
	wsURL := strings.Replace(p.baseURL, "http", "ws", 1) + "/auth/v1/notifications"

	header := http.Header{}
	p.mu.Lock()
	if p.session != nil {
		header.Set("Authorization", "Bearer "+p.session.AccessToken)
	}
	p.mu.Unlock()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		p.log.Warn("notification socket dial failed", zap.Error(err))
		return err
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var note wsNotification
		if err := conn.ReadJSON(&note); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		switch note.Type {
		case "SIGNED_OUT", "TOKEN_REVOKED":
			p.mu.Lock()
			p.session = nil
			p.mu.Unlock()
			p.emit(AuthEvent{})
		case "SIGNED_IN":
			if note.Session != nil {
				p.mu.Lock()
				p.session = note.Session
				p.mu.Unlock()
				cp := *note.Session
				p.emit(AuthEvent{Session: &cp})
			}
		}
	}
}
