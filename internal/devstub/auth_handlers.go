package devstub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/devjadaun/documind-go/internal/models"
)

var (
	errMissingToken     = errors.New("missing bearer token")
	errInvalidToken     = errors.New("invalid token")
	errBadSigningMethod = errors.New("unexpected signing method")
)

type credentialRequest struct {
	GrantType    string `json:"grant_type"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
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

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "email and password required")
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)

	s.mu.Lock()
	if _, exists := s.usersByEmail[req.Email]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusConflict, "user already exists")
		return
	}
	user := &stubUser{ID: uuid.NewString(), Email: req.Email, PasswordHash: hash}
	s.usersByEmail[user.Email] = user
	s.usersByID[user.ID] = user
	s.mu.Unlock()

	s.issueTokens(w, user)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}

	switch req.GrantType {
	case "password":
		s.mu.Lock()
		user, ok := s.usersByEmail[req.Email]
		s.mu.Unlock()
		if !ok || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
			writeDetail(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.issueTokens(w, user)

	case "refresh_token":
		s.mu.Lock()
		grant, ok := s.refreshTokens[req.RefreshToken]
		if ok {
			delete(s.refreshTokens, req.RefreshToken) // rotate
		}
		user := s.usersByID[grant.UserID]
		s.mu.Unlock()
		if !ok || user == nil || time.Now().After(grant.ExpiresAt) {
			writeDetail(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		s.issueTokens(w, user)

	default:
		writeDetail(w, http.StatusBadRequest, "unsupported grant_type")
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userFromBearer(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "invalid token")
		return
	}

	s.mu.Lock()
	for tok, grant := range s.refreshTokens {
		if grant.UserID == userID {
			delete(s.refreshTokens, tok)
		}
	}
	s.mu.Unlock()

	s.notify(userID, wsNotification{Type: "SIGNED_OUT"})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKeys(w http.ResponseWriter, _ *http.Request) {
	pemBytes, err := s.PublicKeyPEM()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "key marshalling failed")
		return
	}
	w.Header().Set("Content-Type", "application/x-pem-file")
	_, _ = w.Write(pemBytes)
}

// handleNotifications upgrades to a WebSocket and registers the connection
// for session-change pushes scoped to the bearer's user.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userFromBearer(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("notification upgrade failed", zap.Error(err))
		return
	}

	s.wsMu.Lock()
	s.wsConns[conn] = userID
	s.wsMu.Unlock()

	// Drain until the peer goes away.
	go func() {
		defer func() {
			s.wsMu.Lock()
			delete(s.wsConns, conn)
			s.wsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type wsNotification struct {
	Type    string          `json:"type"`
	Session *models.Session `json:"session,omitempty"`
}

// notify pushes one notification to every socket held by userID.
func (s *Server) notify(userID string, note wsNotification) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for conn, owner := range s.wsConns {
		if owner != userID {
			continue
		}
		if err := conn.WriteJSON(note); err != nil {
			s.log.Warn("notification push failed", zap.Error(err))
		}
	}
}

// issueTokens signs a fresh RS256 access token plus a rotated refresh token
// and writes the grant response.
func (s *Server) issueTokens(w http.ResponseWriter, user *stubUser) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(accessTokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token signing failed")
		return
	}

	refresh := uuid.NewString()
	s.mu.Lock()
	s.refreshTokens[refresh] = refreshGrant{UserID: user.ID, ExpiresAt: now.Add(refreshTokenTTL)}
	s.mu.Unlock()

	var resp tokenResponse
	resp.AccessToken = signed
	resp.RefreshToken = refresh
	resp.ExpiresIn = int(accessTokenTTL.Seconds())
	resp.User.ID = user.ID
	resp.User.Email = user.Email
	writeJSON(w, http.StatusOK, resp)
}

// userFromBearer verifies the Authorization header against the stub's own
// key and returns the subject user ID.
func (s *Server) userFromBearer(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errMissingToken
	}
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errBadSigningMethod
		}
		return &s.key.PublicKey, nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errInvalidToken
	}
	return sub, nil
}

type ctxKey string

const ctxUserID ctxKey = "user_id"

// bearerAuth protects the backend surface; the verified user ID is attached
// to the request context.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.userFromBearer(r)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserID, userID)))
	})
}
