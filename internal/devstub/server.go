// Package devstub is an in-memory stand-in for the DocuMind backend and its
// identity provider, served from one process. It exists for local
// development and for exercising the client end to end in tests; nothing in
// it persists.
package devstub

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/devjadaun/documind-go/internal/models"
)

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 24 * time.Hour
)

type stubUser struct {
	ID           string
	Email        string
	PasswordHash []byte
}

type refreshGrant struct {
	UserID    string
	ExpiresAt time.Time
}

// Server holds all stub state behind one mutex.
type Server struct {
	key         *rsa.PrivateKey
	log         *zap.Logger
	uploadMaxMB int

	mu            sync.Mutex
	usersByEmail  map[string]*stubUser
	usersByID     map[string]*stubUser
	documents     []models.Document
	refreshTokens map[string]refreshGrant

	wsMu     sync.Mutex
	wsConns  map[*websocket.Conn]string // conn -> user ID
	upgrader websocket.Upgrader
}

// NewServer generates a fresh RSA signing key and empty stores.
func NewServer(uploadMaxMB int, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if uploadMaxMB <= 0 {
		uploadMaxMB = 25
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &Server{
		key:           key,
		log:           log,
		uploadMaxMB:   uploadMaxMB,
		usersByEmail:  make(map[string]*stubUser),
		usersByID:     make(map[string]*stubUser),
		refreshTokens: make(map[string]refreshGrant),
		wsConns:       make(map[*websocket.Conn]string),
		upgrader:      websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}, nil
}

// PublicKeyPEM returns the verification key in PKIX PEM form, as served at
// /auth/v1/keys.
func (s *Server) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&s.key.PublicKey)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// Handler builds and wires all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	// Identity provider surface
	r.Route("/auth/v1", func(ar chi.Router) {
		ar.Post("/signup", s.handleSignup)
		ar.Post("/token", s.handleToken)
		ar.Post("/logout", s.handleLogout)
		ar.Get("/keys", s.handleKeys)
		ar.Get("/notifications", s.handleNotifications)
	})

	// Backend surface, bearer-protected
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(s.bearerAuth)
		api.Get("/documents", s.handleListDocuments)
		api.Post("/documents/upload", s.handleUpload)
		api.Post("/documents/search", s.handleSearch)
		api.Post("/documents/summarize", s.handleSummarize)
		api.Post("/chat", s.handleChat)
	})

	return r
}

// writeJSON and writeDetail mirror the backend's response conventions;
// errors carry a {"detail": ...} body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
