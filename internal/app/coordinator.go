package app

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devjadaun/documind-go/internal/auth"
	"github.com/devjadaun/documind-go/internal/models"
	"github.com/devjadaun/documind-go/internal/services"
)

// chatFailureText is the synthetic assistant entry appended when a chat call
// fails; the transcript never keeps a permanently unanswered user turn.
const chatFailureText = "Sorry, I encountered an error while processing your request. Please try again."

// Coordinator re-derives user, documents and per-feature result slots from
// session-tracker events and operation outcomes. Writes are idempotent
// replacements, so a late result arriving after teardown is harmless.
type Coordinator struct {
	docs    *services.DocumentService
	queries *services.QueryService
	log     *zap.Logger

	mu          sync.Mutex
	user        *models.User
	documents   []models.Document
	lastSearch  *models.SearchResponse
	lastSummary *models.SummarizeResponse
	transcript  []models.ChatMessage
}

func NewCoordinator(docs *services.DocumentService, queries *services.QueryService, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{docs: docs, queries: queries, log: log}
}

// HandleAuthEvent applies one session-tracker notification. A live session
// populates the user and triggers a document refresh whose failure is logged
// and swallowed; a signed-out event atomically clears the user, the document
// list and every derived result slot so no stale authenticated data stays
// visible.
func (c *Coordinator) HandleAuthEvent(ctx context.Context, ev auth.AuthEvent) {
	if ev.Session != nil {
		c.mu.Lock()
		c.user = ev.Session.User()
		c.mu.Unlock()

		if err := c.RefreshDocuments(ctx); err != nil {
			c.log.Warn("document refresh on sign-in failed", zap.Error(err))
		}
		return
	}

	c.mu.Lock()
	c.user = nil
	c.documents = nil
	c.lastSearch = nil
	c.lastSummary = nil
	c.transcript = nil
	c.mu.Unlock()
}

// RefreshDocuments replaces the whole document collection with the server's
// current list. Documents are never mutated individually.
func (c *Coordinator) RefreshDocuments(ctx context.Context) error {
	docs, err := c.docs.List(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.documents = docs
	c.mu.Unlock()
	return nil
}

// RunSearch executes a search and stores the response. On failure the slot
// is cleared and the error is logged, never propagated.
func (c *Coordinator) RunSearch(ctx context.Context, query string) *models.SearchResponse {
	resp, err := c.queries.Search(ctx, query)
	if err != nil {
		c.log.Warn("search failed", zap.String("query", query), zap.Error(err))
		resp = nil
	}
	c.mu.Lock()
	c.lastSearch = resp
	c.mu.Unlock()
	return resp
}

// RunSummarize executes a summarize call and stores the response. On failure
// the slot is cleared and the error is logged, never propagated.
func (c *Coordinator) RunSummarize(ctx context.Context, query string) *models.SummarizeResponse {
	resp, err := c.queries.Summarize(ctx, query)
	if err != nil {
		c.log.Warn("summarize failed", zap.String("query", query), zap.Error(err))
		resp = nil
	}
	c.mu.Lock()
	c.lastSummary = resp
	c.mu.Unlock()
	return resp
}

// SendChat appends exactly one user entry, sends it with the prior
// transcript as context, and appends exactly one assistant entry: the answer
// on success, the synthetic failure text otherwise. After N attempts the
// transcript holds exactly 2N entries.
func (c *Coordinator) SendChat(ctx context.Context, query string, documentIDs []string) models.ChatMessage {
	userMsg := models.ChatMessage{
		Role:      models.RoleUser,
		Content:   strings.TrimSpace(query),
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	history := slices.Clone(c.transcript)
	c.transcript = append(c.transcript, userMsg)
	c.mu.Unlock()

	var reply models.ChatMessage
	resp, err := c.queries.Chat(ctx, userMsg.Content, history, documentIDs)
	if err != nil {
		c.log.Warn("chat failed", zap.Error(err))
		reply = models.ChatMessage{Role: models.RoleAssistant, Content: chatFailureText, CreatedAt: time.Now()}
	} else {
		reply = models.ChatMessage{Role: models.RoleAssistant, Content: resp.Answer, CreatedAt: time.Now()}
	}

	c.mu.Lock()
	c.transcript = append(c.transcript, reply)
	c.mu.Unlock()
	return reply
}

// User returns the current user, nil when unauthenticated.
func (c *Coordinator) User() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	cp := *c.user
	return &cp
}

// Documents returns a copy of the current document list.
func (c *Coordinator) Documents() []models.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.documents)
}

// LastSearch returns the stored search response, nil when empty.
func (c *Coordinator) LastSearch() *models.SearchResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSearch
}

// LastSummary returns the stored summary, nil when empty.
func (c *Coordinator) LastSummary() *models.SummarizeResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSummary
}

// Transcript returns a copy of the chat transcript in insertion order.
func (c *Coordinator) Transcript() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.transcript)
}
