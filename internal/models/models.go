package models

import "time"

// User is the display/authorization projection of a Session. A nil *User
// means "unauthenticated".
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the live, provider-issued proof of authentication. It is
// ephemeral: rebuilt from provider events and never persisted beyond the
// credential store's token.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// User returns the session's display projection.
func (s *Session) User() *User {
	if s == nil {
		return nil
	}
	return &User{ID: s.UserID, Email: s.Email}
}

// Document is a server-owned record. The client never mutates one locally;
// it only replaces the whole collection after a list refresh.
type Document struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Status      string         `json:"status"` // uploaded | processing | processed | failed
	CreatedAt   time.Time      `json:"created_at"`
	UserID      string         `json:"user_id"`
	StoragePath string         `json:"storage_path"`
	Metadata    map[string]any `json:"metadata"`
}

// Document status values as reported by the backend.
const (
	DocStatusUploaded   = "uploaded"
	DocStatusProcessing = "processing"
	DocStatusProcessed  = "processed"
	DocStatusFailed     = "failed"
)

// SearchChunk is one matched text fragment inside a document.
type SearchChunk struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	ChunkIndex int            `json:"chunk_index"`
	Metadata   map[string]any `json:"metadata"`
}

// SearchResult pairs a matched chunk with its parent document and score.
type SearchResult struct {
	Chunk           SearchChunk `json:"chunk"`
	Document        Document    `json:"document"`
	SimilarityScore float64     `json:"similarity_score"`
}

// SearchResponse is the ranked answer to a search query.
type SearchResponse struct {
	Query         string         `json:"query"`
	Results       []SearchResult `json:"results"`
	TotalResults  int            `json:"total_results"`
	ExecutionTime float64        `json:"execution_time"`
}

// ModelInfo describes the model that produced a summary.
type ModelInfo struct {
	ModelName string `json:"model_name"`
	Type      string `json:"type"`
	MaxLength int    `json:"max_length"`
	MinLength int    `json:"min_length"`
}

// SummarizeResponse is one synthesized summary plus model metadata.
type SummarizeResponse struct {
	Summary        string    `json:"summary"`
	Query          string    `json:"query,omitempty"`
	DocumentIDs    []string  `json:"document_ids,omitempty"`
	Mode           string    `json:"mode"`
	ModelInfo      ModelInfo `json:"model_info"`
	ProcessingTime float64   `json:"processing_time"`
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one transcript entry, immutable once appended.
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ChatCitation points an answer back at a stored chunk.
type ChatCitation struct {
	DocumentID      string  `json:"document_id"`
	ChunkID         string  `json:"chunk_id"`
	Text            string  `json:"text"`
	PageNumber      int     `json:"page_number,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
}

// ChatResponse is the backend's answer to one chat turn.
type ChatResponse struct {
	Answer         string         `json:"answer"`
	Citations      []ChatCitation `json:"citations"`
	ProcessingTime float64        `json:"processing_time"`
}
