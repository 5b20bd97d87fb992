package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/devjadaun/documind-go/internal/models"
)

// Summarize request parameters are fixed regardless of the caller-supplied
// query text.
const (
	SummarizeMode      = "multi"
	SummarizeMaxLength = 200
	SummarizeMinLength = 50
)

type searchRequest struct {
	Query string `json:"query"`
}

type summarizeRequest struct {
	Query     string `json:"query"`
	Mode      string `json:"mode"`
	MaxLength int    `json:"max_length"`
	MinLength int    `json:"min_length"`
}

type chatRequest struct {
	Query       string               `json:"query"`
	History     []models.ChatMessage `json:"history"`
	DocumentIDs []string             `json:"document_ids"`
}

// QueryService wraps the stateless request/response operations. Each call is
// single-shot: no pagination, no retries. Failure handling (degrading to an
// empty result or a synthetic chat entry) belongs to the coordinator.
type QueryService struct {
	api Dispatcher
	log *zap.Logger
}

func NewQueryService(api Dispatcher, log *zap.Logger) *QueryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QueryService{api: api, log: log}
}

// Search returns ranked passages for the query with a total count.
func (s *QueryService) Search(ctx context.Context, query string) (*models.SearchResponse, error) {
	var out models.SearchResponse
	if err := s.api.PostJSON(ctx, pathSearch, searchRequest{Query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summarize returns one synthesized text plus model metadata.
func (s *QueryService) Summarize(ctx context.Context, query string) (*models.SummarizeResponse, error) {
	var out models.SummarizeResponse
	req := summarizeRequest{
		Query:     query,
		Mode:      SummarizeMode,
		MaxLength: SummarizeMaxLength,
		MinLength: SummarizeMinLength,
	}
	if err := s.api.PostJSON(ctx, pathSummarize, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends the query with the full prior transcript as context; the server
// keeps no session memory between calls.
func (s *QueryService) Chat(ctx context.Context, query string, history []models.ChatMessage, documentIDs []string) (*models.ChatResponse, error) {
	if history == nil {
		history = []models.ChatMessage{}
	}
	if documentIDs == nil {
		documentIDs = []string{}
	}
	var out models.ChatResponse
	req := chatRequest{Query: query, History: history, DocumentIDs: documentIDs}
	if err := s.api.PostJSON(ctx, pathChat, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
