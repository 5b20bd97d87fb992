package devstub

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devjadaun/documind-go/internal/models"
)

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxUserID).(string)
	return id
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	s.mu.Lock()
	docs := make([]models.Document, 0)
	for _, d := range s.documents {
		if d.UserID == uid {
			docs = append(docs, d)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	maxBytes := int64(s.uploadMaxMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeDetail(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds the %d MB limit", s.uploadMaxMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "pdf") {
		writeDetail(w, http.StatusUnsupportedMediaType, "only PDF files are accepted")
		return
	}

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "unreadable file")
		return
	}

	cleanName := filepath.Base(header.Filename)
	doc := models.Document{
		ID:          uuid.NewString(),
		Title:       cleanName,
		Status:      models.DocStatusUploaded,
		CreatedAt:   time.Now(),
		UserID:      uid,
		StoragePath: fmt.Sprintf("%s/%s/%s", uid, uuid.NewString(), cleanName),
		Metadata:    map[string]any{"size_bytes": size, "content_type": contentType},
	}

	s.mu.Lock()
	s.documents = append(s.documents, doc)
	s.mu.Unlock()

	s.scheduleProcessing(doc.ID)
	s.log.Info("document accepted", zap.String("id", doc.ID), zap.String("title", doc.Title))

	writeJSON(w, http.StatusOK, doc)
}

// scheduleProcessing advances the document through the server-driven status
// transitions so client refreshes can observe them.
func (s *Server) scheduleProcessing(docID string) {
	time.AfterFunc(500*time.Millisecond, func() { s.setStatus(docID, models.DocStatusProcessing) })
	time.AfterFunc(2*time.Second, func() { s.setStatus(docID, models.DocStatusProcessed) })
}

func (s *Server) setStatus(docID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.documents {
		if s.documents[i].ID == docID {
			s.documents[i].Status = status
			return
		}
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	uid := userID(r)

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}

	query := strings.ToLower(strings.TrimSpace(req.Query))
	results := make([]models.SearchResult, 0)

	s.mu.Lock()
	for _, d := range s.documents {
		if d.UserID != uid || d.Status != models.DocStatusProcessed {
			continue
		}
		score := matchScore(strings.ToLower(d.Title), query)
		if score <= 0 {
			continue
		}
		results = append(results, models.SearchResult{
			Chunk: models.SearchChunk{
				ID:         uuid.NewString(),
				Text:       fmt.Sprintf("Passage from %s matching %q.", d.Title, req.Query),
				ChunkIndex: 0,
				Metadata:   map[string]any{},
			},
			Document:        d,
			SimilarityScore: score,
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.SearchResponse{
		Query:         req.Query,
		Results:       results,
		TotalResults:  len(results),
		ExecutionTime: time.Since(start).Seconds(),
	})
}

// matchScore is a naive term-overlap ranking over document titles, good
// enough for a stub with no embeddings.
func matchScore(title, query string) float64 {
	if query == "" {
		return 0
	}
	terms := strings.Fields(query)
	matched := 0
	for _, t := range terms {
		if strings.Contains(title, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

type summarizeRequest struct {
	Query     string `json:"query"`
	Mode      string `json:"mode"`
	MaxLength int    `json:"max_length"`
	MinLength int    `json:"min_length"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	uid := userID(r)

	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	var titles []string
	var ids []string
	for _, d := range s.documents {
		if d.UserID == uid && d.Status == models.DocStatusProcessed {
			titles = append(titles, d.Title)
			ids = append(ids, d.ID)
		}
	}
	s.mu.Unlock()

	summary := fmt.Sprintf("Across %d document(s) (%s), the material relevant to %q is condensed here.",
		len(titles), strings.Join(titles, ", "), req.Query)
	if req.MaxLength > 0 && len(summary) > req.MaxLength*4 {
		summary = summary[:req.MaxLength*4]
	}

	writeJSON(w, http.StatusOK, models.SummarizeResponse{
		Summary:     summary,
		Query:       req.Query,
		DocumentIDs: ids,
		Mode:        req.Mode,
		ModelInfo: models.ModelInfo{
			ModelName: "stub-summarizer",
			Type:      "extractive",
			MaxLength: req.MaxLength,
			MinLength: req.MinLength,
		},
		ProcessingTime: time.Since(start).Seconds(),
	})
}

type chatRequest struct {
	Query       string               `json:"query"`
	History     []models.ChatMessage `json:"history"`
	DocumentIDs []string             `json:"document_ids"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	uid := userID(r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeDetail(w, http.StatusBadRequest, "query required")
		return
	}

	wanted := make(map[string]bool, len(req.DocumentIDs))
	for _, id := range req.DocumentIDs {
		wanted[id] = true
	}

	s.mu.Lock()
	citations := make([]models.ChatCitation, 0)
	for _, d := range s.documents {
		if d.UserID != uid || d.Status != models.DocStatusProcessed {
			continue
		}
		if len(wanted) > 0 && !wanted[d.ID] {
			continue
		}
		citations = append(citations, models.ChatCitation{
			DocumentID:      d.ID,
			ChunkID:         uuid.NewString(),
			Text:            fmt.Sprintf("Supporting passage from %s.", d.Title),
			SimilarityScore: 0.8,
		})
		if len(citations) == 3 {
			break
		}
	}
	s.mu.Unlock()

	answer := fmt.Sprintf("Considering %d prior message(s) and %d cited document(s): %s",
		len(req.History), len(citations), req.Query)

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Answer:         answer,
		Citations:      citations,
		ProcessingTime: time.Since(start).Seconds(),
	})
}
