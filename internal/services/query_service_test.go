package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devjadaun/documind-go/internal/models"
)

func TestSearchSendsQueryAndReturnsResponseUnmodified(t *testing.T) {
	want := models.SearchResponse{
		Query: "refund policy",
		Results: []models.SearchResult{
			{SimilarityScore: 0.9}, {SimilarityScore: 0.7}, {SimilarityScore: 0.5},
		},
		TotalResults:  3,
		ExecutionTime: 0.42,
	}
	api := &fakeDispatcher{
		postFn: func(path string, in, out any) error {
			*(out.(*models.SearchResponse)) = want
			return nil
		},
	}
	svc := NewQueryService(api, nil)

	resp, err := svc.Search(context.Background(), "refund policy")
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/v1/documents/search"}, api.postPaths)
	require.Len(t, api.postBodies, 1)
	assert.Equal(t, searchRequest{Query: "refund policy"}, api.postBodies[0])

	assert.Len(t, resp.Results, 3)
	assert.Equal(t, 3, resp.TotalResults)
	assert.Equal(t, 0.42, resp.ExecutionTime)
}

func TestSummarizeNonQueryFieldsAreConstantAcrossCalls(t *testing.T) {
	api := &fakeDispatcher{}
	svc := NewQueryService(api, nil)

	for _, q := range []string{"first query", "a completely different one", ""} {
		_, err := svc.Summarize(context.Background(), q)
		require.NoError(t, err)
	}

	require.Len(t, api.postBodies, 3)
	for _, body := range api.postBodies {
		req, ok := body.(summarizeRequest)
		require.True(t, ok)
		assert.Equal(t, "multi", req.Mode)
		assert.Equal(t, 200, req.MaxLength)
		assert.Equal(t, 50, req.MinLength)
	}
	assert.Equal(t, "first query", api.postBodies[0].(summarizeRequest).Query)
}

func TestChatSendsFullHistoryAndDocumentIDs(t *testing.T) {
	api := &fakeDispatcher{
		postFn: func(path string, in, out any) error {
			*(out.(*models.ChatResponse)) = models.ChatResponse{Answer: "hi"}
			return nil
		},
	}
	svc := NewQueryService(api, nil)

	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "q1"},
		{Role: models.RoleAssistant, Content: "a1"},
	}
	resp, err := svc.Chat(context.Background(), "q2", history, []string{"d1", "d2"})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Answer)

	req := api.postBodies[0].(chatRequest)
	assert.Equal(t, "q2", req.Query)
	assert.Equal(t, history, req.History)
	assert.Equal(t, []string{"d1", "d2"}, req.DocumentIDs)
	assert.Equal(t, []string{"/api/v1/chat"}, api.postPaths)
}

func TestChatNilSlicesBecomeEmptyNotNull(t *testing.T) {
	api := &fakeDispatcher{}
	svc := NewQueryService(api, nil)

	_, err := svc.Chat(context.Background(), "hello", nil, nil)
	require.NoError(t, err)

	req := api.postBodies[0].(chatRequest)
	assert.NotNil(t, req.History)
	assert.NotNil(t, req.DocumentIDs)
	assert.Empty(t, req.History)
	assert.Empty(t, req.DocumentIDs)
}
