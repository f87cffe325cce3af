package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerper_Search(t *testing.T) {
	var got serperRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "serper-key", r.Header.Get("X-API-KEY"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		jsonHandler(t, map[string]any{
			"answerBox": map[string]any{"answer": "2"},
			"knowledgeGraph": map[string]any{
				"title":       "Lanny Flaherty",
				"type":        "American actor",
				"description": "Lanny Flaherty is an American actor.",
				"attributes":  map[string]string{"Born": "July 27, 1942", "Height": "1.80 m"},
			},
			"organic": []map[string]any{
				{"title": "A", "snippet": "first snippet", "attributes": map[string]string{"Years active": "1975-present"}},
				{"title": "B", "snippet": "second snippet"},
				{"title": "C", "snippet": "third snippet"},
			},
		})(w, r)
	}))
	defer server.Close()

	s, err := NewSerper(SerperConfig{APIKey: "serper-key", BaseURL: server.URL, K: 2, TimeRange: "week"})
	require.NoError(t, err)

	evidence, err := s.Search(context.Background(), "What is 1 + 1?", Options{})
	require.NoError(t, err)

	assert.Equal(t, "What is 1 + 1?", got.Q)
	assert.Equal(t, "us", got.GL)
	assert.Equal(t, "en", got.HL)
	assert.Equal(t, 2, got.Num)
	assert.Equal(t, "qdr:w", got.TBS)

	assert.Equal(t, "2 "+
		"Lanny Flaherty: American actor "+
		"Lanny Flaherty is an American actor. "+
		"Lanny Flaherty Born: July 27, 1942 "+
		"Lanny Flaherty Height: 1.80 m "+
		"first snippet Years active: 1975-present "+
		"second snippet", evidence)
}

func TestParseSerperSnippets(t *testing.T) {
	assert.Equal(t, []string{NoSerperResults}, parseSerperSnippets(serperResponse{}, 3))

	box := serperResponse{AnswerBox: &serperAnswerBox{Snippet: "line one\nline two"}}
	assert.Equal(t, []string{"line one line two"}, parseSerperSnippets(box, 1))

	highlighted := serperResponse{AnswerBox: &serperAnswerBox{SnippetHighlighted: []any{"a", "b"}}}
	assert.Equal(t, []string{"a b"}, parseSerperSnippets(highlighted, 1))
}

func TestNewSerper_MissingKey(t *testing.T) {
	_, err := NewSerper(SerperConfig{})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestSerper_StatusErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s, err := NewSerper(SerperConfig{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "q", Options{})
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSerper_RetriesTransientFailures(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]any{
		"organic": []map[string]any{{"snippet": "evidence"}},
	}))
	defer server.Close()

	transport := &flakyTransport{failures: 2, next: http.DefaultTransport}
	s, err := NewSerper(SerperConfig{APIKey: "k", BaseURL: server.URL, HTTPClient: &http.Client{Transport: transport}})
	require.NoError(t, err)

	evidence, err := s.Search(context.Background(), "q", Options{})
	require.NoError(t, err)
	assert.Equal(t, "evidence", evidence)
	assert.Equal(t, int32(3), transport.calls.Load())
}
