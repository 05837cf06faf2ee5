package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codereview-gateway/ai/domain"
)

func TestCompletionClient_SendsChatRequest(t *testing.T) {
	var got chatRequest
	var auth, path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"gemini-2.0-flash-001","choices":[{"message":{"role":"assistant","content":"No issues found."}}]}`))
	}))
	defer srv.Close()

	c := NewCompletionClient(srv.URL+"/v1beta/openai/", "secret", "gemini-2.0-flash", 5*time.Second, WithTemperature(0))

	out, err := c.Complete(context.Background(), domain.Prompt{System: "review", User: "x := 1"})

	require.NoError(t, err)
	assert.Equal(t, domain.Completion{Text: "No issues found.", Model: "gemini-2.0-flash-001"}, out)
	assert.Equal(t, "/v1beta/openai/chat/completions", path)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "gemini-2.0-flash", got.Model)
	assert.Equal(t, float64(0), got.Temperature)
	assert.Equal(t, []chatMessage{{Role: "system", Content: "review"}, {Role: "user", Content: "x := 1"}}, got.Messages)
}

func TestCompletionClient_OmitsEmptySystemMessage(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewCompletionClient(srv.URL, "", "m", time.Second)
	out, err := c.Complete(context.Background(), domain.Prompt{User: "code"})

	require.NoError(t, err)
	assert.Equal(t, "m", out.Model)
	assert.Equal(t, []chatMessage{{Role: "user", Content: "code"}}, got.Messages)
}

func TestCompletionClient_Non2xxBecomesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewCompletionClient(srv.URL, "k", "m", time.Second)
	_, err := c.Complete(context.Background(), domain.Prompt{User: "code"})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, `{"error":"quota exceeded"}`, se.Body)
}

func TestCompletionClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewCompletionClient(srv.URL, "k", "m", time.Second)
	_, err := c.Complete(context.Background(), domain.Prompt{User: "code"})

	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestCompletionClient_InvalidJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	c := NewCompletionClient(srv.URL, "k", "m", time.Second)
	_, err := c.Complete(context.Background(), domain.Prompt{User: "code"})

	assert.ErrorContains(t, err, "decode response")
}

func TestCompletionClient_HonoursContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewCompletionClient(srv.URL, "k", "m", 5*time.Second)
	_, err := c.Complete(ctx, domain.Prompt{User: "code"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
