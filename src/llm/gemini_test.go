package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseHandler(t *testing.T, events []string, inspect func(r *http.Request, body geminiRequest)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if inspect != nil {
			inspect(r, body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, ev := range events {
			fmt.Fprintf(w, "data: %s\n\n", ev)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}

func newTestGemini(t *testing.T, h http.Handler) Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "test-key", Model: "gemini-flash-latest", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func collect(t *testing.T, s Stream) ([]Chunk, error) {
	t.Helper()
	var out []Chunk
	for {
		ch, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ch)
	}
}

func TestGeminiStreamsTextAndThoughts(t *testing.T) {
	events := []string{
		`{"candidates":[{"content":{"parts":[{"text":"Looking at pixels","thought":true}]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":"This is "},{"text":"a cat."}]}}]}`,
		`{"candidates":[{"content":{"parts":[]},"finishReason":"STOP"}]}`,
	}
	c := newTestGemini(t, sseHandler(t, events, func(r *http.Request, body geminiRequest) {
		assert.Equal(t, "/models/gemini-flash-latest:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		require.Len(t, body.Contents, 1)
		parts := body.Contents[0].Parts
		require.Len(t, parts, 2)
		assert.Equal(t, "what is it?", parts[0].Text)
		require.NotNil(t, parts[1].InlineData)
		assert.Equal(t, "image/jpeg", parts[1].InlineData.MimeType)
		assert.Equal(t, "/9j/", parts[1].InlineData.Data[:4])

		require.NotNil(t, body.SystemInstruction)
		assert.Equal(t, "be brief", body.SystemInstruction.Parts[0].Text)
		require.NotNil(t, body.GenerationConfig)
		assert.Equal(t, ThinkingBudget, body.GenerationConfig.ThinkingConfig.ThinkingBudget)
		assert.True(t, body.GenerationConfig.ThinkingConfig.IncludeThoughts)
		require.Len(t, body.Tools, 1)
		assert.NotNil(t, body.Tools[0].GoogleSearch)
	}))

	s, err := c.OpenStream(context.Background(), Request{
		Prompt:       "what is it?",
		SystemPrompt: "be brief",
		ImageJPEG:    []byte{0xFF, 0xD8, 0xFF, 0xE0},
		Thinking:     true,
		Search:       true,
	})
	require.NoError(t, err)
	defer s.Close()

	got, err := collect(t, s)
	require.NoError(t, err)
	assert.Equal(t, []Chunk{
		{Kind: ChunkThought, Text: "Looking at pixels"},
		{Kind: ChunkText, Text: "This is "},
		{Kind: ChunkText, Text: "a cat."},
	}, got)
}

func TestGeminiOmitsOptionalSections(t *testing.T) {
	c := newTestGemini(t, sseHandler(t, nil, func(r *http.Request, body geminiRequest) {
		assert.Nil(t, body.SystemInstruction)
		assert.Nil(t, body.GenerationConfig)
		assert.Empty(t, body.Tools)
	}))

	s, err := c.OpenStream(context.Background(), Request{Prompt: "p", SystemPrompt: "   "})
	require.NoError(t, err)
	got, err := collect(t, s)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGeminiRateLimited(t *testing.T) {
	c := newTestGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	_, err := c.OpenStream(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestGeminiHTTPErrorCarriesMessage(t *testing.T) {
	c := newTestGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	}))
	_, err := c.OpenStream(context.Background(), Request{Prompt: "p"})
	require.ErrorIs(t, err, ErrConnect)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGeminiErrorEventEndsStream(t *testing.T) {
	events := []string{
		`{"candidates":[{"content":{"parts":[{"text":"partial"}]}}]}`,
		`{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`,
	}
	c := newTestGemini(t, sseHandler(t, events, nil))

	s, err := c.OpenStream(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	got, err := collect(t, s)
	assert.ErrorIs(t, err, ErrStream)
	assert.Equal(t, []Chunk{{Kind: ChunkText, Text: "partial"}}, got)
}

func TestGeminiMalformedEvent(t *testing.T) {
	c := newTestGemini(t, sseHandler(t, []string{`{"candidates":`}, nil))
	s, err := c.OpenStream(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	_, err = collect(t, s)
	assert.ErrorIs(t, err, ErrStream)
}

func TestGeminiUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{APIKey: "k", Model: "m", BaseURL: base})
	require.NoError(t, err)
	_, err = c.OpenStream(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrConnect)
}
