package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
)

const onlineSuffix = ":online"

type openRouterClient struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

func newOpenRouter(cfg Config) *openRouterClient {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOpenRouterBaseURL
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(base),
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithHeader("X-Title", "ai-shot"),
		option.WithMaxRetries(0),
	)
	return &openRouterClient{
		client: &client,
		model:  cfg.Model,
		log:    cfg.Logger.With().Str("component", "llm").Str("provider", "openrouter").Logger(),
	}
}

// modelFor appends the web search suffix OpenRouter uses for grounding.
func modelFor(model string, search bool) string {
	if search && !strings.HasSuffix(model, onlineSuffix) {
		return model + onlineSuffix
	}
	return model
}

func buildChatParams(model string, req Request) openai.ChatCompletionNewParams {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.ImageJPEG)

	var messages []openai.ChatCompletionMessageParamUnion
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	}))

	return openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelFor(model, req.Search)),
		Messages: messages,
	}
}

func (c *openRouterClient) OpenStream(ctx context.Context, req Request) (Stream, error) {
	params := buildChatParams(c.model, req)
	var opts []option.RequestOption
	if req.Thinking {
		opts = append(opts, option.WithJSONSet("reasoning", map[string]any{"max_tokens": ThinkingBudget}))
	}

	c.log.Debug().
		Str("model", string(params.Model)).
		Int("image_bytes", len(req.ImageJPEG)).
		Bool("thinking", req.Thinking).
		Msg("opening stream")

	s := &openRouterStream{stream: c.client.Chat.Completions.NewStreaming(ctx, params, opts...)}

	// The HTTP round trip happens on the first Next; surface its failure as a
	// connect error rather than a mid-stream one.
	if !s.stream.Next() {
		err := s.stream.Err()
		_ = s.stream.Close()
		if err != nil {
			return nil, classifyOpenAIError(err)
		}
		s.done = true
		return s, nil
	}
	s.absorb(s.stream.Current())
	return s, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return ErrRateLimited
		}
		return fmt.Errorf("%w: status %d: %v", ErrConnect, apiErr.StatusCode, err)
	}
	return fmt.Errorf("%w: %v", ErrConnect, err)
}

type openRouterStream struct {
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	pending []Chunk
	done    bool
}

// reasoningDelta is the OpenRouter extension to the delta object.
type reasoningDelta struct {
	Reasoning string `json:"reasoning"`
}

func (s *openRouterStream) absorb(chunk openai.ChatCompletionChunk) {
	if len(chunk.Choices) == 0 {
		return
	}
	delta := chunk.Choices[0].Delta
	var extra reasoningDelta
	if raw := delta.RawJSON(); raw != "" && json.Unmarshal([]byte(raw), &extra) == nil && extra.Reasoning != "" {
		s.pending = append(s.pending, Chunk{Kind: ChunkThought, Text: extra.Reasoning})
	}
	if delta.Content != "" {
		s.pending = append(s.pending, Chunk{Kind: ChunkText, Text: delta.Content})
	}
}

func (s *openRouterStream) Next() (Chunk, error) {
	for {
		if len(s.pending) > 0 {
			ch := s.pending[0]
			s.pending = s.pending[1:]
			return ch, nil
		}
		if s.done {
			return Chunk{}, io.EOF
		}
		if !s.stream.Next() {
			s.done = true
			if err := s.stream.Err(); err != nil {
				return Chunk{}, fmt.Errorf("%w: %v", ErrStream, err)
			}
			return Chunk{}, io.EOF
		}
		s.absorb(s.stream.Current())
	}
}

func (s *openRouterStream) Close() error {
	s.done = true
	return s.stream.Close()
}
