package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/openai/openai-go/packages/ssestream"
	"github.com/rs/zerolog"
)

type geminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func newGemini(cfg Config) *geminiClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultGeminiBaseURL
	}
	return &geminiClient{
		apiKey:     cfg.APIKey,
		model:      NormalizeGeminiModel(cfg.Model),
		baseURL:    base,
		httpClient: cfg.HTTPClient,
		log:        cfg.Logger.With().Str("component", "llm").Str("provider", "gemini").Logger(),
	}
}

// NormalizeGeminiModel adds the "models/" prefix the REST API expects.
func NormalizeGeminiModel(model string) string {
	model = strings.TrimSpace(model)
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	Thought    bool              `json:"thought,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiThinkingConfig struct {
	ThinkingBudget  int  `json:"thinkingBudget"`
	IncludeThoughts bool `json:"includeThoughts"`
}

type geminiGenerationConfig struct {
	ThinkingConfig *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	Tools             []geminiTool            `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text    string `json:"text"`
				Thought bool   `json:"thought"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func buildGeminiRequest(req Request) geminiRequest {
	out := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: req.Prompt},
				{InlineData: &geminiInlineData{
					MimeType: "image/jpeg",
					Data:     base64.StdEncoding.EncodeToString(req.ImageJPEG),
				}},
			},
		}},
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	if req.Thinking {
		out.GenerationConfig = &geminiGenerationConfig{
			ThinkingConfig: &geminiThinkingConfig{ThinkingBudget: ThinkingBudget, IncludeThoughts: true},
		}
	}
	if req.Search {
		out.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}
	return out
}

func (c *geminiClient) endpoint() string {
	return fmt.Sprintf("%s/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
}

// OpenStream posts the request and returns a stream over the SSE body.
func (c *geminiClient) OpenStream(ctx context.Context, req Request) (Stream, error) {
	body, err := json.Marshal(buildGeminiRequest(req))
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrConnect, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	c.log.Debug().
		Str("model", c.model).
		Int("image_bytes", len(req.ImageJPEG)).
		Bool("thinking", req.Thinking).
		Bool("search", req.Search).
		Msg("opening stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrConnect, describeHTTPError(resp))
	}

	return &geminiStream{dec: ssestream.NewDecoder(resp), body: resp.Body}, nil
}

// describeHTTPError extracts the API error message from a failed response.
func describeHTTPError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var wrapped struct {
		Error *geminiError `json:"error"`
	}
	if json.Unmarshal(data, &wrapped) == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
		return fmt.Sprintf("%s: %s", resp.Status, wrapped.Error.Message)
	}
	if msg := strings.TrimSpace(string(data)); msg != "" {
		return fmt.Sprintf("%s: %s", resp.Status, msg)
	}
	return resp.Status
}

type geminiStream struct {
	dec     ssestream.Decoder
	body    io.Closer
	pending []Chunk
	done    bool
}

func (s *geminiStream) Next() (Chunk, error) {
	for {
		if len(s.pending) > 0 {
			ch := s.pending[0]
			s.pending = s.pending[1:]
			return ch, nil
		}
		if s.done {
			return Chunk{}, io.EOF
		}
		if !s.dec.Next() {
			s.done = true
			if err := s.dec.Err(); err != nil {
				return Chunk{}, fmt.Errorf("%w: %v", ErrStream, err)
			}
			return Chunk{}, io.EOF
		}

		data := bytes.TrimSpace(s.dec.Event().Data)
		if len(data) == 0 {
			continue
		}
		var resp geminiResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			s.done = true
			return Chunk{}, fmt.Errorf("%w: decode event: %v", ErrStream, err)
		}
		if resp.Error != nil {
			s.done = true
			if resp.Error.Code == http.StatusTooManyRequests {
				return Chunk{}, ErrRateLimited
			}
			return Chunk{}, fmt.Errorf("%w: %s", ErrStream, resp.Error.Message)
		}
		if len(resp.Candidates) == 0 {
			continue
		}
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.Text == "" {
				continue
			}
			kind := ChunkText
			if p.Thought {
				kind = ChunkThought
			}
			s.pending = append(s.pending, Chunk{Kind: kind, Text: p.Text})
		}
	}
}

func (s *geminiStream) Close() error {
	s.done = true
	if s.dec != nil {
		return s.dec.Close()
	}
	return s.body.Close()
}
