package provider

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIStreamer is the default ChatStreamer, backed by true
// token-incremental streaming rather than a single synchronous call.
type OpenAIStreamer struct {
	client *openai.Client
}

// NewOpenAIStreamer builds a streamer against the OpenAI API (or an
// OpenAI-compatible endpoint when baseURL is non-empty).
func NewOpenAIStreamer(apiKey, baseURL string) *OpenAIStreamer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIStreamer{client: openai.NewClientWithConfig(cfg)}
}

// StreamChat implements ChatStreamer.
func (s *OpenAIStreamer) StreamChat(ctx context.Context, params Params, onChunk OnChunk) error {
	msgs := make([]openai.ChatCompletionMessage, 0, len(params.Messages))
	for _, m := range params.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:       params.Model,
		Messages:    msgs,
		Temperature: float32(params.Temperature),
		TopP:        float32(params.TopP),
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = params.MaxTokens
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			onChunk(Chunk{Done: true})
			return nil
		}
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		onChunk(Chunk{Content: resp.Choices[0].Delta.Content})
	}
}
