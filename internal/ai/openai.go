package ai

import (
	"context"
	"io"
	"iter"

	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI compatible chat completion API.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	chatModel string
}

// NewOpenAIClient creates a client. An empty baseURL uses the OpenAI API. The chat model serves streaming
// completions, which are used for conversations.
func NewOpenAIClient(apiKey string, baseURL string, model string, chatModel string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		chatModel: chatModel,
	}
}

func messages(prompt string, system string) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	return append(msgs, openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, system string) (string, error) {
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     c.model,
			MaxTokens: maxTokens,
			Messages:  messages(prompt, system),
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) CompleteStreaming(ctx context.Context, prompt string, system string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream, err := c.client.CreateChatCompletionStream(
			ctx,
			openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
				Model:    c.chatModel,
				Messages: messages(prompt, system),
			},
		)
		if err != nil {
			yield("", errors.Wrap(err, "create chat completion stream"))
			return
		}
		defer stream.Close()

		for {
			var resp openai.ChatCompletionStreamResponse
			resp, err = stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", errors.Wrap(err, "receive chat completion chunk"))
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(resp.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}
}
