// Package openaicompat talks to OpenAI-compatible APIs (Ollama, LocalAI, vLLM, Azure-style proxies)
// through github.com/sashabaranov/go-openai with a configurable base URL.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/formbricks/popchoice/internal/models"
	vecutil "github.com/formbricks/popchoice/pkg/embeddings"
)

var (
	// ErrBaseURLRequired is returned by NewClient when no base URL is given.
	ErrBaseURLRequired = errors.New("openaicompat: base URL is required")
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = errors.New("openaicompat: input text is empty")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("openaicompat: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("openaicompat: embedding dimension mismatch")
	// ErrNoMessages is returned when CreateChatCompletion is called without messages.
	ErrNoMessages = errors.New("openaicompat: chat request has no messages")
	// ErrEmptyCompletion is returned when the API response has no choices or an empty reply.
	ErrEmptyCompletion = errors.New("openaicompat: empty chat completion")
)

// Client implements the embedding and chat-completion calls against an OpenAI-compatible server.
type Client struct {
	client         *openai.Client
	embeddingModel string
	chatModel      string
	dimensions     int
	normalize      bool
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithEmbeddingModel sets the embedding model name (e.g. nomic-embed-text).
func WithEmbeddingModel(model string) ClientOption {
	return func(c *Client) {
		c.embeddingModel = model
	}
}

// WithChatModel sets the default chat model, used when a request does not name one.
func WithChatModel(model string) ClientOption {
	return func(c *Client) {
		c.chatModel = model
	}
}

// WithDimensions sets the expected embedding length. Zero skips the check.
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithNormalize controls L2 normalization of returned embeddings (default true;
// several local servers return raw, non-unit vectors).
func WithNormalize(normalize bool) ClientOption {
	return func(c *Client) {
		c.normalize = normalize
	}
}

// NewClient creates a client for the OpenAI-compatible API at baseURL. apiKey may be empty for local servers.
func NewClient(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")

	client := &Client{
		client:    openai.NewClientWithConfig(cfg),
		normalize: true,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// EmbeddingModel returns the configured embedding model name.
func (c *Client) EmbeddingModel() string {
	return c.embeddingModel
}

// CreateEmbedding returns the embedding vector for the given text.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if input == "" {
		return nil, ErrEmptyInput
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{input},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Data[0].Embedding
	if c.dimensions > 0 && len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	if c.normalize {
		return vecutil.Normalized(emb), nil
	}

	return emb, nil
}

// CreateChatCompletion sends the messages and returns the first choice's reply text.
func (c *Client) CreateChatCompletion(ctx context.Context, req models.ChatRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", ErrNoMessages
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	model := req.Model
	if model == "" {
		model = c.chatModel
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            model,
		Messages:         messages,
		Temperature:      float32(req.Temperature),
		FrequencyPenalty: float32(req.FrequencyPenalty),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}

	return content, nil
}
