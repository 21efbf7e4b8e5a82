// Package openai provides a thin wrapper around the official OpenAI Go SDK for embeddings and chat completions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/formbricks/popchoice/internal/models"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = errors.New("openai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("openai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("openai: embedding dimension mismatch")
	// ErrNoMessages is returned when CreateChatCompletion is called without messages.
	ErrNoMessages = errors.New("openai: chat request has no messages")
	// ErrEmptyCompletion is returned when the API response has no choices or an empty reply.
	ErrEmptyCompletion = errors.New("openai: empty chat completion")
	// ErrUnknownRole is returned for a chat message role the client cannot map.
	ErrUnknownRole = errors.New("openai: unknown chat message role")
)

const (
	defaultDimension      = 1536
	defaultEmbeddingModel = "text-embedding-ada-002"
	defaultChatModel      = "gpt-3.5-turbo-1106"
)

// Client calls the OpenAI embeddings and chat completions APIs via the official SDK.
type Client struct {
	sdk            openaisdk.Client
	embeddingModel string
	chatModel      string
	dimensions     int
	baseURL        string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the expected embedding dimension (must match the movies.embedding column).
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithEmbeddingModel sets the embedding model name. Empty uses text-embedding-ada-002.
func WithEmbeddingModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.embeddingModel = model
		}
	}
}

// WithChatModel sets the default chat model, used when a request does not name one.
func WithChatModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.chatModel = model
		}
	}
}

// WithBaseURL points the client at a different API host (tests, proxies).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient creates an OpenAI client using the official SDK. SDK retries are disabled;
// a failed call is reported to the caller and retried only by a new user submission.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		embeddingModel: defaultEmbeddingModel,
		chatModel:      defaultChatModel,
		dimensions:     defaultDimension,
	}

	for _, opt := range opts {
		opt(client)
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if client.baseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(client.baseURL))
	}

	client.sdk = openaisdk.NewClient(sdkOpts...)

	return client
}

// EmbeddingModel returns the configured embedding model name.
func (c *Client) EmbeddingModel() string {
	return c.embeddingModel
}

// CreateEmbedding returns the embedding vector for the given text.
// The returned slice length equals the configured dimensions.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if input == "" {
		return nil, ErrEmptyInput
	}

	if c.dimensions <= 0 {
		return nil, ErrInvalidDims
	}

	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(input),
		},
		Model: openaisdk.EmbeddingModel(c.embeddingModel),
	}
	// Only the text-embedding-3 family accepts a dimensions parameter; ada-002 rejects it.
	if strings.HasPrefix(c.embeddingModel, "text-embedding-3") {
		params.Dimensions = param.NewOpt(int64(c.dimensions))
	}

	resp, err := c.sdk.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Data[0].Embedding
	if len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	out := make([]float32, len(emb))
	for i := range emb {
		out[i] = float32(emb[i])
	}

	return out, nil
}

// CreateChatCompletion sends the messages and returns the first choice's reply text.
func (c *Client) CreateChatCompletion(ctx context.Context, req models.ChatRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", ErrNoMessages
	}

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			messages = append(messages, openaisdk.SystemMessage(m.Content))
		case models.RoleUser:
			messages = append(messages, openaisdk.UserMessage(m.Content))
		case models.RoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(m.Content))
		default:
			return "", fmt.Errorf("%w: %q", ErrUnknownRole, m.Role)
		}
	}

	model := req.Model
	if model == "" {
		model = c.chatModel
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:            openaisdk.ChatModel(model),
		Messages:         messages,
		Temperature:      openaisdk.Float(req.Temperature),
		FrequencyPenalty: openaisdk.Float(req.FrequencyPenalty),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
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
