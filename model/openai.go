package model

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultOpenAIEmbedModel = "text-embedding-3-small"
	DefaultOpenAIChatModel  = "gpt-4o-mini"
)

// OpenAIClient is the alternate provider: same embedding-provider and
// Generator contracts as the Ollama client, backed by the OpenAI API.
type OpenAIClient struct {
	client     openai.Client
	embedModel string
	chatModel  string
	dimension  int
}

func NewOpenAIClient(apiKey, embedModel, chatModel string, dimension int) *OpenAIClient {
	if embedModel == "" {
		embedModel = DefaultOpenAIEmbedModel
	}
	if chatModel == "" {
		chatModel = DefaultOpenAIChatModel
	}
	return &OpenAIClient{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		embedModel: embedModel,
		chatModel:  chatModel,
		dimension:  dimension,
	}
}

func (c *OpenAIClient) embed(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}
	if c.dimension > 0 {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	out := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(c.chatModel),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
