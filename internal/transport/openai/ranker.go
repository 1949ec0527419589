package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/domain"
)

const rankerSystemPrompt = "You rank anime for a recommendation service. " +
	"Reply only with titles copied verbatim from the list you are given, best first."

// rankedTitles is the structured output the model must produce.
type rankedTitles struct {
	Titles []string `json:"titles"`
}

var rankedTitlesSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"titles": {
			Type:  jsonschema.Array,
			Items: &jsonschema.Definition{Type: jsonschema.String},
		},
	},
	Required:             []string{"titles"},
	AdditionalProperties: false,
}

// RankerConfig holds the chat model settings for the ranking oracle.
type RankerConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
	Logger      *zap.Logger
}

// Ranker asks a chat model to order candidate titles. Its output is untrusted;
// callers map titles back onto their own candidates.
type Ranker struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewRanker creates a chat-completion ranking oracle.
func NewRanker(cfg *RankerConfig) *Ranker {
	return &Ranker{
		client:      newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
}

// Rank sends prompt and returns the titles in the model's order.
func (r *Ranker) Rank(ctx context.Context, prompt string) ([]string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: r.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rankerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "ranked_titles",
				Schema: &rankedTitlesSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w: %w", err, domain.ErrRankerUnavailable)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices: %w", domain.ErrRankerUnavailable)
	}

	titles, err := parseTitles(resp.Choices[0].Message.Content)
	if err != nil {
		r.logger.Debug("Unparseable ranker output", zap.String("content", resp.Choices[0].Message.Content))
		return nil, err
	}
	return titles, nil
}

// parseTitles accepts {"titles": [...]}, tolerating a markdown code fence around it.
func parseTitles(content string) ([]string, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	var out rankedTitles
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &out); err != nil {
		return nil, fmt.Errorf("decode ranked titles: %w: %w", err, domain.ErrRankerUnavailable)
	}
	return out.Titles, nil
}
