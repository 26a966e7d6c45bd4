package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/"

type OpenAIClient struct {
	client *openai.Client
}

// OpenAi reads OPENAI_API_BASE_URL and OPENAI_API_KEY when not given.
func OpenAi(ctx context.Context, opts ...ProviderOption) *OpenAIClient {
	params := apply(opts)
	params.BaseURL = envOr(params.BaseURL, "OPENAI_API_BASE_URL")
	if params.BaseURL == "" {
		params.BaseURL = defaultOpenAIBaseURL
	}
	params.APIKey = envOr(params.APIKey, "OPENAI_API_KEY")

	reqOpts := []option.RequestOption{option.WithBaseURL(params.BaseURL)}
	if params.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(params.APIKey))
	}
	log.Debug().Str("base_url", params.BaseURL).Msg("using openai endpoint")
	return &OpenAIClient{client: openai.NewClient(reqOpts...)}
}

func (c *OpenAIClient) Complete(ctx context.Context, model, prompt, system string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F(messages),
		Model:    openai.F(model),
	})
	if err != nil {
		return "", err
	}
	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return chatCompletion.Choices[0].Message.Content, nil
}
