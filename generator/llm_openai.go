package generator

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions).
// SDK-level retries are disabled; callers wrap Complete in a retry.Policy.
type OpenAILLM struct {
	Model  string
	client openai.Client
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; provide llm.api_key or OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAILLM{Model: cfg.Model, client: openai.NewClient(opts...)}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if prompt.System != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	model := o.Model
	if prompt.Model != "" {
		model = prompt.Model
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if prompt.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(prompt.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindMalformed, Op: "openai", Err: errors.New("empty choices")}
	}
	msg := resp.Choices[0].Message
	if msg.Content == "" {
		// tool calls and refusals carry no text block
		return "", &Error{Kind: KindMalformed, Op: "openai", Err: ErrNonText}
	}
	return msg.Content, nil
}

func classifyOpenAI(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch code := apiErr.StatusCode; {
		case code == http.StatusTooManyRequests,
			code == http.StatusRequestTimeout,
			code >= http.StatusInternalServerError:
			return &Error{Kind: KindTransient, Op: "openai", Err: err}
		default:
			return &Error{Kind: KindUpstream, Op: "openai", Err: err}
		}
	}
	if IsTransient(err) {
		return &Error{Kind: KindTransient, Op: "openai", Err: err}
	}
	return &Error{Kind: KindUpstream, Op: "openai", Err: err}
}
