// Package summarizer talks to the text-summarization backend, an
// OpenAI-compatible chat-completions API (OpenRouter by default).
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

const (
	SystemPrompt = "You are a helpful assistant that summarizes text concisely. " +
		"Provide the summary directly without any introductory phrases like 'Here is the summary:'."

	UntitledNote = "Untitled Note"

	temperature = 0.3
	maxTokens   = 150
	topP        = 1.0
)

// Summarizer turns note text into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, title, content string) (string, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// SiteURL and AppName identify the caller to OpenRouter
	// (HTTP-Referer and X-Title headers).
	SiteURL string
	AppName string
}

type OpenRouter struct {
	client openai.Client
	model  string
	log    logging.Logger
}

// NewOpenRouter returns ErrNotConfigured when no API key is set.
func NewOpenRouter(cfg Config, log logging.Logger, opts ...option.RequestOption) (*OpenRouter, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	all := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		all = append(all, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.SiteURL != "" {
		all = append(all, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.AppName != "" {
		all = append(all, option.WithHeader("X-Title", cfg.AppName))
	}
	all = append(all, opts...)

	return &OpenRouter{
		client: openai.NewClient(all...),
		model:  cfg.Model,
		log:    log.With("module", "summarizer"),
	}, nil
}

// UserPrompt builds the prompt sent for a note.
func UserPrompt(title, content string) string {
	if title == "" {
		title = UntitledNote
	}
	return fmt.Sprintf("Summarize the following note content (Original Title: \"%s\"):\n\n%s", title, content)
}

// Summarize performs exactly one backend call. Failures come back as *Error.
func (o *OpenRouter) Summarize(ctx context.Context, title, content string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(UserPrompt(title, content)),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
		TopP:        openai.Float(topP),
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", o.classify(ctx, err)
	}

	if len(completion.Choices) == 0 {
		return MessageNoSummary, nil
	}
	summary := strings.TrimSpace(completion.Choices[0].Message.Content)
	if summary == "" {
		return MessageNoSummary, nil
	}
	return summary, nil
}

func (o *OpenRouter) classify(ctx context.Context, err error) *Error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		o.log.Error(ctx, "summarization backend unreachable", "error", err)
		return serviceFailure()
	}

	msg := backendMessage(apiErr)
	o.log.Warn(ctx, "summarization backend error", "status", apiErr.StatusCode, "message", msg)

	switch apiErr.StatusCode {
	case http.StatusPaymentRequired:
		return usageLimit()
	case http.StatusBadRequest:
		return badRequest(msg)
	default:
		return serviceFailure()
	}
}

// backendMessage prefers the decoded message and falls back to the
// error.message field of the raw response body.
func backendMessage(apiErr *openai.Error) string {
	if apiErr.Message != "" {
		return apiErr.Message
	}
	if apiErr.Response == nil || apiErr.Response.Body == nil {
		return http.StatusText(apiErr.StatusCode)
	}
	body, err := io.ReadAll(apiErr.Response.Body)
	if err != nil {
		return http.StatusText(apiErr.StatusCode)
	}
	if m := gjson.GetBytes(body, "error.message"); m.Exists() && m.String() != "" {
		return m.String()
	}
	if m := gjson.GetBytes(body, "message"); m.Exists() && m.String() != "" {
		return m.String()
	}
	return http.StatusText(apiErr.StatusCode)
}
