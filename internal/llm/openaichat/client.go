package openaichat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/caldew/workdesk/internal/domain"
	"github.com/caldew/workdesk/internal/llm"
)

// ImageMode controls how image attachments reach the model.
type ImageMode int

const (
	// ImageParts sends images as base64 data-URL content parts
	// (OpenAI multimodal format).
	ImageParts ImageMode = iota
	// ImageInlineText embeds the base64 payload in the message text for
	// endpoints without content-part support (Cerebras, Ollama).
	ImageInlineText
)

// Client adapts any OpenAI-protocol chat completions endpoint. One
// implementation serves OpenAI, Cerebras, and a local Ollama endpoint,
// differing only in base URL, default model, and image handling.
type Client struct {
	name         string
	defaultModel string
	imageMode    ImageMode
	api          openai.Client
}

func NewClient(name, apiKey, baseURL, defaultModel string, imageMode ImageMode) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		name:         name,
		defaultModel: defaultModel,
		imageMode:    imageMode,
		api:          openai.NewClient(opts...),
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Begin(req llm.Request) (llm.Thread, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.System),
	}
	messages = append(messages, c.historyMessages(req.History)...)
	messages = append(messages, c.userMessage(req.UserText, req.Attachments))

	return &thread{
		client:   c,
		params:   c.completionParams(req.Params, req.Tools),
		messages: messages,
	}, nil
}

type thread struct {
	client   *Client
	params   openai.ChatCompletionNewParams
	messages []openai.ChatCompletionMessageParamUnion

	lastAssistant openai.ChatCompletionMessageParamUnion
}

func (t *thread) Send(ctx context.Context) (*llm.Turn, error) {
	params := t.params
	params.Messages = t.messages

	resp, err := t.client.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", t.client.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.ErrEmptyResponse
	}

	assistant := resp.Choices[0].Message
	t.lastAssistant = assistant.ToParam()

	turn := &llm.Turn{
		Text: assistant.Content,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, tc := range assistant.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			// Malformed arguments become an empty map; the executor
			// reports missing parameters back to the model.
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		turn.ToolCalls = append(turn.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return turn, nil
}

func (t *thread) AddToolResults(results []llm.ToolOutcome) {
	t.messages = append(t.messages, t.lastAssistant)
	for _, r := range results {
		t.messages = append(t.messages, openai.ToolMessage(llm.EncodeOutcome(r), r.CallID))
	}
}

// Stream performs a raw token stream with no tool support.
func (c *Client) Stream(ctx context.Context, req llm.Request) (io.ReadCloser, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.System),
	}
	messages = append(messages, c.historyMessages(req.History)...)
	messages = append(messages, c.userMessage(req.UserText, req.Attachments))

	params := c.completionParams(req.Params, nil)
	params.Messages = messages

	stream := c.api.Chat.Completions.NewStreaming(ctx, params)

	pr, pw := io.Pipe()
	go func() {
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if _, err := pw.Write([]byte(delta)); err != nil {
				return
			}
		}
		pw.CloseWithError(stream.Err())
	}()
	return pr, nil
}

func (c *Client) completionParams(p llm.Params, tools []llm.Tool) openai.ChatCompletionNewParams {
	model := p.Model
	if model == "" {
		model = c.defaultModel
	}
	params := openai.ChatCompletionNewParams{Model: model}
	if p.Temperature != nil {
		params.Temperature = openai.Float(*p.Temperature)
	}
	if p.TopP != nil {
		params.TopP = openai.Float(*p.TopP)
	}
	if p.MaxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.MaxCompletionTokens))
	}
	if p.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(p.ReasoningEffort)
	}
	for _, t := range tools {
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.Parameters),
		}))
	}
	return params
}

func (c *Client) historyMessages(history []domain.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case domain.RoleSystem:
			continue
		case domain.RoleAssistant:
			// Assistant turns that carried tool calls are not replayed;
			// tool exchanges live entirely within their own turn.
			if len(m.ToolCalls) > 0 {
				continue
			}
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}

func (c *Client) userMessage(text string, attachments []domain.Attachment) openai.ChatCompletionMessageParamUnion {
	if len(attachments) == 0 {
		return openai.UserMessage(text)
	}

	if c.imageMode == ImageInlineText {
		for _, a := range attachments {
			if a.IsImage() {
				text += fmt.Sprintf("\n\nImage attachment: %s (%s, %s)\nBase64 data: %s",
					a.Name, a.Mime, llm.FormatFileSize(a.Size),
					base64.StdEncoding.EncodeToString(a.Data))
			} else {
				text += llm.AttachmentNote(a)
			}
		}
		return openai.UserMessage(text)
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(text),
	}
	for _, a := range attachments {
		if a.IsImage() {
			dataURL := fmt.Sprintf("data:%s;base64,%s", a.Mime, base64.StdEncoding.EncodeToString(a.Data))
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL:    dataURL,
				Detail: "auto",
			}))
		} else {
			parts = append(parts, openai.TextContentPart(llm.AttachmentNote(a)))
		}
	}
	return openai.UserMessage(parts)
}
