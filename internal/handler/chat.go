package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caldew/workdesk/internal/chat"
	"github.com/caldew/workdesk/internal/config"
	"github.com/caldew/workdesk/internal/domain"
	"github.com/caldew/workdesk/internal/llm"
)

var providerNames = map[string]string{
	"anthropic": "Anthropic",
	"openai":    "OpenAI",
	"cerebras":  "Cerebras",
	"ollama":    "Ollama",
}

type chatRequest struct {
	Message             string               `json:"message"`
	Context             *domain.PageContext  `json:"context"`
	Messages            []domain.ChatMessage `json:"messages"`
	Model               string               `json:"model"`
	ReasoningEffort     string               `json:"reasoning_effort"`
	Stream              bool                 `json:"stream"`
	MaxCompletionTokens int                  `json:"max_completion_tokens"`
	Temperature         *float64             `json:"temperature"`
	TopP                *float64             `json:"top_p"`
	SessionID           string               `json:"session_id"`

	attachments []domain.Attachment
}

type chatUsage struct {
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	Cost             string `json:"cost,omitempty"`
}

type chatResponse struct {
	Message   string            `json:"message"`
	ToolCalls []domain.ToolCall `json:"toolCalls,omitempty"`
	Citations []domain.Citation `json:"citations,omitempty"`
	Usage     *chatUsage        `json:"usage,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
}

// Chat returns the endpoint for one provider. All four endpoints share
// the same request shape and the same tool-calling loop; only the
// provider behind them differs.
func (h *Handler) Chat(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := parseChatRequest(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid message content"})
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid message content"})
			return
		}

		p, ok := h.providers[provider]
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{
				"message": providerNames[provider] + " API key is not configured",
			})
			return
		}

		history := req.Messages
		if len(history) > config.MaxHistoryMessages {
			history = history[len(history)-config.MaxHistoryMessages:]
		}
		llmReq := llm.Request{
			System:      chat.SystemPrompt(req.Context),
			History:     history,
			UserText:    req.Message,
			Attachments: req.attachments,
			Params: llm.Params{
				Model:               req.Model,
				Temperature:         req.Temperature,
				TopP:                req.TopP,
				MaxCompletionTokens: req.MaxCompletionTokens,
				ReasoningEffort:     req.ReasoningEffort,
			},
		}

		if req.Stream {
			h.streamChat(c, p, llmReq)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), config.RequestTimeout)
		defer cancel()

		result, err := h.orchestrator.Run(ctx, p, llmReq)
		if err != nil {
			slog.Error("chat turn failed", "provider", provider, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error: " + err.Error()})
			return
		}

		resp := chatResponse{
			Message:   result.Message,
			ToolCalls: result.ToolCalls,
			Citations: result.Citations,
			Usage:     h.usagePayload(req.Model, result.Usage),
		}
		if req.SessionID != "" {
			resp.SessionID = h.persistTurn(ctx, c, req, result)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// streamChat bypasses the tool loop and copies raw text chunks to the
// client as they arrive.
func (h *Handler) streamChat(c *gin.Context, p llm.Provider, req llm.Request) {
	streamer, ok := p.(llm.Streamer)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Streaming is not supported for this provider"})
		return
	}

	rc, err := streamer.Stream(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error: " + err.Error()})
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)

	buf := make([]byte, 4096)
	for {
		n, err := rc.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				return
			}
			c.Writer.Flush()
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			slog.Error("stream aborted", "provider", p.Name(), "error", err)
			return
		}
	}
}

// persistTurn appends the user and assistant messages to the named
// session. Persistence failures do not fail the chat turn.
func (h *Handler) persistTurn(ctx context.Context, c *gin.Context, req chatRequest, result *chat.Result) string {
	uid := userID(c)
	session, err := h.sessions.Get(ctx, uid, req.SessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		session = &domain.ChatSession{ID: req.SessionID, UserID: uid, Messages: req.Messages}
	} else if err != nil {
		slog.Error("loading chat session failed", "session_id", req.SessionID, "error", err)
		return ""
	}

	now := time.Now()
	session.Messages = append(session.Messages,
		domain.ChatMessage{
			ID:          uuid.NewString(),
			Role:        domain.RoleUser,
			Content:     req.Message,
			Attachments: req.attachments,
			CreatedAt:   now,
		},
		domain.ChatMessage{
			ID:        uuid.NewString(),
			Role:      domain.RoleAssistant,
			Content:   result.Message,
			ToolCalls: result.ToolCalls,
			Citations: result.Citations,
			CreatedAt: now,
		},
	)
	if err := h.sessions.Save(ctx, session); err != nil {
		slog.Error("saving chat session failed", "session_id", session.ID, "error", err)
		return ""
	}
	return session.ID
}

func (h *Handler) usagePayload(model string, usage domain.Usage) *chatUsage {
	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return nil
	}
	payload := &chatUsage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.PromptTokens + usage.CompletionTokens,
	}
	if m, err := h.catalog.Find(model); err == nil {
		if cost := m.Cost(usage); !cost.Equal(decimal.Zero) {
			payload.Cost = cost.String()
		}
	}
	return payload
}

func parseChatRequest(c *gin.Context) (chatRequest, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return parseMultipartChat(c)
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return chatRequest{}, fmt.Errorf("decode chat request: %w", err)
	}
	return req, nil
}

func parseMultipartChat(c *gin.Context) (chatRequest, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return chatRequest{}, fmt.Errorf("parse multipart form: %w", err)
	}

	req := chatRequest{
		Message:         c.PostForm("message"),
		Model:           c.PostForm("model"),
		ReasoningEffort: c.PostForm("reasoning_effort"),
		Stream:          c.PostForm("stream") == "true",
		SessionID:       c.PostForm("session_id"),
	}
	if v := c.PostForm("context"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Context); err != nil {
			return chatRequest{}, fmt.Errorf("decode context: %w", err)
		}
	}
	if v := c.PostForm("messages"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Messages); err != nil {
			return chatRequest{}, fmt.Errorf("decode messages: %w", err)
		}
	}
	if v := c.PostForm("max_completion_tokens"); v != "" {
		req.MaxCompletionTokens, _ = strconv.Atoi(v)
	}
	if v := c.PostForm("temperature"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			req.Temperature = &t
		}
	}
	if v := c.PostForm("top_p"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			req.TopP = &t
		}
	}

	count, _ := strconv.Atoi(c.PostForm("attachmentCount"))
	for i := 0; i < count; i++ {
		field := fmt.Sprintf("attachment-%d", i)
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}
		att, err := readAttachment(headers[0])
		if err != nil {
			return chatRequest{}, err
		}
		if name := c.PostForm(field + "-name"); name != "" {
			att.Name = name
		}
		if mime := c.PostForm(field + "-type"); mime != "" {
			att.Mime = mime
		}
		req.attachments = append(req.attachments, att)
	}
	return req, nil
}

func readAttachment(fh *multipart.FileHeader) (domain.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	return domain.Attachment{
		Name: fh.Filename,
		Mime: fh.Header.Get("Content-Type"),
		Size: int64(len(data)),
		Data: data,
	}, nil
}
