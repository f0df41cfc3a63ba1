package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"proposal-backend/internal/llm"
	"proposal-backend/internal/shared/telemetry"
)

const apiURL = "https://api.openai.com/v1/chat/completions"

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey       string
	defaultModel string
	httpClient   *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, defaultModel string) (*Client, error) {
	if strings.TrimSpace(defaultModel) == "" {
		return nil, fmt.Errorf("ANALYSIS_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// AnalyzeProposal runs one chat-completions call and returns the raw model JSON.
func (c *Client) AnalyzeProposal(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	model := strings.TrimSpace(input.Model)
	if model == "" {
		model = c.defaultModel
	}

	messages := buildMessages(input)
	raw, err := c.analyzeOnce(ctx, model, messages)
	if err != nil {
		return nil, err
	}
	if json.Valid(raw) {
		return raw, nil
	}

	// One repair round: ask the model to re-emit strict JSON.
	fixMessages := buildFixMessages(raw)
	raw, err = c.analyzeOnce(ctx, model, fixMessages)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid JSON from OpenAI")
	}
	return raw, nil
}

func (c *Client) analyzeOnce(ctx context.Context, model string, messages []chatMessage) (json.RawMessage, error) {
	temp := float32(0)
	reqBody := chatRequest{
		Model:    model,
		Messages: messages,
		ResponseFormat: responseFormat{
			Type: "json_object",
		},
	}
	reqBody.Temperature = &temp
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai response missing choices")
	}
	if parsed.Usage != nil {
		telemetry.Info("llm.usage", map[string]any{
			"model":             model,
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
			"total_tokens":      parsed.Usage.TotalTokens,
		})
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("openai response empty content")
	}
	return json.RawMessage(content), nil
}

const systemPrompt = `You evaluate a vendor's commercial proposal against a technical specification.
Respond with a single JSON object only, no prose, using exactly these fields:
{"companyName": string, "complianceScore": number 0-100, "strengths": [string],
"weaknesses": [string], "missingRequirements": [string],
"ratings": {"technical": number 0-10, "financial": number 0-10, "timeline": number 0-10, "overall": number 0-10},
"detailedAnalysis": string}`

func buildMessages(input llm.AnalyzeInput) []chatMessage {
	var user strings.Builder
	if strings.TrimSpace(input.ReferenceText) != "" {
		user.WriteString("TECHNICAL SPECIFICATION:\n")
		user.WriteString(input.ReferenceText)
		user.WriteString("\n\n")
	}
	user.WriteString("COMMERCIAL PROPOSAL")
	if input.ProposalName != "" {
		user.WriteString(" (" + input.ProposalName + ")")
	}
	user.WriteString(":\n")
	user.WriteString(input.ProposalText)

	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user.String()},
	}
}

func buildFixMessages(raw json.RawMessage) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: "The previous output was not valid JSON. Re-emit it as a single valid JSON object with the same data and no commentary."},
		{Role: "user", Content: string(raw)},
	}
}

var _ llm.Client = (*Client)(nil)
