package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CompatibleClient talks to any server exposing an OpenAI-compatible /chat/completions endpoint.
type CompatibleClient struct {
	apiURL string
	apiKey string
	model  string
	http   *http.Client
}

// NewCompatibleClient creates a client for apiURL. A zero timeout disables the client timeout.
func NewCompatibleClient(apiURL, apiKey, model string, timeout time.Duration) *CompatibleClient {
	return &CompatibleClient{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{Timeout: timeout},
	}
}

func (c *CompatibleClient) Model() string { return c.model }

// Complete sends the system and user prompt and returns the first choice.
func (c *CompatibleClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]Message, 0, 2)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, Message{Role: "user", Content: req.Prompt})

	temperature := req.Temperature
	reqBody := CompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshalling request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &StatusError{Code: resp.StatusCode, Body: errorMessage(bodyBytes)}
	}

	var compResp CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&compResp); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}
	if len(compResp.Choices) == 0 {
		return "", fmt.Errorf("no response choices found: %w", ErrEmptyResponse)
	}

	choice := compResp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", &RefusalError{Reason: choice.Message.Refusal}
	}
	if choice.FinishReason == "content_filter" {
		return "", &RefusalError{Reason: "content filtered"}
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return choice.Message.Content, nil
}

func errorMessage(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}
