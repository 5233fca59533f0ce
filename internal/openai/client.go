// Package openai is a minimal client for the OpenAI chat completion and
// image generation endpoints. Requests authenticate with the per-user API
// key, never a service-wide one.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bothub/internal/models"
	"bothub/internal/observability"
)

const (
	defaultBaseURL = "https://api.openai.com"
	requestTimeout = 30 * time.Second

	chatMaxTokens   = 5000
	chatTemperature = 0.7

	imageModel   = "dall-e-3"
	imageSize    = "1024x1024"
	imageQuality = "standard"
)

// Message is one chat turn sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls an OpenAI-compatible API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient returns a Client for the given base URL. An empty base URL
// selects the public OpenAI endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: requestTimeout},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ChatCompletion sends the conversation to the chat completions endpoint and
// returns the assistant reply.
func (c *Client) ChatCompletion(ctx context.Context, apiKey, model string, messages []Message) (string, error) {
	start := time.Now()
	ctx, span := observability.GetTraceLayer().TraceProviderCall(ctx, "openai", "chat_completion")
	defer span.End()

	body := chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	}

	var out chatResponse
	if err := c.post(ctx, "/v1/chat/completions", apiKey, body, &out); err != nil {
		span.RecordError(err)
		observability.ObserveProviderCall("chat_completion", outcomeFor(err), start)
		return "", err
	}
	if out.Error != nil {
		err := models.NewProviderError("Chat completion failed", errors.New(out.Error.Message))
		span.RecordError(err)
		observability.ObserveProviderCall("chat_completion", "error", start)
		return "", err
	}
	if len(out.Choices) == 0 {
		err := models.NewProviderError("Chat completion returned no choices", nil)
		span.RecordError(err)
		observability.ObserveProviderCall("chat_completion", "error", start)
		return "", err
	}

	observability.ObserveProviderCall("chat_completion", "ok", start)
	return out.Choices[0].Message.Content, nil
}

// GenerateImage asks the images endpoint for a single image and returns its URL.
func (c *Client) GenerateImage(ctx context.Context, apiKey, prompt string) (string, error) {
	start := time.Now()
	ctx, span := observability.GetTraceLayer().TraceProviderCall(ctx, "openai", "image_generation")
	defer span.End()

	body := imageRequest{
		Model:   imageModel,
		Prompt:  prompt,
		N:       1,
		Size:    imageSize,
		Quality: imageQuality,
	}

	var out imageResponse
	if err := c.post(ctx, "/v1/images/generations", apiKey, body, &out); err != nil {
		span.RecordError(err)
		observability.ObserveProviderCall("image_generation", outcomeFor(err), start)
		return "", err
	}
	if out.Error != nil {
		err := models.NewProviderError("Image generation failed", errors.New(out.Error.Message))
		span.RecordError(err)
		observability.ObserveProviderCall("image_generation", "error", start)
		return "", err
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		err := models.NewProviderError("Image generation returned no image", nil)
		span.RecordError(err)
		observability.ObserveProviderCall("image_generation", "error", start)
		return "", err
	}

	observability.ObserveProviderCall("image_generation", "ok", start)
	return out.Data[0].URL, nil
}

func (c *Client) post(ctx context.Context, path, apiKey string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return models.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return models.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.NewProviderError("Provider request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.NewProviderError("Failed reading provider response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error payloads still follow the {"error": ...} shape; try to
		// surface the provider's message.
		var failure struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(data, &failure) == nil && failure.Error != nil {
			return models.NewProviderError(
				fmt.Sprintf("Provider returned %d", resp.StatusCode),
				errors.New(failure.Error.Message),
			)
		}
		return models.NewProviderError(fmt.Sprintf("Provider returned %d", resp.StatusCode), nil)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return models.NewProviderError("Malformed provider response", err)
	}
	return nil
}

func outcomeFor(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Err != nil && strings.Contains(appErr.Err.Error(), "Client.Timeout") {
		return "timeout"
	}
	return "error"
}
