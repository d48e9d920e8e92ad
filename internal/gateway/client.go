package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrRateLimited = errors.New("ai gateway rate limited")
	ErrUnavailable = errors.New("ai gateway unavailable")
)

type Config struct {
	BaseURL    string        `yaml:"baseUrl"`
	ChatModel  string        `yaml:"chatModel"`
	ImageModel string        `yaml:"imageModel"`
	Timeout    time.Duration `yaml:"timeout"`

	// Env only.
	APIKey string `yaml:"-"`
}

// Client is a thin wrapper over an OpenAI-compatible AI gateway. Each call is
// a single request/response; retries are left to the caller.
type Client struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	var out chatResponse
	err := c.post(ctx, "/v1/chat/completions", chatRequest{
		Model:    c.cfg.ChatModel,
		Messages: messages,
	}, &out)
	if err != nil {
		return "", err
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("ai gateway returned no choices")
	}

	return out.Choices[0].Message.Content, nil
}

type GameRating struct {
	Score   int    `json:"score"`
	Verdict string `json:"verdict"`
}

const ratingPrompt = `You rate children's browser games for fun and safety.
Reply with JSON only: {"score": <1-10>, "verdict": "<one sentence>"}.`

func (c *Client) RateGame(ctx context.Context, title, description string) (*GameRating, error) {
	content, err := c.Chat(ctx, []ChatMessage{
		{Role: "system", Content: ratingPrompt},
		{Role: "user", Content: fmt.Sprintf("Title: %s\nDescription: %s", title, description)},
	})
	if err != nil {
		return nil, err
	}

	var rating GameRating
	if err := json.Unmarshal([]byte(content), &rating); err != nil {
		return nil, fmt.Errorf("failed to parse game rating: %w", err)
	}

	return &rating, nil
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	var out imageResponse
	err := c.post(ctx, "/v1/images/generations", imageRequest{
		Model:  c.cfg.ImageModel,
		Prompt: prompt,
		Size:   "1024x1024",
	}, &out)
	if err != nil {
		return "", err
	}

	if len(out.Data) == 0 {
		return "", fmt.Errorf("ai gateway returned no image")
	}

	return out.Data[0].URL, nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("ai gateway returned %d: %s", resp.StatusCode, respBody)
	}

	return json.Unmarshal(respBody, out)
}
