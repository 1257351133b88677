package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "anthropic/claude-3.5-sonnet"

	companionSystemPrompt = "You are a helpful, caring friend, not a therapist. " +
		"Talk casually, be warm, and give practical, specific advice when asked. " +
		"Keep responses to 2-4 sentences unless listing steps."

	// FallbackReply goes out when the model is unreachable. The bot must
	// keep answering even with the AI down.
	FallbackReply = "I'm here for you. Tell me more about what you need help with."

	// FallbackBoost replaces a generated motivation line on failure.
	FallbackBoost = "Small steps every day add up. Keep going! 💪"
)

// Client calls an OpenRouter-compatible chat completion API. Responses can
// be cached in Redis to cut cost on repeated prompts.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs an AI client. Empty baseURL and model select the
// OpenRouter defaults.
func NewClient(baseURL, apiKey, model string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "ai").Logger(),
	}
}

// UseRedisCache enables response caching.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat answers a free-form message in companion mode. On any failure it
// returns the canned fallback so the conversation never dead-ends.
func (c *Client) Chat(ctx context.Context, prompt string) string {
	reply, err := c.complete(ctx, companionSystemPrompt, prompt, 250)
	if err != nil {
		c.logger.Error().Err(err).Msg("chat completion failed, using fallback")
		return FallbackReply
	}
	return reply
}

// Boost generates a short motivation line for a goal or habit.
func (c *Client) Boost(ctx context.Context, itemText string) string {
	prompt := fmt.Sprintf("Write one short, energetic motivation line (max 20 words) for someone working on: %s", itemText)
	reply, err := c.complete(ctx,
		"You write short, punchy motivational one-liners. No preamble, just the line.",
		prompt, 60)
	if err != nil {
		c.logger.Error().Err(err).Msg("boost generation failed, using fallback")
		return FallbackBoost
	}
	return reply
}

// WeeklyInsight summarizes an owner's week for the premium report. An
// empty string means the caller should skip the insight section.
func (c *Client) WeeklyInsight(ctx context.Context, name string, completionRate float64, moods []string) string {
	prompt := fmt.Sprintf(
		"User %s completed %.0f%% of their goals and habits this week. Recent moods: %s. "+
			"Write 2-3 warm, specific sentences of encouragement and one concrete suggestion for next week.",
		name, completionRate, strings.Join(moods, ", "))
	reply, err := c.complete(ctx, companionSystemPrompt, prompt, 200)
	if err != nil {
		c.logger.Error().Err(err).Msg("weekly insight failed, skipping")
		return ""
	}
	return reply
}

func (c *Client) complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	cacheKey := c.cacheKey(system, prompt)
	if cached, ok := c.readCache(ctx, cacheKey); ok {
		return cached, nil
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	reply := strings.TrimSpace(parsed.Choices[0].Message.Content)
	c.writeCache(ctx, cacheKey, reply)
	return reply, nil
}

func (c *Client) cacheKey(system, prompt string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + system + "\x00" + prompt))
	return "ai:" + hex.EncodeToString(sum[:16])
}

func (c *Client) readCache(ctx context.Context, key string) (string, bool) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return "", false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *Client) writeCache(ctx context.Context, key, val string) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	_ = c.redis.Set(ctx, key, val, c.cacheTTL).Err()
}
