// Package llm adapts Gemini (google.golang.org/genai) to the scouting and
// assistant contracts. Nothing outside this package imports genai.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"leadgenius-engine/internal/domain"
)

// KeyFunc returns the current API key. An empty key means the capability is missing.
type KeyFunc func() (string, error)

type Models struct {
	Discovery string
	Structure string
	Audit     string
	Chat      string
}

func DefaultModels() Models {
	return Models{
		Discovery: "gemini-2.5-flash",
		Structure: "gemini-3-flash-preview",
		Audit:     "gemini-3-flash-preview",
		Chat:      "gemini-3-pro-preview",
	}
}

type Config struct {
	Key     KeyFunc
	Models  Models
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client holds one genai client per API key. It is rebuilt when the key changes.
type Client struct {
	key     KeyFunc
	models  Models
	timeout time.Duration
	log     *zap.Logger

	mu      sync.Mutex
	gc      *genai.Client
	builtBy string
}

func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	def := DefaultModels()
	if cfg.Models.Discovery == "" {
		cfg.Models.Discovery = def.Discovery
	}
	if cfg.Models.Structure == "" {
		cfg.Models.Structure = def.Structure
	}
	if cfg.Models.Audit == "" {
		cfg.Models.Audit = def.Audit
	}
	if cfg.Models.Chat == "" {
		cfg.Models.Chat = def.Chat
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Client{key: cfg.Key, models: cfg.Models, timeout: cfg.Timeout, log: cfg.Logger}
}

func (c *Client) client(ctx context.Context) (*genai.Client, error) {
	if c.key == nil {
		return nil, fmt.Errorf("%w: no key source", domain.ErrUnauthorized)
	}
	key, err := c.key()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: api key not set", domain.ErrUnauthorized)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gc != nil && c.builtBy == key {
		return c.gc, nil
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	c.gc, c.builtBy = gc, key
	c.log.Debug("genai client created")
	return gc, nil
}

// generate is the one place that talks to the API.
func (c *Client) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	gc, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := gc.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		c.log.Warn("generate failed", zap.String("model", model), zap.Duration("took", time.Since(start)), zap.Error(err))
		return nil, classify(err)
	}
	c.log.Debug("generate ok", zap.String("model", model), zap.Duration("took", time.Since(start)))
	return resp, nil
}
