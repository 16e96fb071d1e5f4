// Package ai wraps the remote text-generation API. Every public generator
// returns user-readable text, never an error: failures are converted to short
// localized messages so UI callers can render whatever comes back. Rate-limit
// responses additionally close the shared cooldown gate so later calls
// short-circuit without touching the network.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/beroea/beroea/internal/ratelimit"
	"github.com/beroea/beroea/pkg/utils"
)

// Client calls the generation API.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	http    *http.Client
	gate    *ratelimit.Gate
	logger  *zap.Logger

	cooldown    time.Duration // gate block after a 429
	minInterval time.Duration // minimum spacing between calls

	mu       sync.Mutex
	lastCall time.Time
	now      func() time.Time
}

// NewClient creates a generation client. The gate is shared with the
// dictionary cascade so a 429 anywhere pauses every AI path.
func NewClient(baseURL, model, apiKey string, gate *ratelimit.Gate, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     baseURL,
		model:       model,
		apiKey:      apiKey,
		http:        &http.Client{Timeout: 60 * time.Second},
		gate:        gate,
		logger:      logger,
		cooldown:    10 * time.Minute,
		minInterval: 2 * time.Second,
		now:         time.Now,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends one prompt and returns the generated text. Returns
// ratelimit.ErrRateLimited on a 429-class response; the caller decides how
// long to close the gate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Debug("generate request", zap.String("prompt", utils.Truncate(prompt, 120)))
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("generate: %w", ratelimit.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generate: unexpected status %d: %s", resp.StatusCode, raw)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	var sb strings.Builder
	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		break
	}
	return strings.TrimSpace(sb.String()), nil
}

// reserve claims the next call slot, enforcing the minimum spacing between
// calls. When the slot is not yet available it returns the remaining wait.
func (c *Client) reserve() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if wait := c.minInterval - now.Sub(c.lastCall); wait > 0 {
		return wait, false
	}
	c.lastCall = now
	return 0, true
}

// guard enforces the cooldown gate and the minimum call spacing. It returns a
// user-facing message when the call must not proceed.
func (c *Client) guard() (string, bool) {
	if remaining := c.gate.Remaining(); remaining > 0 {
		secs := int(math.Ceil(remaining.Seconds()))
		return fmt.Sprintf("La IA está temporalmente limitada. Intenta en %ds.", secs), false
	}
	if _, ok := c.reserve(); !ok {
		return "Espera un momento y vuelve a intentar.", false
	}
	return "", true
}

// friendly runs a prompt and maps every failure mode to a message.
func (c *Client) friendly(ctx context.Context, prompt, emptyMsg, errMsg string) string {
	if msg, ok := c.guard(); !ok {
		return msg
	}
	text, err := c.Generate(ctx, prompt)
	if err != nil {
		if errorsIsRateLimited(err) {
			c.gate.Block(c.cooldown)
			secs := int(math.Ceil(c.gate.Remaining().Seconds()))
			return fmt.Sprintf("Límite de IA alcanzado. Intenta en %ds.", secs)
		}
		c.logger.Warn("generation failed", zap.Error(err))
		return errMsg
	}
	if text == "" {
		return emptyMsg
	}
	return text
}
