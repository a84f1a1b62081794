package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ronthekiehn/gpt-river/internal/stream"
)

// Options are the sampling parameters sent with every generation call.
type Options struct {
	NumPredict    int     // tokens requested per continuation
	Temperature   float64 // sampling temperature
	TopP          float64 // nucleus sampling mass
	TopK          int     // top-k cutoff
	RepeatPenalty float64 // anti-repetition penalty
	Seed          int     // fixed sampling seed; 0 leaves it to the server
}

// Client produces stream continuations via the Ollama generate API. It
// owns all text hygiene: prompt cleanup before the call and output
// cleaning after it. The driver only ever sees a non-empty, display-ready
// fragment or an error.
type Client struct {
	baseURL  string
	model    string
	opts     Options
	seedText string
	maxChunk int
	client   *http.Client

	mu         sync.Mutex
	calls      int
	failures   int
	evalTokens int
	lastTook   time.Duration
}

// NewClient creates a generation client.
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &Client{
		baseURL:  baseURL,
		model:    model,
		seedText: "Once upon a time...",
		maxChunk: 78,
		opts: Options{
			NumPredict:    30,
			Temperature:   0.7,
			TopP:          0.9,
			TopK:          40,
			RepeatPenalty: 1.1,
		},
		client: &http.Client{
			Timeout: 60 * time.Second, // generation can take a while
		},
	}
}

// SetOptions replaces the sampling parameters.
func (c *Client) SetOptions(opts Options) {
	c.opts = opts
}

// SetSeedText changes the fallback text used when the context is empty or
// a generation has to be retried.
func (c *Client) SetSeedText(seed string) {
	c.seedText = seed
}

// SetMaxChunk changes the per-cycle continuation budget in bytes.
func (c *Client) SetMaxChunk(n int) {
	c.maxChunk = n
}

// SetTimeout changes the per-call HTTP budget.
func (c *Client) SetTimeout(d time.Duration) {
	c.client.Timeout = d
}

// generateRequest is the Ollama API request format
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict    int     `json:"num_predict"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	TopK          int     `json:"top_k"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	Seed          int     `json:"seed,omitempty"`
}

// generateResponse is the Ollama API response format
type generateResponse struct {
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
}

// Generate returns the next cleaned continuation for the rolling context.
// An empty context falls back to the seed text. Model errors and
// continuations that clean down to nothing get one retry from the seed
// text; after that the cycle is reported failed. The returned fragment is
// always non-empty.
func (c *Client) Generate(contextText string) (string, error) {
	prompt := strings.TrimSpace(stream.StripMarkers(contextText))
	if prompt == "" {
		prompt = c.seedText
	}

	raw, err := c.complete(prompt)
	if err != nil {
		// One retry from the seed before giving up on the cycle
		prompt = c.seedText
		raw, err = c.complete(prompt)
		if err != nil {
			c.countFailure()
			return "", err
		}
	}

	text := c.clean(prompt, raw)
	if text == "" {
		raw, err = c.complete(c.seedText)
		if err != nil {
			c.countFailure()
			return "", err
		}
		text = c.clean(c.seedText, raw)
		if text == "" {
			c.countFailure()
			return "", fmt.Errorf("continuation empty after cleanup")
		}
	}
	return text, nil
}

// complete performs one generation call.
func (c *Client) complete(prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			NumPredict:    c.opts.NumPredict,
			Temperature:   c.opts.Temperature,
			TopP:          c.opts.TopP,
			TopK:          c.opts.TopK,
			RepeatPenalty: c.opts.RepeatPenalty,
			Seed:          c.opts.Seed,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Post(
		c.baseURL+"/api/generate",
		"application/json",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	c.mu.Lock()
	c.calls++
	c.evalTokens += result.EvalCount
	c.lastTook = time.Since(start)
	c.mu.Unlock()

	return result.Response, nil
}

// Healthy checks if the Ollama server is responding.
func (c *Client) Healthy() bool {
	resp, err := c.client.Get(c.baseURL + "/api/tags")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) countFailure() {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()
}

// Stats returns engine counters for the stats endpoint.
func (c *Client) Stats() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]int{
		"calls":        c.calls,
		"failures":     c.failures,
		"eval_tokens":  c.evalTokens,
		"last_call_ms": int(c.lastTook.Milliseconds()),
	}
}
