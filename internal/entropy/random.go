// Package entropy supplies the randomness consumed by the simulation.
// A seeded generator gives reproducible runs; the random.org client draws
// true randomness for live games and falls back to crypto/rand when the API
// is unavailable.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	mathrand "math/rand/v2"
	"net/http"
	"sync"
	"time"
)

// Source produces floats in [0, 1).
type Source interface {
	Float64() float64
}

// Seeded is a deterministic source. Safe for concurrent use.
type Seeded struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewSeeded returns a PCG-backed source for seed.
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{rng: mathrand.New(mathrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

const (
	defaultEndpoint = "https://api.random.org/json-rpc/4/invoke"
	batchSize       = 100
	lowWater        = 10
)

// Client provides true random numbers from random.org with a local pool.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client

	mu   sync.Mutex
	pool []float64
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at another JSON-RPC endpoint.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		return nil
	}
	c := &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Float64 returns a random float64 in [0, 1). Uses the pool, refilling from
// random.org when low. Falls back to crypto/rand on API failure.
func (c *Client) Float64() float64 {
	if c == nil {
		return CryptoFloat()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) < lowWater {
		if err := c.refill(); err != nil {
			slog.Debug("random.org refill failed", "error", err)
		}
	}

	if len(c.pool) == 0 {
		return CryptoFloat()
	}

	val := c.pool[0]
	c.pool = c.pool[1:]
	return val
}

// Pooled is the number of buffered values.
func (c *Client) Pooled() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pool)
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

func (c *Client) refill() error {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        c.apiKey,
			"n":             batchSize,
			"decimalPlaces": 6,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	resp, err := c.client.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var result struct {
		Result struct {
			Random struct {
				Data []float64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	if result.Error != nil {
		return fmt.Errorf("api: %s", result.Error.Message)
	}

	for _, v := range result.Result.Random.Data {
		if v >= 0 && v < 1 {
			c.pool = append(c.pool, v)
		}
	}
	slog.Debug("random.org pool refilled", "count", len(result.Result.Random.Data))
	return nil
}

// CryptoFloat returns a random float using crypto/rand (no API needed).
func CryptoFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// New picks the live source: random.org when a key is configured, the
// seeded generator otherwise.
func New(apiKey string, seed uint64) Source {
	if c := NewClient(apiKey); c != nil {
		return c
	}
	return NewSeeded(seed)
}
