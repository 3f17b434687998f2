// Package llm: OpenAI-compatible HTTP adapter.
// OpenAIClient talks to any endpoint implementing the OpenAI chat-completions
// API (OpenAI itself, Ollama's /v1 compatibility layer, vLLM, ...).
// Endpoints used:
//   - POST /chat/completions: single-shot and streamed completions
//   - GET  /models: health check
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	mimeJSON          = "application/json"
	mimeEventStream   = "text/event-stream"
	headerContentType = "Content-Type"
	headerAccept      = "Accept"

	// maxLineSize bounds a single streamed line.
	maxLineSize = 1 << 20
	// maxErrorBody bounds how much of a failed response is kept for logging.
	maxErrorBody = 4 << 10
)

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	// Provider is the name reported by ModelInfo ("openai", "ollama", ...).
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	// HeaderTimeout bounds the wait for response headers. The body of a
	// streamed completion is not subject to any timeout.
	HeaderTimeout time.Duration
}

// OpenAIClient implements ChatClient against an OpenAI-compatible endpoint.
type OpenAIClient struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewOpenAIClient creates an OpenAIClient. The returned client owns a single
// transport whose connection pool is shared by every request.
func NewOpenAIClient(cfg OpenAIConfig, log logrus.FieldLogger) *OpenAIClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.HeaderTimeout == 0 {
		cfg.HeaderTimeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.HeaderTimeout

	return &OpenAIClient{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
		log:        log.WithField("provider", cfg.Provider),
	}
}

// ─── wire JSON types ─────────────────────────────────────────────────────────

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

// wireRole maps a Role to the OpenAI role vocabulary.
func wireRole(r Role) string {
	switch r {
	case RoleSystem:
		return "system"
	case RoleAssistant:
		return "assistant"
	default:
		return "user"
	}
}

func (c *OpenAIClient) encodeRequest(req ChatRequest, stream bool) ([]byte, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	msgs := make([]wireMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = wireMessage{Role: wireRole(m.Role), Content: m.Content}
	}
	return json.Marshal(wireRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	})
}

// ─── ChatClient implementation ───────────────────────────────────────────────

// CompleteOnce performs a completion with stream=false. The whole body is read,
// split into blank-line-delimited records, and every record except the
// [DONE] sentinel is decoded. The last decoded record wins.
func (c *OpenAIClient) CompleteOnce(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := c.encodeRequest(req, false)
	if err != nil {
		return nil, fmt.Errorf("complete once: %w", err)
	}

	respBody, err := c.doPost(ctx, "/chat/completions", body, mimeJSON)
	if err != nil {
		return nil, err
	}
	defer respBody.Close() //nolint:errcheck

	raw, err := io.ReadAll(respBody)
	if err != nil {
		return nil, &TransportError{Op: "complete once: read body", Err: err}
	}
	return decodeLastRecord(raw)
}

// decodeLastRecord implements the record splitting of CompleteOnce.
func decodeLastRecord(raw []byte) (*ChatResponse, error) {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	var last *ChatResponse
	for _, record := range strings.Split(text, "\n\n") {
		record = strings.TrimSpace(record)
		if strings.HasPrefix(record, framePrefix) {
			record = strings.TrimSpace(record[len(framePrefix):])
		}
		if record == "" || record == DoneSentinel {
			continue
		}
		var decoded ChatResponse
		if err := json.Unmarshal([]byte(record), &decoded); err != nil {
			return nil, &MalformedPayloadError{Payload: record, Err: err}
		}
		last = &decoded
	}
	return last, nil
}

// CompleteStreamed performs a completion with stream=true and returns once the
// response headers arrive. No retries are attempted here.
func (c *OpenAIClient) CompleteStreamed(ctx context.Context, req ChatRequest) (LineStream, error) {
	body, err := c.encodeRequest(req, true)
	if err != nil {
		return nil, fmt.Errorf("complete streamed: %w", err)
	}

	respBody, err := c.doPost(ctx, "/chat/completions", body, mimeEventStream)
	if err != nil {
		return nil, err
	}
	c.log.WithField("model", c.ModelInfo().ID).Debug("completion stream opened")

	scanner := bufio.NewScanner(respBody)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &bodyLines{body: respBody, scanner: scanner}, nil
}

// ModelInfo returns static metadata for this provider/model.
func (c *OpenAIClient) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:       c.cfg.Model,
		Provider: c.cfg.Provider,
		BaseURL:  c.cfg.BaseURL,
	}
}

// HealthCheck calls GET /models and returns nil if the endpoint answers 200.
func (c *OpenAIClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("%s healthcheck: build request: %w", c.cfg.Provider, err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: c.cfg.Provider + " healthcheck", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: c.cfg.Provider + " healthcheck", StatusCode: resp.StatusCode}
	}
	return nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (c *OpenAIClient) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

// doPost sends a POST request to baseURL+path and returns the response body.
// Caller is responsible for closing the returned ReadCloser.
func (c *OpenAIClient) doPost(ctx context.Context, path string, body []byte, accept string) (io.ReadCloser, error) {
	op := fmt.Sprintf("%s post %s", c.cfg.Provider, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set(headerContentType, mimeJSON)
	req.Header.Set(headerAccept, accept)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close() //nolint:errcheck
		c.log.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode,
			"body":   string(detail),
		}).Warn("chat completion request rejected")
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// bodyLines adapts a response body to LineStream.
type bodyLines struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

func (l *bodyLines) Next() bool {
	if l.closed {
		return false
	}
	return l.scanner.Scan()
}

func (l *bodyLines) Line() string { return l.scanner.Text() }

func (l *bodyLines) Err() error {
	if err := l.scanner.Err(); err != nil {
		return &TransportError{Op: "read completion stream", Err: err}
	}
	return nil
}

func (l *bodyLines) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.body.Close()
}
