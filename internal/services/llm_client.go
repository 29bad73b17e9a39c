package services

import (
  "bufio"
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "os"
  "strings"
  "time"

  "github.com/aokimori/libretutor-backend/internal/logger"
)

// LLMMessage is the provider-independent chat message shape. System messages
// are split out per provider: both Anthropic and Gemini take the system
// prompt as a separate field.
type LLMMessage struct {
  Role    string `json:"role"` // system|user|assistant
  Content string `json:"content"`
}

// LLMClient abstracts the tutoring model. GenerateStream invokes onChunk for
// every text delta as it arrives and returns the full accumulated reply.
type LLMClient interface {
  Name() string
  GenerateStream(ctx context.Context, messages []LLMMessage, onChunk func(chunk string) error) (string, error)
  GenerateText(ctx context.Context, messages []LLMMessage) (string, error)
}

const (
  LLMProviderClaudeHaiku  = "claude-haiku"
  LLMProviderClaudeSonnet = "claude-sonnet"
  LLMProviderGeminiFlash  = "gemini-flash"

  // DefaultLLMProvider follows instructions most reliably of the three.
  DefaultLLMProvider = LLMProviderClaudeHaiku

  llmMaxTokens = 8192
)

// NewLLMClient builds the client for a provider key. Empty provider selects
// the default.
func NewLLMClient(log *logger.Logger, provider string) (LLMClient, error) {
  if provider == "" {
    provider = DefaultLLMProvider
  }
  switch provider {
  case LLMProviderClaudeHaiku:
    return newClaudeClient(log, "Claude Haiku", "claude-3-5-haiku-20241022")
  case LLMProviderClaudeSonnet:
    return newClaudeClient(log, "Claude Sonnet", "claude-3-7-sonnet-20250219")
  case LLMProviderGeminiFlash:
    return newGeminiClient(log)
  default:
    return nil, fmt.Errorf("unknown LLM provider: %s", provider)
  }
}

func splitSystem(messages []LLMMessage) (string, []LLMMessage) {
  var system string
  chat := make([]LLMMessage, 0, len(messages))
  for _, m := range messages {
    if m.Role == "system" {
      system = m.Content
      continue
    }
    chat = append(chat, m)
  }
  return system, chat
}

// ---- Anthropic ----

type claudeClient struct {
  log        *logger.Logger
  name       string
  model      string
  baseURL    string
  apiKey     string
  httpClient *http.Client
}

func newClaudeClient(log *logger.Logger, name, model string) (LLMClient, error) {
  apiKey := os.Getenv("ANTHROPIC_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
  }
  baseURL := os.Getenv("ANTHROPIC_BASE_URL")
  if baseURL == "" {
    baseURL = "https://api.anthropic.com"
  }
  return &claudeClient{
    log:        log.With("service", "LLMClient", "provider", model),
    name:       name,
    model:      model,
    baseURL:    baseURL,
    apiKey:     apiKey,
    httpClient: &http.Client{Timeout: 5 * time.Minute},
  }, nil
}

func (c *claudeClient) Name() string {
  return c.name
}

type claudeRequest struct {
  Model     string         `json:"model"`
  MaxTokens int            `json:"max_tokens"`
  System    string         `json:"system,omitempty"`
  Messages  []LLMMessage   `json:"messages"`
  Stream    bool           `json:"stream,omitempty"`
}

type claudeResponse struct {
  Content []struct {
    Type string `json:"type"`
    Text string `json:"text"`
  } `json:"content"`
}

type claudeStreamEvent struct {
  Type  string `json:"type"`
  Delta struct {
    Type string `json:"type"`
    Text string `json:"text"`
  } `json:"delta"`
}

func (c *claudeClient) newRequest(ctx context.Context, body claudeRequest) (*http.Request, error) {
  raw, err := json.Marshal(body)
  if err != nil {
    return nil, err
  }
  req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", bytes.NewReader(raw))
  if err != nil {
    return nil, err
  }
  req.Header.Set("x-api-key", c.apiKey)
  req.Header.Set("anthropic-version", "2023-06-01")
  req.Header.Set("Content-Type", "application/json")
  return req, nil
}

func (c *claudeClient) GenerateText(ctx context.Context, messages []LLMMessage) (string, error) {
  system, chat := splitSystem(messages)
  req, err := c.newRequest(ctx, claudeRequest{
    Model:     c.model,
    MaxTokens: llmMaxTokens,
    System:    system,
    Messages:  chat,
  })
  if err != nil {
    return "", err
  }
  resp, err := c.httpClient.Do(req)
  if err != nil {
    return "", err
  }
  defer resp.Body.Close()
  raw, err := io.ReadAll(resp.Body)
  if err != nil {
    return "", err
  }
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return "", fmt.Errorf("anthropic http %d: %s", resp.StatusCode, string(raw))
  }
  var out claudeResponse
  if err := json.Unmarshal(raw, &out); err != nil {
    return "", fmt.Errorf("anthropic decode error: %w", err)
  }
  var text strings.Builder
  for _, block := range out.Content {
    if block.Type == "text" {
      text.WriteString(block.Text)
    }
  }
  return text.String(), nil
}

func (c *claudeClient) GenerateStream(ctx context.Context, messages []LLMMessage, onChunk func(string) error) (string, error) {
  system, chat := splitSystem(messages)
  req, err := c.newRequest(ctx, claudeRequest{
    Model:     c.model,
    MaxTokens: llmMaxTokens,
    System:    system,
    Messages:  chat,
    Stream:    true,
  })
  if err != nil {
    return "", err
  }
  req.Header.Set("Accept", "text/event-stream")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return "", err
  }
  defer resp.Body.Close()
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    raw, _ := io.ReadAll(resp.Body)
    return "", fmt.Errorf("anthropic http %d: %s", resp.StatusCode, string(raw))
  }

  var full strings.Builder
  scanner := bufio.NewScanner(resp.Body)
  scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
  for scanner.Scan() {
    line := scanner.Text()
    if !strings.HasPrefix(line, "data:") {
      continue
    }
    payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
    if payload == "" {
      continue
    }
    var event claudeStreamEvent
    if err := json.Unmarshal([]byte(payload), &event); err != nil {
      continue
    }
    if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
      full.WriteString(event.Delta.Text)
      if cbErr := onChunk(event.Delta.Text); cbErr != nil {
        return full.String(), cbErr
      }
    }
  }
  if err := scanner.Err(); err != nil {
    return full.String(), fmt.Errorf("anthropic stream read error: %w", err)
  }
  return full.String(), nil
}

// ---- Gemini ----

type geminiClient struct {
  log        *logger.Logger
  model      string
  baseURL    string
  apiKey     string
  httpClient *http.Client
}

func newGeminiClient(log *logger.Logger) (LLMClient, error) {
  apiKey := os.Getenv("GOOGLE_AI_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing GOOGLE_AI_API_KEY")
  }
  baseURL := os.Getenv("GEMINI_BASE_URL")
  if baseURL == "" {
    baseURL = "https://generativelanguage.googleapis.com"
  }
  model := os.Getenv("GEMINI_MODEL")
  if model == "" {
    model = "gemini-2.0-flash-exp"
  }
  return &geminiClient{
    log:        log.With("service", "LLMClient", "provider", model),
    model:      model,
    baseURL:    baseURL,
    apiKey:     apiKey,
    httpClient: &http.Client{Timeout: 5 * time.Minute},
  }, nil
}

func (g *geminiClient) Name() string {
  return "Gemini Flash"
}

type geminiPart struct {
  Text string `json:"text"`
}

type geminiContent struct {
  Role  string       `json:"role,omitempty"`
  Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
  Contents          []geminiContent  `json:"contents"`
  SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
  GenerationConfig  struct {
    MaxOutputTokens int     `json:"maxOutputTokens"`
    Temperature     float64 `json:"temperature"`
  } `json:"generationConfig"`
}

type geminiResponse struct {
  Candidates []struct {
    Content geminiContent `json:"content"`
  } `json:"candidates"`
}

func (g *geminiClient) buildRequest(messages []LLMMessage) geminiRequest {
  system, chat := splitSystem(messages)
  req := geminiRequest{}
  req.GenerationConfig.MaxOutputTokens = llmMaxTokens
  req.GenerationConfig.Temperature = 0.7
  if system != "" {
    req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
  }
  for _, m := range chat {
    role := "user"
    if m.Role == "assistant" {
      role = "model"
    }
    req.Contents = append(req.Contents, geminiContent{
      Role:  role,
      Parts: []geminiPart{{Text: m.Content}},
    })
  }
  return req
}

func (g *geminiClient) GenerateText(ctx context.Context, messages []LLMMessage) (string, error) {
  raw, err := json.Marshal(g.buildRequest(messages))
  if err != nil {
    return "", err
  }
  url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
  req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(raw))
  if err != nil {
    return "", err
  }
  req.Header.Set("Content-Type", "application/json")

  resp, err := g.httpClient.Do(req)
  if err != nil {
    return "", err
  }
  defer resp.Body.Close()
  body, err := io.ReadAll(resp.Body)
  if err != nil {
    return "", err
  }
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return "", fmt.Errorf("gemini http %d: %s", resp.StatusCode, string(body))
  }
  var out geminiResponse
  if err := json.Unmarshal(body, &out); err != nil {
    return "", fmt.Errorf("gemini decode error: %w", err)
  }
  var text strings.Builder
  for _, cand := range out.Candidates {
    for _, part := range cand.Content.Parts {
      text.WriteString(part.Text)
    }
  }
  return text.String(), nil
}

func (g *geminiClient) GenerateStream(ctx context.Context, messages []LLMMessage, onChunk func(string) error) (string, error) {
  raw, err := json.Marshal(g.buildRequest(messages))
  if err != nil {
    return "", err
  }
  url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s", g.baseURL, g.model, g.apiKey)
  req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(raw))
  if err != nil {
    return "", err
  }
  req.Header.Set("Content-Type", "application/json")
  req.Header.Set("Accept", "text/event-stream")

  resp, err := g.httpClient.Do(req)
  if err != nil {
    return "", err
  }
  defer resp.Body.Close()
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    body, _ := io.ReadAll(resp.Body)
    return "", fmt.Errorf("gemini http %d: %s", resp.StatusCode, string(body))
  }

  var full strings.Builder
  scanner := bufio.NewScanner(resp.Body)
  scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
  for scanner.Scan() {
    line := scanner.Text()
    if !strings.HasPrefix(line, "data:") {
      continue
    }
    payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
    if payload == "" || payload == "[DONE]" {
      continue
    }
    var event geminiResponse
    if err := json.Unmarshal([]byte(payload), &event); err != nil {
      continue
    }
    for _, cand := range event.Candidates {
      for _, part := range cand.Content.Parts {
        if part.Text == "" {
          continue
        }
        full.WriteString(part.Text)
        if cbErr := onChunk(part.Text); cbErr != nil {
          return full.String(), cbErr
        }
      }
    }
  }
  if err := scanner.Err(); err != nil {
    return full.String(), fmt.Errorf("gemini stream read error: %w", err)
  }
  return full.String(), nil
}
